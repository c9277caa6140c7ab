package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/membercard-labs/pass-updates/passes"
	"github.com/membercard-labs/pass-updates/slices"
)

var _ passes.Repository = &DB{}

type passDynamo struct {
	PK string
	SK string

	SerialNumber        string
	PassTypeID          string
	Version             int
	AuthenticationToken string
	LastModified        time.Time
	Voided              bool
}

const (
	passEntityName = "PASS"

	// BatchGetItem takes at most 100 keys per call
	batchGetLimit = 100
)

func passPK(serialNumber string) string {
	return fmt.Sprintf("%s#%s", passEntityName, serialNumber)
}

func passSK(serialNumber string) string {
	return passPK(serialNumber)
}

func newPassDynamo(pass passes.Pass) passDynamo {
	return passDynamo{
		PK:                  passPK(pass.SerialNumber),
		SK:                  passSK(pass.SerialNumber),
		SerialNumber:        pass.SerialNumber,
		PassTypeID:          pass.PassTypeID,
		Version:             pass.Version,
		AuthenticationToken: pass.AuthenticationToken,
		LastModified:        pass.LastModified,
		Voided:              pass.Voided,
	}
}

func passFromPassDynamo(pass passDynamo) passes.Pass {
	return passes.Pass{
		SerialNumber:        pass.SerialNumber,
		PassTypeID:          pass.PassTypeID,
		Version:             pass.Version,
		AuthenticationToken: pass.AuthenticationToken,
		LastModified:        pass.LastModified,
		Voided:              pass.Voided,
	}
}

func (d *DB) GetPass(ctx context.Context, serialNumber string) (passes.Pass, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: passPK(serialNumber)},
			"SK": &types.AttributeValueMemberS{Value: passSK(serialNumber)},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return passes.Pass{}, passes.NewTimeoutError("GetPass timed out")
		}
		return passes.Pass{}, passes.NewFailedToFetchError(fmt.Sprintf("Failed to fetch pass with serial %q", serialNumber), err)
	}

	if len(resp.Item) == 0 {
		return passes.Pass{}, passes.NewPassDoesNotExistError(fmt.Sprintf("Pass with serial %q not found", serialNumber), nil)
	}

	var pass passDynamo
	err = attributevalue.UnmarshalMap(resp.Item, &pass)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal pass from DB: %s", err))
	}
	return passFromPassDynamo(pass), nil
}

// GetPasses fetches the given serials in bulk. Serials with no backing pass
// are silently absent from the result.
func (d *DB) GetPasses(ctx context.Context, serialNumbers []string) ([]passes.Pass, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	keys := slices.Map(serialNumbers, func(serial string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: passPK(serial)},
			"SK": &types.AttributeValueMemberS{Value: passSK(serial)},
		}
	})

	var items []map[string]types.AttributeValue
	for len(keys) > 0 {
		batch := keys[:min(batchGetLimit, len(keys))]
		keys = keys[len(batch):]

		for len(batch) > 0 {
			resp, err := d.dynamoClient.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: map[string]types.KeysAndAttributes{
					d.tableName: {Keys: batch},
				},
			})
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return nil, passes.NewTimeoutError("GetPasses timed out")
				}
				return nil, passes.NewFailedToFetchError("Failed BatchGetItem call", err)
			}

			items = append(items, resp.Responses[d.tableName]...)
			batch = resp.UnprocessedKeys[d.tableName].Keys
		}
	}

	var dynamoItems []passDynamo
	err := attributevalue.UnmarshalListOfMaps(items, &dynamoItems)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal dynamo passes: %s", err))
	}

	return slices.Map(dynamoItems, func(v passDynamo) passes.Pass {
		return passFromPassDynamo(v)
	}), nil
}

func (d *DB) CreatePass(ctx context.Context, pass passes.Pass) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	item, err := attributevalue.MarshalMap(newPassDynamo(pass))
	if err != nil {
		return passes.NewFailedToTranslateToDBModelError("Failed to convert Pass to passDynamo", err)
	}

	expr := exprMustBuild(expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()))

	_, err = d.dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(d.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condCheckFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailedErr) {
			return passes.NewPassAlreadyExistsError(fmt.Sprintf("Pass with serial %q already exists", pass.SerialNumber), err)
		} else if errors.Is(err, context.DeadlineExceeded) {
			return passes.NewTimeoutError("CreatePass timed out")
		} else {
			return passes.NewFailedToWriteError("Failed PutItem call", err)
		}
	}

	return nil
}

func (d *DB) BumpLastModified(ctx context.Context, serialNumber string, lastModified time.Time) error {
	return d.updatePass(ctx, serialNumber, "BumpLastModified", expression.
		Set(expression.Name("LastModified"), expression.Value(lastModified)).
		Add(expression.Name("Version"), expression.Value(1)))
}

func (d *DB) VoidPass(ctx context.Context, serialNumber string) error {
	return d.updatePass(ctx, serialNumber, "VoidPass", expression.
		Set(expression.Name("Voided"), expression.Value(true)).
		Add(expression.Name("Version"), expression.Value(1)))
}

func (d *DB) updatePass(ctx context.Context, serialNumber string, opName string, update expression.UpdateBuilder) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	expr := exprMustBuild(expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.Name("PK").AttributeExists()))

	_, err := d.dynamoClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: passPK(serialNumber)},
			"SK": &types.AttributeValueMemberS{Value: passSK(serialNumber)},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condCheckFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailedErr) {
			return passes.NewPassDoesNotExistError(fmt.Sprintf("Pass with serial %q does not exist", serialNumber), err)
		} else if errors.Is(err, context.DeadlineExceeded) {
			return passes.NewTimeoutError(fmt.Sprintf("%s timed out", opName))
		} else {
			return passes.NewFailedToWriteError("Failed UpdateItem call", err)
		}
	}

	return nil
}
