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
	"github.com/membercard-labs/pass-updates/registrations"
)

var _ registrations.Repository = &DB{}

type registrationDynamo struct {
	PK     string
	SK     string
	GSI1PK string
	GSI1SK string
	GSI2PK string
	GSI2SK string

	DeviceID     string
	PassTypeID   string
	SerialNumber string
	PushToken    string
	Active       bool
	UpdatedAt    time.Time
}

const (
	deviceEntityName       = "DEVICE"
	registrationEntityName = "REG"
	tokenEntityName        = "TOKEN"
)

func registrationPK(deviceID string, passTypeID string) string {
	return fmt.Sprintf("%s#%s#%s", deviceEntityName, deviceID, passTypeID)
}

func registrationSK(serialNumber string) string {
	return fmt.Sprintf("%s#%s", registrationEntityName, serialNumber)
}

func registrationGSI1SK(deviceID string, passTypeID string) string {
	return fmt.Sprintf("%s#%s#%s", registrationEntityName, deviceID, passTypeID)
}

func tokenPK(pushToken string) string {
	return fmt.Sprintf("%s#%s", tokenEntityName, pushToken)
}

func newRegistrationDynamo(reg registrations.Registration) registrationDynamo {
	return registrationDynamo{
		PK:           registrationPK(reg.DeviceID, reg.PassTypeID),
		SK:           registrationSK(reg.SerialNumber),
		GSI1PK:       passPK(reg.SerialNumber),
		GSI1SK:       registrationGSI1SK(reg.DeviceID, reg.PassTypeID),
		GSI2PK:       tokenPK(reg.PushToken),
		GSI2SK:       fmt.Sprintf("%s#%s", registrationPK(reg.DeviceID, reg.PassTypeID), reg.SerialNumber),
		DeviceID:     reg.DeviceID,
		PassTypeID:   reg.PassTypeID,
		SerialNumber: reg.SerialNumber,
		PushToken:    reg.PushToken,
		Active:       reg.Active,
		UpdatedAt:    reg.UpdatedAt,
	}
}

// Register is an unconditional put: the latest token always wins, and
// writing an already-registered triple is success, not conflict.
func (d *DB) Register(ctx context.Context, reg registrations.Registration) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	item, err := attributevalue.MarshalMap(newRegistrationDynamo(reg))
	if err != nil {
		return registrations.NewFailedToTranslateToDBModelError("Failed to convert Registration to registrationDynamo", err)
	}

	_, err = d.dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return registrations.NewTimeoutError("Register timed out")
		}
		return registrations.NewFailedToWriteError("Failed PutItem call", err)
	}

	return nil
}

func (d *DB) Unregister(ctx context.Context, deviceID string, passTypeID string, serialNumber string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	err := d.deactivateItem(ctx,
		registrationPK(deviceID, passTypeID),
		registrationSK(serialNumber),
	)
	if err != nil {
		var condCheckFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailedErr) {
			// Never registered: idempotent no-op success
			return nil
		} else if errors.Is(err, context.DeadlineExceeded) {
			return registrations.NewTimeoutError("Unregister timed out")
		}
		return registrations.NewFailedToWriteError("Failed UpdateItem call", err)
	}

	return nil
}

func (d *DB) Deactivate(ctx context.Context, pushToken string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	regs, err := d.queryRegistrations(ctx, gsi2, tokenPK(pushToken), "GSI2PK")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return registrations.NewTimeoutError("Deactivate timed out")
		}
		return registrations.NewFailedToFetchError(fmt.Sprintf("Failed to find registrations for token %q", pushToken), err)
	}

	for _, reg := range regs {
		if !reg.Active {
			continue
		}

		err = d.deactivateItem(ctx, reg.PK, reg.SK)
		if err != nil {
			var condCheckFailedErr *types.ConditionalCheckFailedException
			if errors.As(err, &condCheckFailedErr) {
				// Deleted out from under us, already what we wanted
				continue
			}
			return registrations.NewFailedToWriteError(fmt.Sprintf("Failed to deactivate registration for token %q", pushToken), err)
		}
	}

	return nil
}

func (d *DB) ListActiveTokens(ctx context.Context, serialNumber string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	regs, err := d.queryRegistrations(ctx, gsi1, passPK(serialNumber), "GSI1PK")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, registrations.NewTimeoutError("ListActiveTokens timed out")
		}
		return nil, registrations.NewFailedToFetchError(fmt.Sprintf("Failed to fetch registrations for serial %q", serialNumber), err)
	}

	seen := map[string]bool{}
	tokens := []string{}
	for _, reg := range regs {
		if !reg.Active || seen[reg.PushToken] {
			continue
		}
		seen[reg.PushToken] = true
		tokens = append(tokens, reg.PushToken)
	}

	return tokens, nil
}

func (d *DB) ListActiveSerials(ctx context.Context, deviceID string, passTypeID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	regs, err := d.queryRegistrations(ctx, "", registrationPK(deviceID, passTypeID), "PK")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, registrations.NewTimeoutError("ListActiveSerials timed out")
		}
		return nil, registrations.NewFailedToFetchError(fmt.Sprintf("Failed to fetch registrations for device %q", deviceID), err)
	}

	serials := []string{}
	for _, reg := range regs {
		if !reg.Active {
			continue
		}
		serials = append(serials, reg.SerialNumber)
	}

	return serials, nil
}

// deactivateItem flips Active off in place. Fails with
// ConditionalCheckFailedException if the item does not exist.
func (d *DB) deactivateItem(ctx context.Context, pk string, sk string) error {
	expr := exprMustBuild(expression.NewBuilder().
		WithUpdate(expression.
			Set(expression.Name("Active"), expression.Value(false)).
			Set(expression.Name("UpdatedAt"), expression.Value(time.Now()))).
		WithCondition(expression.Name("PK").AttributeExists()))

	_, err := d.dynamoClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	return err
}

func (d *DB) queryRegistrations(ctx context.Context, indexName string, partitionKey string, keyAttribute string) ([]registrationDynamo, error) {
	keyCond := expression.Key(keyAttribute).Equal(expression.Value(partitionKey))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build dynamo key expression: %s", err))
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if indexName != "" {
		input.IndexName = aws.String(indexName)
	}

	var items []registrationDynamo
	paginator := dynamodb.NewQueryPaginator(d.dynamoClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		var pageItems []registrationDynamo
		err = attributevalue.UnmarshalListOfMaps(page.Items, &pageItems)
		if err != nil {
			panic(fmt.Sprintf("failed to unmarshal dynamo registrations: %s", err))
		}
		items = append(items, pageItems...)
	}

	return items, nil
}
