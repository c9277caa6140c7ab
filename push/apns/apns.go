// Package apns implements push.Transport on top of the APNs HTTP/2 API
// using token-based (.p8 key) authentication.
package apns

import (
	"context"
	"fmt"

	"github.com/membercard-labs/pass-updates/push"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

var _ push.Transport = &Transport{}

type Transport struct {
	client *apns2.Client
}

func NewTransport(client *apns2.Client) *Transport {
	return &Transport{
		client: client,
	}
}

// NewProductionClient builds an APNs client from the contents of a .p8
// signing key. The caller owns the client's lifecycle and should Close the
// transport on shutdown.
func NewProductionClient(authKey []byte, keyID string, teamID string) (*apns2.Client, error) {
	key, err := token.AuthKeyFromBytes(authKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs auth key: %w", err)
	}

	return apns2.NewTokenClient(&token.Token{
		AuthKey: key,
		KeyID:   keyID,
		TeamID:  teamID,
	}).Production(), nil
}

func (t *Transport) Send(ctx context.Context, n push.Notification) error {
	res, err := t.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: n.Token,
		// Wallet routes pass-update pushes by the pass type identifier
		Topic:      n.PassTypeID,
		Expiration: n.Expiration,
		Priority:   apns2.PriorityHigh,
		PushType:   apns2.PushTypeAlert,
		Payload:    notificationPayload(n),
	})
	if err != nil {
		return push.NewDeliveryFailedError(fmt.Sprintf("Failed to reach APNs for token %q", n.Token), err)
	}
	if res.Sent() {
		return nil
	}

	switch res.Reason {
	case apns2.ReasonBadDeviceToken, apns2.ReasonUnregistered, apns2.ReasonDeviceTokenNotForTopic:
		return push.NewTokenInvalidError(fmt.Sprintf("APNs rejected token %q as invalid: %s", n.Token, res.Reason), nil)
	default:
		return push.NewDeliveryFailedError(fmt.Sprintf("APNs refused delivery with status %d: %s", res.StatusCode, res.Reason), nil)
	}
}

func (t *Transport) Close() error {
	t.client.HTTPClient.CloseIdleConnections()
	return nil
}

func notificationPayload(n push.Notification) *payload.Payload {
	if n.Message == nil {
		// Silent wake-up: the device re-fetches the pass without alerting
		return payload.NewPayload().ContentAvailable()
	}

	return payload.NewPayload().
		AlertTitle("Membership update").
		AlertBody(*n.Message).
		Sound("default")
}
