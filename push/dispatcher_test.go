package push

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/membercard-labs/pass-updates/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noopLogger = slog.New(slog.DiscardHandler)

var _ Transport = &mockTransport{}

type mockTransport struct {
	mu    sync.Mutex
	sent  []Notification
	reply func(n Notification) error
}

func (m *mockTransport) Send(ctx context.Context, n Notification) error {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()

	if m.reply != nil {
		return m.reply(n)
	}
	return nil
}

func (m *mockTransport) Close() error {
	return nil
}

func TestNotify(t *testing.T) {
	ctx := context.Background()

	t.Run("silent push carries an expiry and no message", func(t *testing.T) {
		transport := &mockTransport{}
		d := NewDispatcher(transport, noopLogger)

		before := time.Now()
		require.NoError(t, d.Notify(ctx, "pass.com.membercard.club", "tok1", nil))

		require.Len(t, transport.sent, 1)
		n := transport.sent[0]
		assert.Equal(t, "tok1", n.Token)
		assert.Equal(t, "pass.com.membercard.club", n.PassTypeID)
		assert.Nil(t, n.Message)
		assert.True(t, n.Expiration.After(before.Add(time.Minute*50)))
		assert.True(t, n.Expiration.Before(before.Add(time.Minute*70)))
	})

	t.Run("visible message passes through", func(t *testing.T) {
		transport := &mockTransport{}
		d := NewDispatcher(transport, noopLogger)

		require.NoError(t, d.Notify(ctx, "pass.com.membercard.club", "tok1", ptr.String("You reached Gold tier!")))

		require.Len(t, transport.sent, 1)
		require.NotNil(t, transport.sent[0].Message)
		assert.Equal(t, "You reached Gold tier!", *transport.sent[0].Message)
	})
}

func TestBulkNotify(t *testing.T) {
	ctx := context.Background()

	t.Run("all delivered", func(t *testing.T) {
		transport := &mockTransport{}
		d := NewDispatcher(transport, noopLogger)

		result := d.BulkNotify(ctx, "pass.com.membercard.club", []string{"tok1", "tok2", "tok3"}, nil)

		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 3, result.Sent)
		assert.Equal(t, 0, result.Failed)
		assert.Empty(t, result.Failures)
		assert.Len(t, transport.sent, 3)
	})

	t.Run("one dead token does not abort the others", func(t *testing.T) {
		transport := &mockTransport{
			reply: func(n Notification) error {
				if n.Token == "tokA" {
					return NewTokenInvalidError("device uninstalled the pass", nil)
				}
				return nil
			},
		}
		d := NewDispatcher(transport, noopLogger)

		result := d.BulkNotify(ctx, "pass.com.membercard.club", []string{"tokA", "tokB"}, nil)

		assert.Equal(t, 2, result.Total)
		assert.Equal(t, 1, result.Sent)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "tokA", result.Failures[0].Token)
		assert.True(t, result.Failures[0].Permanent)
		assert.Len(t, transport.sent, 2)
	})

	t.Run("transient failures are not flagged permanent", func(t *testing.T) {
		transport := &mockTransport{
			reply: func(n Notification) error {
				return NewDeliveryFailedError("APNs 503", nil)
			},
		}
		d := NewDispatcher(transport, noopLogger)

		result := d.BulkNotify(ctx, "pass.com.membercard.club", []string{"tok1"}, nil)

		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Failures, 1)
		assert.False(t, result.Failures[0].Permanent)
	})

	t.Run("no tokens is an empty success", func(t *testing.T) {
		d := NewDispatcher(&mockTransport{}, noopLogger)

		result := d.BulkNotify(ctx, "pass.com.membercard.club", nil, nil)

		assert.Equal(t, BulkResult{}, result)
	})
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(NewTokenInvalidError("gone", nil)))
	assert.False(t, IsPermanent(NewDeliveryFailedError("flaky", nil)))
	assert.False(t, IsPermanent(context.DeadlineExceeded))
}
