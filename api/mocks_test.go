package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/membercard-labs/pass-updates/passes"
	"github.com/membercard-labs/pass-updates/push"
	"github.com/membercard-labs/pass-updates/registrations"
)

var noopLogger = slog.New(slog.DiscardHandler)

var _ DB = &mockDB{}

type mockDB struct {
	RegisterFunc          func(ctx context.Context, reg registrations.Registration) error
	UnregisterFunc        func(ctx context.Context, deviceID string, passTypeID string, serialNumber string) error
	DeactivateFunc        func(ctx context.Context, pushToken string) error
	ListActiveTokensFunc  func(ctx context.Context, serialNumber string) ([]string, error)
	ListActiveSerialsFunc func(ctx context.Context, deviceID string, passTypeID string) ([]string, error)
	GetPassFunc           func(ctx context.Context, serialNumber string) (passes.Pass, error)
	GetPassesFunc         func(ctx context.Context, serialNumbers []string) ([]passes.Pass, error)
	CreatePassFunc        func(ctx context.Context, pass passes.Pass) error
	BumpLastModifiedFunc  func(ctx context.Context, serialNumber string, lastModified time.Time) error
	VoidPassFunc          func(ctx context.Context, serialNumber string) error
}

func (m *mockDB) Register(ctx context.Context, reg registrations.Registration) error {
	return m.RegisterFunc(ctx, reg)
}

func (m *mockDB) Unregister(ctx context.Context, deviceID string, passTypeID string, serialNumber string) error {
	return m.UnregisterFunc(ctx, deviceID, passTypeID, serialNumber)
}

func (m *mockDB) Deactivate(ctx context.Context, pushToken string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, pushToken)
	}
	return nil
}

func (m *mockDB) ListActiveTokens(ctx context.Context, serialNumber string) ([]string, error) {
	return m.ListActiveTokensFunc(ctx, serialNumber)
}

func (m *mockDB) ListActiveSerials(ctx context.Context, deviceID string, passTypeID string) ([]string, error) {
	return m.ListActiveSerialsFunc(ctx, deviceID, passTypeID)
}

func (m *mockDB) GetPass(ctx context.Context, serialNumber string) (passes.Pass, error) {
	return m.GetPassFunc(ctx, serialNumber)
}

func (m *mockDB) GetPasses(ctx context.Context, serialNumbers []string) ([]passes.Pass, error) {
	return m.GetPassesFunc(ctx, serialNumbers)
}

func (m *mockDB) CreatePass(ctx context.Context, pass passes.Pass) error {
	if m.CreatePassFunc != nil {
		return m.CreatePassFunc(ctx, pass)
	}
	return nil
}

func (m *mockDB) BumpLastModified(ctx context.Context, serialNumber string, lastModified time.Time) error {
	if m.BumpLastModifiedFunc != nil {
		return m.BumpLastModifiedFunc(ctx, serialNumber, lastModified)
	}
	return nil
}

func (m *mockDB) VoidPass(ctx context.Context, serialNumber string) error {
	if m.VoidPassFunc != nil {
		return m.VoidPassFunc(ctx, serialNumber)
	}
	return nil
}

type mockDispatcher struct {
	BulkNotifyFunc func(ctx context.Context, passTypeID string, tokens []string, message *string) push.BulkResult
}

func (m *mockDispatcher) BulkNotify(ctx context.Context, passTypeID string, tokens []string, message *string) push.BulkResult {
	if m.BulkNotifyFunc != nil {
		return m.BulkNotifyFunc(ctx, passTypeID, tokens, message)
	}
	return push.BulkResult{}
}
