package registrations

import (
	"context"
	"time"

	"github.com/membercard-labs/pass-updates/passes"
)

var _ Repository = &mockRegRepo{}

type mockRegRepo struct {
	RegisterFunc          func(ctx context.Context, reg Registration) error
	UnregisterFunc        func(ctx context.Context, deviceID string, passTypeID string, serialNumber string) error
	DeactivateFunc        func(ctx context.Context, pushToken string) error
	ListActiveTokensFunc  func(ctx context.Context, serialNumber string) ([]string, error)
	ListActiveSerialsFunc func(ctx context.Context, deviceID string, passTypeID string) ([]string, error)
}

func (m *mockRegRepo) Register(ctx context.Context, reg Registration) error {
	return m.RegisterFunc(ctx, reg)
}

func (m *mockRegRepo) Unregister(ctx context.Context, deviceID string, passTypeID string, serialNumber string) error {
	return m.UnregisterFunc(ctx, deviceID, passTypeID, serialNumber)
}

func (m *mockRegRepo) Deactivate(ctx context.Context, pushToken string) error {
	return m.DeactivateFunc(ctx, pushToken)
}

func (m *mockRegRepo) ListActiveTokens(ctx context.Context, serialNumber string) ([]string, error) {
	return m.ListActiveTokensFunc(ctx, serialNumber)
}

func (m *mockRegRepo) ListActiveSerials(ctx context.Context, deviceID string, passTypeID string) ([]string, error) {
	return m.ListActiveSerialsFunc(ctx, deviceID, passTypeID)
}

var _ passes.Repository = &mockPassRepo{}

type mockPassRepo struct {
	GetPassFunc          func(ctx context.Context, serialNumber string) (passes.Pass, error)
	GetPassesFunc        func(ctx context.Context, serialNumbers []string) ([]passes.Pass, error)
	CreatePassFunc       func(ctx context.Context, pass passes.Pass) error
	BumpLastModifiedFunc func(ctx context.Context, serialNumber string, lastModified time.Time) error
	VoidPassFunc         func(ctx context.Context, serialNumber string) error
}

func (m *mockPassRepo) GetPass(ctx context.Context, serialNumber string) (passes.Pass, error) {
	return m.GetPassFunc(ctx, serialNumber)
}

func (m *mockPassRepo) GetPasses(ctx context.Context, serialNumbers []string) ([]passes.Pass, error) {
	return m.GetPassesFunc(ctx, serialNumbers)
}

func (m *mockPassRepo) CreatePass(ctx context.Context, pass passes.Pass) error {
	return m.CreatePassFunc(ctx, pass)
}

func (m *mockPassRepo) BumpLastModified(ctx context.Context, serialNumber string, lastModified time.Time) error {
	return m.BumpLastModifiedFunc(ctx, serialNumber, lastModified)
}

func (m *mockPassRepo) VoidPass(ctx context.Context, serialNumber string) error {
	return m.VoidPassFunc(ctx, serialNumber)
}
