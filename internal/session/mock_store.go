package session

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key Key) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, key Key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStore) Load(ctx context.Context) (Session, error) {
	args := m.Called(ctx)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockStore) Save(ctx context.Context, s Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) SetAccessIf(ctx context.Context, refresh string, access string) (bool, error) {
	args := m.Called(ctx, refresh, access)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ClearIf(ctx context.Context, refresh string) (bool, error) {
	args := m.Called(ctx, refresh)
	return args.Bool(0), args.Error(1)
}
