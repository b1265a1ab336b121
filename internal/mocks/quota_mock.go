package mocks

import (
	"context"

	"gameforge/internal/quota"

	"github.com/stretchr/testify/mock"
)

// MockLimiter is a mock type for the quota.Limiter type
type MockLimiter struct {
	mock.Mock
}

// Consume provides a mock function with given fields: ctx, userID
func (_m *MockLimiter) Consume(ctx context.Context, userID string) (quota.Status, error) {
	ret := _m.Called(ctx, userID)

	var r0 quota.Status
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(quota.Status)
	}
	return r0, ret.Error(1)
}

// Release provides a mock function with given fields: ctx, userID
func (_m *MockLimiter) Release(ctx context.Context, userID string) (quota.Status, error) {
	ret := _m.Called(ctx, userID)

	var r0 quota.Status
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(quota.Status)
	}
	return r0, ret.Error(1)
}

// Status provides a mock function with given fields: ctx, userID
func (_m *MockLimiter) Status(ctx context.Context, userID string) (quota.Status, error) {
	ret := _m.Called(ctx, userID)

	var r0 quota.Status
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(quota.Status)
	}
	return r0, ret.Error(1)
}

// SetDailyLimit provides a mock function with given fields: ctx, userID, n
func (_m *MockLimiter) SetDailyLimit(ctx context.Context, userID string, n int) error {
	ret := _m.Called(ctx, userID, n)
	return ret.Error(0)
}

// Reset provides a mock function with given fields: ctx, userID
func (_m *MockLimiter) Reset(ctx context.Context, userID string) error {
	ret := _m.Called(ctx, userID)
	return ret.Error(0)
}

// NewMockLimiter creates a new instance of MockLimiter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockLimiter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLimiter {
	m := &MockLimiter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ quota.Limiter = (*MockLimiter)(nil)
