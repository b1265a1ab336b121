package mocks

import (
	"context"

	"gameforge/internal/image"

	"github.com/stretchr/testify/mock"
)

// MockAgentAPI is a mock type for the image.AgentAPI type
type MockAgentAPI struct {
	mock.Mock
}

// CreateAgent provides a mock function with given fields: ctx, spec
func (_m *MockAgentAPI) CreateAgent(ctx context.Context, spec image.AgentSpec) (string, error) {
	ret := _m.Called(ctx, spec)
	return ret.String(0), ret.Error(1)
}

// StartConversation provides a mock function with given fields: ctx, agentID, inputs
func (_m *MockAgentAPI) StartConversation(ctx context.Context, agentID string, inputs string) (string, error) {
	ret := _m.Called(ctx, agentID, inputs)
	return ret.String(0), ret.Error(1)
}

// DownloadFile provides a mock function with given fields: ctx, fileID
func (_m *MockAgentAPI) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	ret := _m.Called(ctx, fileID)

	var r0 []byte
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	return r0, ret.Error(1)
}

// NewMockAgentAPI creates a new instance of MockAgentAPI and asserts its expectations on cleanup.
func NewMockAgentAPI(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAgentAPI {
	m := &MockAgentAPI{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ image.AgentAPI = (*MockAgentAPI)(nil)
