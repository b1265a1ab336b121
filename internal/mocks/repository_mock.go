package mocks

import (
	"context"

	"gameforge/internal/model"
	"gameforge/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockConceptRepository is a mock type for the repository.ConceptRepository type
type MockConceptRepository struct {
	mock.Mock
}

// Save provides a mock function with given fields: ctx, concept
func (_m *MockConceptRepository) Save(ctx context.Context, concept *model.GameConcept) error {
	ret := _m.Called(ctx, concept)
	return ret.Error(0)
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockConceptRepository) GetByID(ctx context.Context, id string) (*model.GameConcept, error) {
	ret := _m.Called(ctx, id)

	var r0 *model.GameConcept
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.GameConcept); ok {
		r0 = rf(ctx, id)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.GameConcept)
	}
	return r0, ret.Error(1)
}

// ListByUser provides a mock function with given fields: ctx, userID, limit
func (_m *MockConceptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.GameConcept, error) {
	ret := _m.Called(ctx, userID, limit)

	var r0 []*model.GameConcept
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*model.GameConcept)
	}
	return r0, ret.Error(1)
}

// Delete provides a mock function with given fields: ctx, id, userID
func (_m *MockConceptRepository) Delete(ctx context.Context, id string, userID string) error {
	ret := _m.Called(ctx, id, userID)
	return ret.Error(0)
}

// ToggleFavorite provides a mock function with given fields: ctx, id, userID
func (_m *MockConceptRepository) ToggleFavorite(ctx context.Context, id string, userID string) (repository.FavoriteState, error) {
	ret := _m.Called(ctx, id, userID)

	var r0 repository.FavoriteState
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(repository.FavoriteState)
	}
	return r0, ret.Error(1)
}

// ListFavorites provides a mock function with given fields: ctx, userID, limit
func (_m *MockConceptRepository) ListFavorites(ctx context.Context, userID string, limit int) ([]*model.GameConcept, error) {
	ret := _m.Called(ctx, userID, limit)

	var r0 []*model.GameConcept
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*model.GameConcept)
	}
	return r0, ret.Error(1)
}

// ListPublic provides a mock function with given fields: ctx, query, limit
func (_m *MockConceptRepository) ListPublic(ctx context.Context, query string, limit int) ([]*model.GameConcept, error) {
	ret := _m.Called(ctx, query, limit)

	var r0 []*model.GameConcept
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*model.GameConcept)
	}
	return r0, ret.Error(1)
}

// NewMockConceptRepository creates a new instance of MockConceptRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockConceptRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockConceptRepository {
	m := &MockConceptRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ repository.ConceptRepository = (*MockConceptRepository)(nil)
