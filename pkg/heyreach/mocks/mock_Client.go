// Package mocks provides test doubles for the heyreach client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	heyreach "github.com/sells-group/outreach-cli/pkg/heyreach"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// AddLeadsToList provides a mock function with given fields: ctx, listID, leads
func (_m *MockClient) AddLeadsToList(ctx context.Context, listID int, leads []heyreach.Lead) (*heyreach.UploadReport, error) {
	ret := _m.Called(ctx, listID, leads)

	if len(ret) == 0 {
		panic("no return value specified for AddLeadsToList")
	}

	var r0 *heyreach.UploadReport
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, int, []heyreach.Lead) (*heyreach.UploadReport, error)); ok {
		return rf(ctx, listID, leads)
	}
	if rf, ok := ret.Get(0).(func(context.Context, int, []heyreach.Lead) *heyreach.UploadReport); ok {
		r0 = rf(ctx, listID, leads)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*heyreach.UploadReport)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, int, []heyreach.Lead) error); ok {
		r1 = rf(ctx, listID, leads)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
