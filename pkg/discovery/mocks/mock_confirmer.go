package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// NewMockConfirmer creates a new instance of MockConfirmer. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockConfirmer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockConfirmer {
	mock := &MockConfirmer{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockConfirmer is an autogenerated mock type for the Confirmer type
type MockConfirmer struct {
	mock.Mock
}

type MockConfirmer_Expecter struct {
	mock *mock.Mock
}

func (_m *MockConfirmer) EXPECT() *MockConfirmer_Expecter {
	return &MockConfirmer_Expecter{mock: &_m.Mock}
}

// Confirm provides a mock function for the type MockConfirmer
func (_mock *MockConfirmer) Confirm(ctx context.Context, address string) (string, error) {
	ret := _mock.Called(ctx, address)

	if len(ret) == 0 {
		panic("no return value specified for Confirm")
	}

	var r0 string
	var r1 error
	if returnFunc, ok := ret.Get(0).(func(context.Context, string) (string, error)); ok {
		return returnFunc(ctx, address)
	}
	if returnFunc, ok := ret.Get(0).(func(context.Context, string) string); ok {
		r0 = returnFunc(ctx, address)
	} else {
		r0 = ret.Get(0).(string)
	}
	if returnFunc, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = returnFunc(ctx, address)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// MockConfirmer_Confirm_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Confirm'
type MockConfirmer_Confirm_Call struct {
	*mock.Call
}

// Confirm is a helper method to define mock.On call
//   - ctx context.Context
//   - address string
func (_e *MockConfirmer_Expecter) Confirm(ctx interface{}, address interface{}) *MockConfirmer_Confirm_Call {
	return &MockConfirmer_Confirm_Call{Call: _e.mock.On("Confirm", ctx, address)}
}

func (_c *MockConfirmer_Confirm_Call) Run(run func(ctx context.Context, address string)) *MockConfirmer_Confirm_Call {
	_c.Call.Run(func(args mock.Arguments) {
		var arg0 context.Context
		if args[0] != nil {
			arg0 = args[0].(context.Context)
		}
		var arg1 string
		if args[1] != nil {
			arg1 = args[1].(string)
		}
		run(
			arg0,
			arg1,
		)
	})
	return _c
}

func (_c *MockConfirmer_Confirm_Call) Return(s string, err error) *MockConfirmer_Confirm_Call {
	_c.Call.Return(s, err)
	return _c
}

func (_c *MockConfirmer_Confirm_Call) RunAndReturn(run func(ctx context.Context, address string) (string, error)) *MockConfirmer_Confirm_Call {
	_c.Call.Return(run)
	return _c
}
