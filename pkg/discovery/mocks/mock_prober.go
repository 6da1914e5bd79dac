// Package mocks provides testify mocks of the discovery collaborators.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// NewMockProber creates a new instance of MockProber. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockProber(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProber {
	mock := &MockProber{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockProber is an autogenerated mock type for the Prober type
type MockProber struct {
	mock.Mock
}

type MockProber_Expecter struct {
	mock *mock.Mock
}

func (_m *MockProber) EXPECT() *MockProber_Expecter {
	return &MockProber_Expecter{mock: &_m.Mock}
}

// Probe provides a mock function for the type MockProber
func (_mock *MockProber) Probe(ctx context.Context, address string) bool {
	ret := _mock.Called(ctx, address)

	if len(ret) == 0 {
		panic("no return value specified for Probe")
	}

	var r0 bool
	if returnFunc, ok := ret.Get(0).(func(context.Context, string) bool); ok {
		r0 = returnFunc(ctx, address)
	} else {
		r0 = ret.Get(0).(bool)
	}
	return r0
}

// MockProber_Probe_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Probe'
type MockProber_Probe_Call struct {
	*mock.Call
}

// Probe is a helper method to define mock.On call
//   - ctx context.Context
//   - address string
func (_e *MockProber_Expecter) Probe(ctx interface{}, address interface{}) *MockProber_Probe_Call {
	return &MockProber_Probe_Call{Call: _e.mock.On("Probe", ctx, address)}
}

func (_c *MockProber_Probe_Call) Run(run func(ctx context.Context, address string)) *MockProber_Probe_Call {
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

func (_c *MockProber_Probe_Call) Return(b bool) *MockProber_Probe_Call {
	_c.Call.Return(b)
	return _c
}

func (_c *MockProber_Probe_Call) RunAndReturn(run func(ctx context.Context, address string) bool) *MockProber_Probe_Call {
	_c.Call.Return(run)
	return _c
}
