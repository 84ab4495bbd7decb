// Package mocks provides test doubles for the nuheat package.
package mocks

import (
	"context"

	"github.com/andreweacott/nuheat-conductor/pkg/nuheat"
	"github.com/stretchr/testify/mock"
)

// MockAPI is a mock implementation of the nuheat.API interface
type MockAPI struct {
	mock.Mock
}

// Thermostats implements API.Thermostats
func (m *MockAPI) Thermostats(ctx context.Context) ([]nuheat.ThermostatData, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]nuheat.ThermostatData), args.Error(1)
}

// Thermostat implements API.Thermostat
func (m *MockAPI) Thermostat(ctx context.Context, serial string) (*nuheat.ThermostatData, error) {
	args := m.Called(ctx, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nuheat.ThermostatData), args.Error(1)
}

// Groups implements API.Groups
func (m *MockAPI) Groups(ctx context.Context) ([]nuheat.GroupData, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]nuheat.GroupData), args.Error(1)
}

// Account implements API.Account
func (m *MockAPI) Account(ctx context.Context) (*nuheat.AccountData, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nuheat.AccountData), args.Error(1)
}

// SetTemperature implements API.SetTemperature
func (m *MockAPI) SetTemperature(ctx context.Context, update nuheat.TemperatureUpdate) error {
	return m.Called(ctx, update).Error(0)
}

// SetScheduleMode implements API.SetScheduleMode
func (m *MockAPI) SetScheduleMode(ctx context.Context, serial string, mode int) error {
	return m.Called(ctx, serial, mode).Error(0)
}

// SetGroupAway implements API.SetGroupAway
func (m *MockAPI) SetGroupAway(ctx context.Context, groupID string, away bool) error {
	return m.Called(ctx, groupID, away).Error(0)
}

// ExpectThermostatReturns sets up expectation for Thermostat to return the record
func (m *MockAPI) ExpectThermostatReturns(serial string, data *nuheat.ThermostatData) *MockAPI {
	m.On("Thermostat", mock.Anything, serial).Return(data, nil)
	return m
}

// ExpectThermostatReturnsError sets up expectation for Thermostat to fail
func (m *MockAPI) ExpectThermostatReturnsError(serial string, err error) *MockAPI {
	m.On("Thermostat", mock.Anything, serial).Return(nil, err)
	return m
}

// ExpectSetupCalls sets up expectations for the calls made while setting up entities
func (m *MockAPI) ExpectSetupCalls(account *nuheat.AccountData, thermostats []nuheat.ThermostatData, groups []nuheat.GroupData) *MockAPI {
	m.On("Account", mock.Anything).Return(account, nil)
	m.On("Thermostats", mock.Anything).Return(thermostats, nil)
	m.On("Groups", mock.Anything).Return(groups, nil)
	return m
}
