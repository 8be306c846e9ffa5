package agent

import (
	"context"
	"image"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/sgexplore/internal/geometry"
	"github.com/xkilldash9x/sgexplore/internal/platform"
)

// MockDriver mocks the platform.Driver interface.
type MockDriver struct {
	mock.Mock
}

var _ platform.Driver = (*MockDriver)(nil)

func (m *MockDriver) Localization(ctx context.Context) (geometry.Point, float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(geometry.Point), args.Get(1).(float64), args.Error(2)
}

func (m *MockDriver) LocalGridImage(ctx context.Context) (image.Image, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(image.Image), args.Error(1)
}

func (m *MockDriver) LookForWorldObjects(ctx context.Context) ([]platform.Sighting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]platform.Sighting), args.Error(1)
}

func (m *MockDriver) MoveTo(ctx context.Context, pos geometry.Point, heading float64) (bool, error) {
	args := m.Called(ctx, pos, heading)
	return args.Bool(0), args.Error(1)
}
