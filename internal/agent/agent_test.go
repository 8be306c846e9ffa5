package agent

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/geometry"
	"github.com/xkilldash9x/sgexplore/internal/localgrid"
	"github.com/xkilldash9x/sgexplore/internal/planning"
	"github.com/xkilldash9x/sgexplore/internal/platform"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

var testGrid = config.GridConfig{CellCount: 11, CellSize: 0.5}

func setupAgent(t *testing.T) (*Agent, *MockDriver, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	d := new(MockDriver)
	t.Cleanup(func() { d.AssertExpectations(t) })
	a := New("a1", sgraph.AllCapabilities(), d, testGrid,
		localgrid.BelowThreshold{Threshold: localgrid.DefaultThreshold}, zap.New(core))
	return a, d, logs
}

func TestSync(t *testing.T) {
	a, d, _ := setupAgent(t)
	ctx := context.Background()
	d.On("Localization", ctx).Return(geometry.Pt(1, 2), 0.5, nil).Once()

	require.NoError(t, a.Sync(ctx))
	assert.Equal(t, geometry.Pt(1, 2), a.Position)
	assert.Equal(t, 0.5, a.Heading)

	d.On("Localization", ctx).Return(geometry.Point{}, 0.0, errors.New("no fix")).Once()
	assert.Error(t, a.Sync(ctx))
	assert.Equal(t, geometry.Pt(1, 2), a.Position, "position kept on failure")
}

func TestMove_Arrives(t *testing.T) {
	a, d, _ := setupAgent(t)
	ctx := context.Background()
	a.Position, a.Heading = geometry.Pt(0, 0), 0.25

	d.On("MoveTo", ctx, geometry.Pt(3, 0), 0.0).Return(true, nil).Once()
	d.On("Localization", ctx).Return(geometry.Pt(3, 0), 0.0, nil).Once()

	arrived, err := a.Move(ctx, geometry.Pt(3, 0), 0)
	require.NoError(t, err)
	assert.True(t, arrived)
	assert.Equal(t, geometry.Pt(3, 0), a.Position)
	assert.Equal(t, geometry.Pt(0, 0), a.PreviousPosition)
	assert.Equal(t, 0.25, a.PreviousHeading)
}

func TestMove_RetreatsWhenBlocked(t *testing.T) {
	a, d, logs := setupAgent(t)
	ctx := context.Background()
	a.Position, a.Heading = geometry.Pt(0, 0), 1

	d.On("MoveTo", ctx, geometry.Pt(3, 0), 0.0).Return(false, nil).Once()
	d.On("Localization", ctx).Return(geometry.Pt(1.2, 0), 0.0, nil).Once()
	d.On("MoveTo", ctx, geometry.Pt(0, 0), 1.0).Return(true, nil).Once()
	d.On("Localization", ctx).Return(geometry.Pt(0, 0), 1.0, nil).Once()

	arrived, err := a.Move(ctx, geometry.Pt(3, 0), 0)
	require.NoError(t, err)
	assert.False(t, arrived)
	assert.Equal(t, geometry.Pt(0, 0), a.Position)
	assert.Equal(t, 1, logs.FilterMessage("Move did not arrive, returning to previous position").Len())
}

func TestMove_DriverError(t *testing.T) {
	a, d, _ := setupAgent(t)
	ctx := context.Background()
	boom := errors.New("e-stop")
	d.On("MoveTo", ctx, mock.Anything, mock.Anything).Return(false, boom).Once()

	_, err := a.Move(ctx, geometry.Pt(1, 1), 0)
	assert.ErrorIs(t, err, boom)
}

func TestLocalize(t *testing.T) {
	g := sgraph.New(nil)
	w0 := g.AddNode(sgraph.KindWaypoint, geometry.Pt(0, 0))
	w1 := g.AddNode(sgraph.KindWaypoint, geometry.Pt(0.3, 0))
	g.AddNode(sgraph.KindFrontier, geometry.Pt(5, 5))

	t.Run("single match", func(t *testing.T) {
		a, _, _ := setupAgent(t)
		a.Position = geometry.Pt(5, 0.1)
		w2 := g.AddNode(sgraph.KindWaypoint, geometry.Pt(5, 0))
		t.Cleanup(func() { _ = g.RemoveNodeAndTasks(w2) })

		require.NoError(t, a.Localize(g, 0.5))
		assert.Equal(t, w2, a.Waypoint)
	})

	t.Run("several matches take the first", func(t *testing.T) {
		a, _, logs := setupAgent(t)
		a.Position = geometry.Pt(0.1, 0)

		err := a.Localize(g, 0.5)
		assert.ErrorIs(t, err, ErrLocalizationAmbiguous)
		assert.Equal(t, w0, a.Waypoint)
		assert.NotEqual(t, w1, a.Waypoint)
		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	})

	t.Run("no match leaves the pointer stale", func(t *testing.T) {
		a, _, logs := setupAgent(t)
		a.Waypoint = w1
		a.Position = geometry.Pt(5, 5)

		err := a.Localize(g, 0.5)
		assert.ErrorIs(t, err, ErrLocalizationAmbiguous)
		assert.Equal(t, w1, a.Waypoint)
		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	})
}

func TestLocalGrid(t *testing.T) {
	a, d, _ := setupAgent(t)
	ctx := context.Background()
	a.Position = geometry.Pt(2, 2)
	img := image.NewNRGBA(image.Rect(0, 0, 11, 11))
	d.On("LocalGridImage", ctx).Return(img, nil).Once()

	grid, err := a.LocalGrid(ctx)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pt(2, 2), grid.WorldPos)
	assert.Equal(t, geometry.Pt(2, 2), grid.CellToWorld(grid.Center()))

	d.On("LocalGridImage", ctx).Return(nil, errors.New("camera")).Once()
	_, err = a.LocalGrid(ctx)
	assert.Error(t, err)
}

func TestLookForWorldObjects(t *testing.T) {
	a, d, _ := setupAgent(t)
	ctx := context.Background()
	want := []platform.Sighting{{Kind: sgraph.KindDoor, Pos: geometry.Pt(1, 0)}}
	d.On("LookForWorldObjects", ctx).Return(want, nil).Once()

	got, err := a.LookForWorldObjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTaskBookkeeping(t *testing.T) {
	a, _, _ := setupAgent(t)
	assert.False(t, a.HasTask())
	assert.False(t, a.HasPlan())

	task := sgraph.Task{ID: uuid.New(), Objective: sgraph.ObjectiveExploreAllFrontiers}
	a.AssignTask(task)
	a.Plan = planning.NewPlan([]sgraph.Edge{{Behavior: sgraph.BehaviorGoto}})
	assert.True(t, a.HasTask())
	assert.True(t, a.HasPlan())

	v := a.View()
	assert.Equal(t, task.ID.String(), v.Task)
	assert.Equal(t, 1, v.PlanLength)
	assert.Equal(t, "{can_move,can_explore,can_assess}", v.Capabilities)

	a.AssignTask(task)
	assert.False(t, a.HasPlan(), "a new assignment drops the old plan")

	a.ClearTask()
	assert.False(t, a.HasTask())
	assert.Empty(t, a.View().Task)
}
