package platform

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/geometry"
	"github.com/xkilldash9x/sgexplore/internal/localgrid"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

const corridor = `
name: corridor
bounds: {min_x: -5, min_y: -5, max_x: 5, max_y: 5}
obstacles:
  - {min_x: 1, min_y: -5, max_x: 2, max_y: 1}
world_objects:
  - {kind: unknown_victim, x: 0, y: 3}
  - {kind: door, x: 4, y: 0}
sensor_range: 4
arrival_margin: 0.2
agents:
  - id: a1
    x: 0
    y: 0
    capabilities: [can_move, can_explore, can_assess]
`

func newWorld(t *testing.T, src string) *World {
	t.Helper()
	s, err := ParseScenario(strings.NewReader(src))
	require.NoError(t, err)
	grid := config.GridConfig{CellCount: 21, CellSize: 0.5}
	w, err := NewWorld(s, grid, localgrid.BelowThreshold{Threshold: localgrid.DefaultThreshold}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return w
}

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario(strings.NewReader(corridor))
	require.NoError(t, err)
	assert.Equal(t, "corridor", s.Name)
	require.Len(t, s.Agents, 1)
	caps, err := s.Agents[0].CapabilitySet()
	require.NoError(t, err)
	assert.Equal(t, sgraph.AllCapabilities(), caps)
	assert.Equal(t, geometry.Pt(0, 0), s.Agents[0].Start())
}

func TestParseScenario_Rejects(t *testing.T) {
	cases := map[string]struct {
		mutate func(string) string
		want   string
	}{
		"unknown key": {
			mutate: func(s string) string { return s + "gravity: 9.8\n" },
			want:   "gravity",
		},
		"bad object kind": {
			mutate: func(s string) string { return strings.Replace(s, "kind: door", "kind: dragon", 1) },
			want:   "unknown node kind",
		},
		"waypoint as object": {
			mutate: func(s string) string { return strings.Replace(s, "kind: door", "kind: waypoint", 1) },
			want:   "not a world object",
		},
		"bad capability": {
			mutate: func(s string) string { return strings.Replace(s, "can_assess", "can_fly", 1) },
			want:   "unknown capability",
		},
		"start outside bounds": {
			mutate: func(s string) string { return strings.Replace(s, "    x: 0\n", "    x: 9\n", 1) },
			want:   "outside the bounds",
		},
		"inverted obstacle": {
			mutate: func(s string) string { return strings.Replace(s, "max_x: 2", "max_x: 0", 1) },
			want:   "gtfield",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScenario(strings.NewReader(tc.mutate(corridor)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/worlds/corridor.yaml", []byte(corridor), 0o644))

	s, err := LoadScenario(fs, "/worlds/corridor.yaml")
	require.NoError(t, err)
	assert.Len(t, s.WorldObjects, 2)

	_, err = LoadScenario(fs, "/worlds/missing.yaml")
	assert.Error(t, err)
}

func TestSimDriver_Motion(t *testing.T) {
	w := newWorld(t, corridor)
	d, err := w.Driver("a1")
	require.NoError(t, err)
	ctx := context.Background()

	arrived, err := d.MoveTo(ctx, geometry.Pt(0, 2), 1.5)
	require.NoError(t, err)
	assert.True(t, arrived)
	pos, heading, err := d.Localization(ctx)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pt(0, 2), pos)
	assert.Equal(t, 1.5, heading)

	// The wall spans x in [1,2] below y=1; driving through it stops short.
	_, err = d.MoveTo(ctx, geometry.Pt(0, 0), 0)
	require.NoError(t, err)
	arrived, err = d.MoveTo(ctx, geometry.Pt(4, 0), 0)
	require.NoError(t, err)
	assert.False(t, arrived)
	pos, _, _ = d.Localization(ctx)
	assert.Less(t, pos.X, 1.0)
	assert.InDelta(t, 1.0, pos.X, 0.06)

	_, err = w.Driver("ghost")
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = d.MoveTo(cancelled, geometry.Pt(0, 1), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimDriver_LocalGridImage(t *testing.T) {
	w := newWorld(t, corridor)
	d, err := w.Driver("a1")
	require.NoError(t, err)

	img, err := d.LocalGridImage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 21, img.Bounds().Dx())

	test := localgrid.BelowThreshold{Threshold: localgrid.DefaultThreshold}
	grid := localgrid.New(geometry.Pt(0, 0), img, 21, 0.5, test, nil)
	assert.False(t, grid.IsObstacle(grid.Center()))
	assert.True(t, grid.IsObstacle(grid.WorldToCell(geometry.Pt(1.5, 0))), "obstacle cell")
	assert.False(t, grid.IsObstacle(grid.WorldToCell(geometry.Pt(-1.5, 0))))

	free, hit := grid.CollisionFreeLine(grid.Center(), grid.WorldToCell(geometry.Pt(4, 0)))
	assert.False(t, free)
	assert.InDelta(t, 1.0, hit.X, 1e-9)
	free, _ = grid.CollisionFreeLine(grid.Center(), grid.WorldToCell(geometry.Pt(0, 4)))
	assert.True(t, free)
}

func TestSimDriver_LocalGridImage_OutOfBounds(t *testing.T) {
	w := newWorld(t, corridor)
	d, err := w.Driver("a1")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = d.MoveTo(ctx, geometry.Pt(-4, 0), 0)
	require.NoError(t, err)

	img, err := d.LocalGridImage(ctx)
	require.NoError(t, err)
	grid := localgrid.New(geometry.Pt(-4, 0), img, 21, 0.5, localgrid.BelowThreshold{Threshold: localgrid.DefaultThreshold}, nil)
	assert.True(t, grid.IsObstacle(grid.WorldToCell(geometry.Pt(-5.5, 0))), "outside the bounds")
	assert.False(t, grid.IsObstacle(grid.WorldToCell(geometry.Pt(-4.5, 0))))
}

func TestSimDriver_LookForWorldObjects(t *testing.T) {
	w := newWorld(t, corridor)
	d, err := w.Driver("a1")
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := d.LookForWorldObjects(ctx)
	require.NoError(t, err)
	// The door is in range but behind the wall.
	require.Len(t, seen, 1)
	assert.Equal(t, sgraph.KindUnknownVictim, seen[0].Kind)

	for _, p := range []geometry.Point{geometry.Pt(0, 2), geometry.Pt(3, 2)} {
		arrived, err := d.MoveTo(ctx, p, 0)
		require.NoError(t, err)
		require.True(t, arrived)
	}
	seen, err = d.LookForWorldObjects(ctx)
	require.NoError(t, err)
	kinds := make([]sgraph.NodeKind, 0, len(seen))
	for _, s := range seen {
		kinds = append(kinds, s.Kind)
	}
	assert.ElementsMatch(t, []sgraph.NodeKind{sgraph.KindUnknownVictim, sgraph.KindDoor}, kinds)
}
