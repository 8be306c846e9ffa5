package telemetry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

type recordingSink struct{ events []Event }

func (r *recordingSink) Emit(_ context.Context, ev Event) { r.events = append(r.events, ev) }

func TestMulti(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := Multi{a, nil, b}

	m.Emit(context.Background(), Event{Type: EventShortcutCheck})
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)

	assert.Equal(t, Nop{}, OrNop(nil))
	assert.Same(t, a, OrNop(a))
	Nop{}.Emit(context.Background(), Event{})
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := NewLogSink(zap.New(core))
	ctx := context.Background()

	selected := uuid.New()
	sink.Emit(ctx, Event{Type: EventTaskUtilities, Payload: TaskUtilities{
		Agent:     "a1",
		Selected:  selected,
		Utilities: []TaskUtility{{TaskID: selected, Utility: 1.5}},
	}})
	sink.Emit(ctx, Event{Type: EventMissionView, Payload: MissionView{
		Tick:  9,
		Final: true,
		Graph: sgraph.Snapshot{Nodes: make([]sgraph.NodeSnapshot, 2)},
	}})
	sink.Emit(ctx, Event{Type: "custom", Payload: 42})

	require.Equal(t, 3, logs.Len())
	util := logs.FilterMessage("Task utilities").All()
	require.Len(t, util, 1)
	assert.Equal(t, "telemetry", util[0].LoggerName)
	assert.Equal(t, 1.5, util[0].ContextMap()[selected.String()])

	view := logs.FilterMessage("Mission view").All()
	require.Len(t, view, 1)
	assert.Equal(t, zap.InfoLevel, view[0].Level, "final views are logged at info")
	assert.Equal(t, int64(2), view[0].ContextMap()["nodes"])
}
