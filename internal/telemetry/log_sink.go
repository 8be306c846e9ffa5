package telemetry

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes events to a zap logger. Mission views are summarised, not dumped.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging under "telemetry".
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("telemetry")}
}

func (s *LogSink) Emit(_ context.Context, ev Event) {
	switch p := ev.Payload.(type) {
	case TaskUtilities:
		fields := []zap.Field{zap.String("agent", p.Agent), zap.Stringer("selected", p.Selected)}
		for _, u := range p.Utilities {
			fields = append(fields, zap.Float64(u.TaskID.String(), u.Utility))
		}
		s.logger.Debug("Task utilities", fields...)
	case FrontierSamples:
		s.logger.Debug("Frontier samples",
			zap.String("agent", p.Agent),
			zap.String("sampler", p.Sampler),
			zap.Stringer("origin", p.Origin),
			zap.Int("accepted", len(p.Accepted)),
			zap.Int("collisions", len(p.Collisions)),
			zap.Bool("exhausted", p.Exhausted),
		)
	case ShortcutCheck:
		added := 0
		for _, c := range p.Candidates {
			if c.Added {
				added++
			}
		}
		s.logger.Debug("Shortcut check",
			zap.String("agent", p.Agent),
			zap.Stringer("from", p.From),
			zap.Int("candidates", len(p.Candidates)),
			zap.Int("added", added),
		)
	case MissionView:
		level := zap.DebugLevel
		if p.Final {
			level = zap.InfoLevel
		}
		s.logger.Check(level, "Mission view").Write(
			zap.Stringer("mission", p.MissionID),
			zap.Int("tick", p.Tick),
			zap.Bool("final", p.Final),
			zap.Int("nodes", len(p.Graph.Nodes)),
			zap.Int("edges", len(p.Graph.Edges)),
			zap.Int("tasks", len(p.Graph.Tasks)),
		)
	default:
		s.logger.Debug("Event", zap.String("type", string(ev.Type)), zap.Any("payload", ev.Payload))
	}
}
