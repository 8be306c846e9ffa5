package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/telemetry"
)

// FileRecorder writes each mission view as a JSON document under
// <dir>/<mission id>/, one file per tick plus final.json.
type FileRecorder struct {
	fs  afero.Fs
	dir string
	log *zap.Logger
}

var _ Recorder = (*FileRecorder)(nil)

// NewFileRecorder creates a recorder rooted at dir on fs. A leading ~ is expanded.
func NewFileRecorder(fs afero.Fs, dir string, logger *zap.Logger) (*FileRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("expanding snapshot dir: %w", err)
	}
	if err := fs.MkdirAll(expanded, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	return &FileRecorder{fs: fs, dir: expanded, log: logger.Named("store.file")}, nil
}

// Path is where the view for tick of mission lands.
func (r *FileRecorder) Path(view telemetry.MissionView) string {
	name := fmt.Sprintf("tick-%06d.json", view.Tick)
	if view.Final {
		name = "final.json"
	}
	return filepath.Join(r.dir, view.MissionID.String(), name)
}

func (r *FileRecorder) Record(ctx context.Context, view telemetry.MissionView) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding mission view: %w", err)
	}
	path := r.Path(view)
	if err := r.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating mission dir: %w", err)
	}
	if err := afero.WriteFile(r.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	r.log.Debug("Wrote mission view", zap.String("path", path))
	return nil
}

func (r *FileRecorder) Close() error { return nil }
