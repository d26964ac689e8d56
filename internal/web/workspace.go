package web

import (
	"context"
	"log/slog"
	"sync"

	"halfframe/internal/batch"
	"halfframe/internal/config"
	"halfframe/internal/registry"
)

// Workspace is the per-session state: imported pairs, the two batch
// controllers and the files of the latest export.
type Workspace struct {
	Registry *registry.Registry
	Importer *batch.Importer
	Exporter *batch.Exporter

	mu        sync.RWMutex
	downloads *batch.MemorySink

	// background batches outlive the request that started them
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorkspace(cfg *config.Config, logger *slog.Logger) *Workspace {
	reg := registry.New()
	obs := batch.LogObserver{Logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Workspace{
		Registry: reg,
		Importer: &batch.Importer{
			Splitter:  cfg.Splitter(),
			Registry:  reg,
			GroupSize: cfg.Import.GroupSize,
			Hold:      cfg.ImportHold(),
			Observer:  obs,
		},
		Exporter: &batch.Exporter{
			Registry: reg,
			Encoder:  cfg.Encoder(),
			Pause:    cfg.ExportPause(),
			Hold:     cfg.ExportHold(),
			Observer: obs,
		},
		downloads: &batch.MemorySink{},
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Downloads returns the files of the latest export.
func (ws *Workspace) Downloads() *batch.MemorySink {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.downloads
}

func (ws *Workspace) setDownloads(s *batch.MemorySink) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.downloads = s
}

// Close stops any running batch. The workspace must not be used after.
func (ws *Workspace) Close() {
	ws.Importer.Cancel()
	ws.Exporter.Cancel()
	ws.cancel()
}
