package app

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vk/tandemgrid/internal/backend"
	"github.com/vk/tandemgrid/internal/manifest"
)

// AppConfig holds all the necessary configuration for an App instance to run.
type AppConfig struct {
	GridPath        string
	HealthcheckPort int
	LogFormat       string
	LogLevel        string
	ReportFormat    string

	// Scheduler knobs; grid file settings blocks override these.
	MaxConcurrency int
	TaskTimeout    time.Duration
	DefaultPolicy  string
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *backend.Registry
	loader   *manifest.Loader
	config   *AppConfig
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and backend registry.
// When no backends are supplied, the built-in set is registered. A registry
// conflict is a programmer error and panics.
func NewApp(outW io.Writer, appConfig *AppConfig, backends ...backend.Backend) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	if len(backends) == 0 {
		backends = coreBackends()
	}
	reg := backend.NewRegistry()
	for _, b := range backends {
		if err := reg.Register(b); err != nil {
			panic(fmt.Errorf("failed to register backend: %w", err))
		}
	}
	logger.Debug("Backends registered.", "count", reg.Len())

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		loader:   manifest.NewLoader(),
		config:   appConfig,
	}
}

// Registry returns the application's backend registry. Primarily for testing.
func (a *App) Registry() *backend.Registry {
	return a.registry
}
