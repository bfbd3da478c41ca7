package watchmodule

import (
	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/modules/modulemanager"
	"gorm.io/gorm"
)

// Module wires the still-watching monitor into the module system.
type Module struct {
	id      string
	name    string
	version string

	logger  hclog.Logger
	monitor *Monitor
	source  *events.Bus
}

// Register creates the watch module, attached to the given playback event
// bus, and adds it to the module registry.
func Register(logger hclog.Logger, source *events.Bus, thresholds Thresholds) *Module {
	m := &Module{
		id:      "system.watch",
		name:    "Still Watching Monitor",
		version: "1.0.0",
		logger:  logger,
		monitor: NewMonitor(logger, thresholds),
		source:  source,
	}
	modulemanager.Register(m)
	return m
}

func (m *Module) ID() string   { return m.id }
func (m *Module) Name() string { return m.name }
func (m *Module) Core() bool   { return false }

func (m *Module) Migrate(*gorm.DB) error { return nil }

func (m *Module) Init() error {
	m.monitor.Attach(m.source)
	m.logger.Info("watch module initialized", "version", m.version)
	return nil
}

// Monitor exposes the accumulator, mainly for the control API and tests.
func (m *Module) Monitor() *Monitor { return m.monitor }
