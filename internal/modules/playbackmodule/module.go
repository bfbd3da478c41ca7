package playbackmodule

import (
	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/modules/modulemanager"
	"github.com/kinetra/kinetra/internal/modules/playermodule"
	"gorm.io/gorm"
)

// Module wires the playback manager into the module system.
type Module struct {
	id      string
	name    string
	version string
	core    bool

	logger  hclog.Logger
	manager *Manager
}

// Register creates the playback module and adds it to the module registry.
// Dependencies are injected by the caller; nothing is resolved from globals.
func Register(logger hclog.Logger, client ServerClient, reg *playermodule.Registry, store HistoryStore) *Module {
	m := &Module{
		id:      "system.playback",
		name:    "Playback Manager",
		version: "1.0.0",
		core:    true,
		logger:  logger,
		manager: NewManager(logger, client, reg, store),
	}
	modulemanager.Register(m)
	return m
}

func (m *Module) ID() string   { return m.id }
func (m *Module) Name() string { return m.name }
func (m *Module) Core() bool   { return m.core }

// Migrate: playback state lives in the player plugins; nothing to migrate.
func (m *Module) Migrate(*gorm.DB) error { return nil }

func (m *Module) Init() error {
	m.logger.Info("playback module initialized", "version", m.version)
	return nil
}

// Manager exposes the playback manager to other modules (sync, watch).
func (m *Module) Manager() *Manager { return m.manager }
