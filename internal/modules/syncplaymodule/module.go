package syncplaymodule

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/modulemanager"
	"github.com/kinetra/kinetra/internal/modules/playbackmodule"
	"gorm.io/gorm"
)

// Module owns group session membership: joining a group binds the playback
// manager to the group controller and starts clock synchronization; leaving
// restores local playback.
type Module struct {
	id      string
	name    string
	version string

	logger  hclog.Logger
	manager *playbackmodule.Manager
	bus     *events.Bus

	transport *Transport
	timeSync  *TimeSync
	adapter   *Adapter
	groupID   string
}

// Register creates the syncplay module and adds it to the module registry.
func Register(logger hclog.Logger, manager *playbackmodule.Manager) *Module {
	m := &Module{
		id:      "system.syncplay",
		name:    "SyncPlay",
		version: "1.0.0",
		logger:  logger.Named("syncplay"),
		manager: manager,
		bus:     events.NewBus("syncplay"),
	}
	modulemanager.Register(m)
	return m
}

func (m *Module) ID() string   { return m.id }
func (m *Module) Name() string { return m.name }
func (m *Module) Core() bool   { return false }

func (m *Module) Migrate(*gorm.DB) error { return nil }

func (m *Module) Init() error {
	m.logger.Info("syncplay module initialized", "version", m.version)
	return nil
}

// Events exposes sync update events (offset, ping, failures).
func (m *Module) Events() *events.Bus { return m.bus }

// JoinGroup connects to a group coordinator, binds the playback manager to
// the group and starts clock synchronization.
func (m *Module) JoinGroup(ctx context.Context, groupID, coordinatorURL string) error {
	if m.groupID != "" {
		m.LeaveGroup()
	}

	transport := NewTransport(m.logger, coordinatorURL)
	controller := newWireController(m.logger, m.manager, transport)
	transport.SetDirectiveHandler(func(cmd groupCommand) {
		if err := controller.ApplyCommand(context.Background(), cmd); err != nil {
			m.logger.Warn("group directive failed", "command", cmd.Command, "error", err)
		}
	})
	if err := transport.Connect(ctx); err != nil {
		return err
	}

	m.transport = transport
	m.timeSync = NewTimeSync(m.logger, transport.Ping, m.bus)
	m.adapter = NewAdapter(m.logger, m.manager, controller)

	m.adapter.BindToPlayer()
	m.timeSync.Start()
	m.groupID = groupID
	m.logger.Info("joined sync group", "group", groupID)
	return nil
}

// LeaveGroup unbinds the playback manager and stops synchronization. Safe
// when not in a group.
func (m *Module) LeaveGroup() {
	if m.groupID == "" {
		return
	}
	m.adapter.UnbindFromPlayer()
	m.timeSync.Stop()
	_ = m.transport.Close()
	m.logger.Info("left sync group", "group", m.groupID)
	m.groupID = ""
	m.adapter = nil
	m.timeSync = nil
	m.transport = nil
}

// TimeSync returns the active estimator, nil when not in a group.
func (m *Module) TimeSync() *TimeSync { return m.timeSync }

// GroupID returns the joined group, empty when not in a group.
func (m *Module) GroupID() string { return m.groupID }

// RegisterRoutes exposes the sync group control API.
func (m *Module) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/syncplay")
	{
		group.GET("/status", m.handleStatus)
		group.POST("/join", m.handleJoin)
		group.POST("/leave", m.handleLeave)
	}
}

func (m *Module) handleStatus(c *gin.Context) {
	resp := gin.H{"groupId": m.groupID, "synced": false}
	if m.timeSync != nil {
		resp["synced"] = true
		resp["timeOffsetMs"] = m.timeSync.GetTimeOffset().Milliseconds()
		resp["pingMs"] = m.timeSync.GetPing().Milliseconds()
	}
	c.JSON(http.StatusOK, resp)
}

type joinRequest struct {
	GroupID        string `json:"groupId" binding:"required"`
	CoordinatorURL string `json:"coordinatorUrl" binding:"required"`
}

func (m *Module) handleJoin(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := m.JoinGroup(c.Request.Context(), req.GroupID, req.CoordinatorURL); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groupId": req.GroupID})
}

func (m *Module) handleLeave(c *gin.Context) {
	m.LeaveGroup()
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// wireController relays commands and notifications over the coordinator
// connection and applies group decisions through the manager's local
// surface.
type wireController struct {
	logger    hclog.Logger
	manager   *playbackmodule.Manager
	transport *Transport
}

func newWireController(logger hclog.Logger, manager *playbackmodule.Manager, transport *Transport) *wireController {
	return &wireController{
		logger:    logger.Named("group-controller"),
		manager:   manager,
		transport: transport,
	}
}

type groupCommand struct {
	Type          string `json:"type"`
	Command       string `json:"command"`
	ItemID        string `json:"itemId,omitempty"`
	PositionTicks int64  `json:"positionTicks,omitempty"`
}

func (w *wireController) send(cmd groupCommand) {
	if err := w.transport.Send(cmd); err != nil {
		w.logger.Warn("failed to send group command", "command", cmd.Command, "error", err)
	}
}

func (w *wireController) RequestPlay(_ context.Context, opts *media.PlayOptions) error {
	itemID := ""
	if opts.Item != nil {
		itemID = opts.Item.ID
	}
	w.send(groupCommand{Type: "request", Command: "play", ItemID: itemID, PositionTicks: opts.StartPositionTicks})
	return nil
}

func (w *wireController) RequestPause() {
	w.send(groupCommand{Type: "request", Command: "pause"})
}

func (w *wireController) RequestUnpause() {
	w.send(groupCommand{Type: "request", Command: "unpause"})
}

func (w *wireController) RequestSeek(ticks int64) error {
	w.send(groupCommand{Type: "request", Command: "seek", PositionTicks: ticks})
	return nil
}

func (w *wireController) RequestStop(_ context.Context) error {
	w.send(groupCommand{Type: "request", Command: "stop"})
	return nil
}

func (w *wireController) OnLocalPlaybackStart(itemID string) {
	w.send(groupCommand{Type: "report", Command: "playing", ItemID: itemID})
}

func (w *wireController) OnLocalPause(positionTicks int64) {
	w.send(groupCommand{Type: "report", Command: "paused", PositionTicks: positionTicks})
}

func (w *wireController) OnLocalUnpause(positionTicks int64) {
	w.send(groupCommand{Type: "report", Command: "unpaused", PositionTicks: positionTicks})
}

func (w *wireController) OnLocalStop() {
	w.send(groupCommand{Type: "report", Command: "stopped"})
}

// ApplyCommand executes a coordinator directive on the local player. Group
// decisions bypass the sink indirection: they land on the manager's local
// surface directly.
func (w *wireController) ApplyCommand(ctx context.Context, cmd groupCommand) error {
	switch cmd.Command {
	case "pause":
		w.manager.LocalPause()
	case "unpause":
		w.manager.LocalUnpause()
	case "seek":
		return w.manager.LocalSeek(cmd.PositionTicks)
	case "stop":
		return w.manager.LocalStop(ctx)
	default:
		w.logger.Warn("unknown group directive", "command", cmd.Command)
	}
	return nil
}
