package ws

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"bridgewalk/internal/bridge"
	"bridgewalk/internal/sequence"
	"bridgewalk/internal/session"
)

// Adapter is the websocket boundary: clients stream tracked body
// positions in and receive bridge layouts, tracker events and state
// updates back. It doubles as the session's PositionProvider and
// Teleporter so the locomotion side stays fully external.
type Adapter struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	session *session.Session
	manager *sequence.Manager

	handlers map[string]func(*SafeWriter, map[string]interface{}) error

	clientsMu sync.Mutex
	clients   map[*SafeWriter]bool

	posMu    sync.RWMutex
	pos      mgl64.Vec3
	posKnown bool
}

// NewAdapter creates the adapter. manager may be nil when no sequence is
// configured.
func NewAdapter(sess *session.Session, manager *sequence.Manager, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.Default()
	}
	a := &Adapter{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:   logger,
		session:  sess,
		manager:  manager,
		handlers: make(map[string]func(*SafeWriter, map[string]interface{}) error),
		clients:  make(map[*SafeWriter]bool),
	}
	a.registerHandlers()
	return a
}

// SetManager late-binds the sequence manager; the manager itself needs
// the adapter as an event receiver at construction time.
func (a *Adapter) SetManager(manager *sequence.Manager) {
	a.manager = manager
}

// Position implements session.PositionProvider with the latest sample a
// client reported.
func (a *Adapter) Position() (mgl64.Vec3, bool) {
	a.posMu.RLock()
	defer a.posMu.RUnlock()
	return a.pos, a.posKnown
}

// TeleportTo implements session.Teleporter: the move request goes out to
// the clients, and the locally cached position jumps immediately so the
// tracker does not see a stale sample.
func (a *Adapter) TeleportTo(pos mgl64.Vec3) {
	a.posMu.Lock()
	a.pos = pos
	a.posKnown = true
	a.posMu.Unlock()

	a.broadcast(map[string]interface{}{
		"type": "teleport",
		"x":    pos.X(),
		"y":    pos.Y(),
		"z":    pos.Z(),
	})
}

func (a *Adapter) registerHandlers() {
	a.handlers["ping"] = func(conn *SafeWriter, message map[string]interface{}) error {
		clientTime, _ := message["client_time"].(float64)
		return conn.SendJSON(map[string]interface{}{
			"type":        "pong",
			"client_time": clientTime,
			"server_time": float64(time.Now().UnixMilli()),
		})
	}

	// One tracked body position sample per frame from the client.
	a.handlers["position"] = func(conn *SafeWriter, message map[string]interface{}) error {
		x, ok1 := message["x"].(float64)
		y, ok2 := message["y"].(float64)
		z, ok3 := message["z"].(float64)
		if !ok1 || !ok2 || !ok3 {
			return fmt.Errorf("malformed position sample: %v", message)
		}

		a.posMu.Lock()
		a.pos = mgl64.Vec3{x, y, z}
		a.posKnown = true
		a.posMu.Unlock()
		return nil
	}

	a.handlers["teleport"] = func(conn *SafeWriter, message map[string]interface{}) error {
		a.session.TeleportPlayerToStart()
		return nil
	}

	a.handlers["advance"] = func(conn *SafeWriter, message map[string]interface{}) error {
		if a.manager == nil {
			return fmt.Errorf("no sequence configured")
		}
		a.manager.AdvanceToNextBridge()
		return nil
	}

	a.handlers["restart"] = func(conn *SafeWriter, message map[string]interface{}) error {
		if a.manager == nil {
			return fmt.Errorf("no sequence configured")
		}
		a.manager.RestartSequence()
		return nil
	}

	a.handlers["state"] = func(conn *SafeWriter, message map[string]interface{}) error {
		return conn.SendJSON(a.stateMessage())
	}
}

// HandleWS upgrades the connection and serves its message loop.
func (a *Adapter) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Printf("[WS] upgrade failed: %v", err)
		return
	}

	writer := NewSafeWriter(conn)

	a.clientsMu.Lock()
	a.clients[writer] = true
	a.clientsMu.Unlock()

	defer func() {
		a.clientsMu.Lock()
		delete(a.clients, writer)
		a.clientsMu.Unlock()
		conn.Close()
	}()

	// New clients get the current layout and state straight away.
	if data := a.session.Bridge(); data != nil {
		if err := writer.SendJSON(a.layoutMessage(data)); err != nil {
			a.logger.Printf("[WS] sending layout: %v", err)
		}
	}
	if err := writer.SendJSON(a.stateMessage()); err != nil {
		a.logger.Printf("[WS] sending state: %v", err)
	}

	for {
		var message map[string]interface{}
		if err := conn.ReadJSON(&message); err != nil {
			a.logger.Printf("[WS] client disconnected: %v", err)
			return
		}

		messageType, ok := message["type"].(string)
		if !ok {
			a.logger.Printf("[WS] message without type: %v", message)
			continue
		}

		handler, ok := a.handlers[messageType]
		if !ok {
			a.logger.Printf("[WS] no handler for message type %q", messageType)
			continue
		}
		if err := handler(writer, message); err != nil {
			a.logger.Printf("[WS] handling %q: %v", messageType, err)
		}
	}
}

func (a *Adapter) broadcast(msg map[string]interface{}) {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()
	for client := range a.clients {
		if err := client.SendJSON(msg); err != nil {
			a.logger.Printf("[WS] broadcast failed: %v", err)
		}
	}
}

// BroadcastState pushes the periodic state update to every client.
func (a *Adapter) BroadcastState() {
	a.broadcast(a.stateMessage())
}

func (a *Adapter) stateMessage() map[string]interface{} {
	msg := map[string]interface{}{
		"type":        "state",
		"server_time": float64(time.Now().UnixMilli()),
	}
	if tracker := a.session.Tracker(); tracker != nil {
		msg["progress"] = safeValue(tracker.Progress(), 0)
		msg["speed"] = safeValue(tracker.Speed(), 0)
		msg["balanced"] = tracker.IsBalanced()
	}
	if a.manager != nil {
		msg["bridge_index"] = a.manager.CurrentIndex()
		msg["sequence_completed"] = a.manager.IsCompleted()
	}
	return msg
}

func (a *Adapter) layoutMessage(data *bridge.Data) map[string]interface{} {
	entities := make([]interface{}, 0, len(data.Planks)+len(data.Platforms)+len(data.Anchors))
	appendEntity := func(e *bridge.Entity) {
		if e == nil {
			return
		}
		entities = append(entities, map[string]interface{}{
			"id":   e.ID,
			"kind": e.Kind.String(),
			"x":    safeValue(e.Position.X(), 0),
			"y":    safeValue(e.Position.Y(), 0),
			"z":    safeValue(e.Position.Z(), 0),
		})
	}
	for _, e := range data.Planks {
		appendEntity(e)
	}
	for _, e := range data.Platforms {
		appendEntity(e)
	}
	for _, e := range data.Anchors {
		appendEntity(e)
	}

	return map[string]interface{}{
		"type":         "bridge_layout",
		"plank_count":  len(data.Planks),
		"plank_length": data.Config.PlankLength(),
		"length":       data.Length,
		"entities":     entities,
	}
}

// --- tracker event fan-out ---

// OnBalanceLost implements tracking.Listener.
func (a *Adapter) OnBalanceLost(lateral, longitudinal float64) {
	a.broadcast(map[string]interface{}{
		"type":         "balance_lost",
		"lateral":      safeValue(lateral, 0),
		"longitudinal": safeValue(longitudinal, 0),
	})
}

// OnBalanceRestored implements tracking.Listener.
func (a *Adapter) OnBalanceRestored() {
	a.broadcast(map[string]interface{}{"type": "balance_restored"})
}

// OnBalanceFailure implements tracking.Listener.
func (a *Adapter) OnBalanceFailure() {
	a.broadcast(map[string]interface{}{"type": "failure"})
}

// OnProgressChanged implements tracking.Listener.
func (a *Adapter) OnProgressChanged(progress, speed float64) {
	a.broadcast(map[string]interface{}{
		"type":     "progress",
		"progress": safeValue(progress, 0),
		"speed":    safeValue(speed, 0),
	})
}

// OnMilestoneReached implements tracking.Listener.
func (a *Adapter) OnMilestoneReached(index int, fraction float64) {
	a.broadcast(map[string]interface{}{
		"type":     "milestone",
		"index":    index,
		"fraction": fraction,
	})
}

// OnCrossingStarted implements tracking.Listener.
func (a *Adapter) OnCrossingStarted() {
	a.broadcast(map[string]interface{}{"type": "crossing_started"})
}

// OnCrossingCompleted implements tracking.Listener.
func (a *Adapter) OnCrossingCompleted() {
	a.broadcast(map[string]interface{}{"type": "crossing_completed"})
}

// --- sequence event fan-out ---

// OnBridgeLoaded implements sequence.Events: every client gets the fresh
// layout after a rebuild.
func (a *Adapter) OnBridgeLoaded(index int, cfg bridge.Config) {
	msg := map[string]interface{}{
		"type":  "bridge_loaded",
		"index": index,
	}
	if data := a.session.Bridge(); data != nil {
		msg["layout"] = a.layoutMessage(data)
	}
	a.broadcast(msg)
}

// OnSequenceCompleted implements sequence.Events.
func (a *Adapter) OnSequenceCompleted() {
	a.broadcast(map[string]interface{}{"type": "sequence_completed"})
}
