package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bolsagame/bolsa/go/internal/room/events"
)

// CommandHandler receives client commands parsed off a room socket.
type CommandHandler interface {
	HandleCommand(ctx context.Context, conn *Connection, cmd events.ClientCommand)
}

// ConnectionManager manages WebSocket connections for room events.
type ConnectionManager struct {
	// Connection pools organized by room ID
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	// Event broadcasting
	broadcastCh chan BroadcastMessage

	// Command routing; set before any connection is accepted
	commandHandler CommandHandler
}

// Connection represents a WebSocket connection to a client.
type Connection struct {
	ID      string
	UserID  string
	RoomID  string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time

	// Guards Send against the unregister/broadcast race: a frame queued
	// while the reader side tears the connection down must be dropped,
	// not sent on a closed channel.
	sendMu sync.Mutex
	closed bool
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to connections.
type BroadcastMessage struct {
	RoomID string
	Event  *events.RoomEvent
	UserID string // Optional: if set, only send to this user
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// SetCommandHandler wires the router that receives client commands.
func (cm *ConnectionManager) SetCommandHandler(h CommandHandler) {
	cm.commandHandler = h
}

// Start begins processing broadcast messages.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// Deliver enqueues a registry event for fan-out. Implements the bus
// sink; the gateway does not distinguish loopback from JetStream here.
func (cm *ConnectionManager) Deliver(event *events.RoomEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomID: event.RoomID, Event: event, UserID: event.TargetUserID}:
	default:
		log.Warn().Str("room_id", event.RoomID).Msg("broadcast channel full, dropping message")
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID, roomID string) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		RoomID:      roomID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("room_id", roomID).
		Msg("WebSocket connection established")

	return connection, nil
}

// registerConnection adds a connection to the manager.
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.roomConnections[conn.RoomID] == nil {
		cm.roomConnections[conn.RoomID] = make(map[*Connection]bool)
	}
	cm.roomConnections[conn.RoomID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_id", conn.RoomID).
		Int("total_connections", len(cm.roomConnections[conn.RoomID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager. Closing a
// socket does not remove the player from the room; membership outlives
// the connection so a reconnecting client can resync.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.roomConnections[conn.RoomID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			conn.closeSend()

			if len(connections) == 0 {
				delete(cm.roomConnections, conn.RoomID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Str("room_id", conn.RoomID).
				Msg("connection unregistered")
		}
	}
}

// closeSend closes the outbound queue exactly once.
func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// trySend queues one frame. sent reports delivery; open reports whether
// the connection still accepts frames at all.
func (c *Connection) trySend(data []byte) (sent, open bool) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false, false
	}
	select {
	case c.Send <- data:
		return true, true
	default:
		return false, true
	}
}

// SendToConnection marshals an event and queues it on one connection.
// This is the reply path for snapshot requests.
func (cm *ConnectionManager) SendToConnection(conn *Connection, event *events.RoomEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for connection")
		return
	}
	sent, open := conn.trySend(data)
	if sent || !open {
		// Already-closed connections are unregistered by whoever
		// closed them.
		return
	}
	log.Warn().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Msg("connection send buffer full, closing connection")
	cm.unregisterConnection(conn)
	conn.Conn.Close()
}

// handleBroadcast processes a broadcast message.
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.roomConnections[message.RoomID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Snapshot of connections so the lock is not held while writing
	var targetConnections []*Connection
	for conn := range connections {
		if message.UserID != "" && conn.UserID != message.UserID {
			continue
		}
		targetConnections = append(targetConnections, conn)
	}
	cm.mu.RUnlock()

	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targetConnections {
		sent, open := conn.trySend(eventData)
		if sent || !open {
			continue
		}
		// Connection is slow/dead, close it
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("room_id", message.RoomID).
		Int("connections", len(targetConnections)).
		Msg("event broadcasted")
}

// GetConnectionStats returns statistics about active connections.
func (cm *ConnectionManager) GetConnectionStats() (totalConnections, activeRooms int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, connections := range cm.roomConnections {
		totalConnections += len(connections)
	}
	return totalConnections, len(cm.roomConnections)
}

// writePump handles sending messages to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage parses a client command and routes it.
func (c *Connection) handleClientMessage(message []byte) {
	var cmd events.ClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Str("user_id", c.UserID).
			Msg("discarding malformed client message")
		return
	}

	if c.Manager.commandHandler == nil {
		log.Warn().Str("connection_id", c.ID).Msg("no command handler registered")
		return
	}

	log.Debug().
		Str("connection_id", c.ID).
		Str("user_id", c.UserID).
		Str("command", string(cmd.Type)).
		Msg("received client command")

	c.Manager.commandHandler.HandleCommand(context.Background(), c, cmd)
}
