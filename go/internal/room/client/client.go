package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bolsagame/bolsa/go/internal/room/events"
)

// Client connects a projection to a room over WebSocket. The read
// subscription is scoped to the client: Dial acquires it, Close
// releases it on every path. On each (re)connect the client re-issues
// checkRoomStatus instead of trusting whatever incremental events it
// may have missed.
type Client struct {
	projection *Projection
	baseURL    string
	roomID     string
	userID     string

	mu   sync.Mutex
	conn *websocket.Conn

	done chan struct{}
	wg   sync.WaitGroup
}

// Dial connects to the room gateway, starts the event subscription and
// requests the initial snapshot.
func Dial(ctx context.Context, baseURL, roomID, userID string, projection *Projection) (*Client, error) {
	c := &Client{
		projection: projection,
		baseURL:    baseURL,
		roomID:     roomID,
		userID:     userID,
		done:       make(chan struct{}),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse gateway url: %w", err)
	}
	u.Path = "/ws/room"
	q := u.Query()
	q.Set("room_id", c.roomID)
	q.Set("user_id", c.userID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial room gateway: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop(conn)

	// Ground truth first; everything after is incremental.
	if err := c.CheckRoomStatus(); err != nil {
		return err
	}
	return nil
}

// Reconnect re-dials the gateway and re-requests the full snapshot.
// The previous subscription, if any, is released first.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	return c.connect(ctx)
}

// readLoop folds server events into the projection until the
// connection drops or the client closes.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Warn().Err(err).Str("room_id", c.roomID).Msg("room subscription dropped")
			}
			return
		}

		var event events.RoomEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Warn().Err(err).Msg("discarding malformed server event")
			continue
		}
		if err := c.projection.Apply(&event); err != nil {
			log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("failed to apply server event")
			continue
		}

		// Ground truth arrives in two parts: roomStatus carries the
		// roster and mode, roundState carries the phase and live timer.
		// Chain the second request off the first reply, otherwise a
		// reconnect after the countdown finished would never learn the
		// game is already playing.
		if event.Type == events.EventTypeRoomStatus && c.projection.Snapshot().InRoom {
			if err := c.RequestRoundState(); err != nil {
				log.Warn().Err(err).Str("room_id", c.roomID).Msg("failed to request round state")
			}
		}
	}
}

// CheckRoomStatus requests the full resync snapshot.
func (c *Client) CheckRoomStatus() error {
	return c.send(events.CommandCheckRoomStatus)
}

// RequestRoundState requests the authoritative round status and timer.
func (c *Client) RequestRoundState() error {
	return c.send(events.CommandRequestRoundState)
}

// StartSinglePlayerGame issues the explicit single-player start.
func (c *Client) StartSinglePlayerGame() error {
	return c.send(events.CommandStartSinglePlayerGame)
}

func (c *Client) send(cmd events.CommandType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("send %s: not connected", cmd)
	}
	if err := c.conn.WriteJSON(events.ClientCommand{Type: cmd}); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	return nil
}

// Close releases the subscription and the connection.
func (c *Client) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
	c.wg.Wait()
	return nil
}
