package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bolsagame/bolsa/go/internal/models"
	"github.com/bolsagame/bolsa/go/internal/room"
	"github.com/bolsagame/bolsa/go/internal/room/bus"
	"github.com/bolsagame/bolsa/go/internal/room/events"
)

type testGateway struct {
	registry *room.Registry
	server   *httptest.Server
}

func newTestGateway(t *testing.T, cfg room.Config) *testGateway {
	t.Helper()

	loopback := bus.NewLoopback()
	registry := room.NewRegistry(cfg, loopback, nil, nil)
	t.Cleanup(registry.Close)

	service, err := NewService(DefaultConfig(), registry)
	if err != nil {
		t.Fatalf("create gateway: %v", err)
	}
	loopback.Bind(service.Sink())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go service.connectionManager.Start(ctx)

	mux := http.NewServeMux()
	service.RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testGateway{registry: registry, server: server}
}

func (g *testGateway) dial(t *testing.T, roomID, userID string) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(g.server.URL, "http", "ws", 1) +
		"/ws/room?room_id=" + roomID + "&user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *events.RoomEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev events.RoomEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return &ev
}

// readUntil reads events until one of the wanted type arrives,
// returning the types seen along the way.
func readUntil(t *testing.T, conn *websocket.Conn, want events.EventType) (*events.RoomEvent, []events.EventType) {
	t.Helper()
	var seen []events.EventType
	for i := 0; i < 20; i++ {
		ev := readEvent(t, conn)
		seen = append(seen, ev.Type)
		if ev.Type == want {
			return ev, seen
		}
	}
	t.Fatalf("never received %s, saw %v", want, seen)
	return nil, nil
}

func sendCommand(t *testing.T, conn *websocket.Conn, cmd events.CommandType) {
	t.Helper()
	if err := conn.WriteJSON(events.ClientCommand{Type: cmd}); err != nil {
		t.Fatalf("send %s: %v", cmd, err)
	}
}

func TestCheckRoomStatusResync(t *testing.T) {
	g := newTestGateway(t, room.DefaultConfig())
	ctx := context.Background()

	if _, err := g.registry.Join(ctx, "room-1", models.Player{ID: "p1", Name: "Ana"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	conn := g.dial(t, "room-1", "p1")
	sendCommand(t, conn, events.CommandCheckRoomStatus)

	ev, _ := readUntil(t, conn, events.EventTypeRoomStatus)
	payload, err := events.ParsePayload(ev)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	status := payload.(events.RoomStatusPayload)
	if !status.InRoom {
		t.Fatal("inRoom = false for a joined player")
	}
	if status.PlayMode == nil || *status.PlayMode != models.PlayModeMulti {
		t.Error("play mode missing from resync reply")
	}
	if len(status.PlayersList) != 1 || status.PlayersList[0].ID != "p1" {
		t.Errorf("players list = %+v, want [p1]", status.PlayersList)
	}
}

func TestCheckRoomStatusForUnknownPlayer(t *testing.T) {
	g := newTestGateway(t, room.DefaultConfig())

	conn := g.dial(t, "room-1", "ghost")
	sendCommand(t, conn, events.CommandCheckRoomStatus)

	ev, _ := readUntil(t, conn, events.EventTypeRoomStatus)
	payload, _ := events.ParsePayload(ev)
	if payload.(events.RoomStatusPayload).InRoom {
		t.Fatal("inRoom = true for a player with no room")
	}
}

func TestJoinBroadcastReachesConnectedPlayers(t *testing.T) {
	g := newTestGateway(t, room.DefaultConfig())
	ctx := context.Background()

	if _, err := g.registry.Join(ctx, "room-1", models.Player{ID: "p1"}); err != nil {
		t.Fatalf("join p1: %v", err)
	}
	conn := g.dial(t, "room-1", "p1")

	if _, err := g.registry.Join(ctx, "room-1", models.Player{ID: "p2"}); err != nil {
		t.Fatalf("join p2: %v", err)
	}

	ev, _ := readUntil(t, conn, events.EventTypePlayerJoined)
	payload, err := events.ParsePayload(ev)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	joined := payload.(events.PlayerJoinedPayload)
	if len(joined.Players) != 2 {
		t.Errorf("roster = %d players, want 2", len(joined.Players))
	}
	if joined.PlayMode == nil {
		t.Error("playerJoined missing play mode")
	}
}

func TestFullRoomRunsCountdownToGameStarted(t *testing.T) {
	cfg := room.DefaultConfig()
	cfg.MultiCapacity = 2
	cfg.CountdownSeconds = 1
	cfg.ReadyDelaySeconds = 0
	g := newTestGateway(t, cfg)
	ctx := context.Background()

	if _, err := g.registry.Join(ctx, "room-1", models.Player{ID: "p1"}); err != nil {
		t.Fatalf("join p1: %v", err)
	}
	conn := g.dial(t, "room-1", "p1")

	if _, err := g.registry.Join(ctx, "room-1", models.Player{ID: "p2"}); err != nil {
		t.Fatalf("join p2: %v", err)
	}

	_, seen := readUntil(t, conn, events.EventTypeGameStarted)

	var sawCountdown bool
	for _, typ := range seen {
		if typ == events.EventTypeGameStartCountdown {
			sawCountdown = true
		}
	}
	if !sawCountdown {
		t.Errorf("no countdown before gameStarted, saw %v", seen)
	}
}

func TestRejectedStartRepliesWithRoundState(t *testing.T) {
	g := newTestGateway(t, room.DefaultConfig())
	ctx := context.Background()

	// Multi room: the explicit start command is never valid here.
	if _, err := g.registry.Join(ctx, "room-1", models.Player{ID: "p1"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	conn := g.dial(t, "room-1", "p1")

	sendCommand(t, conn, events.CommandStartSinglePlayerGame)

	ev, _ := readUntil(t, conn, events.EventTypeRoundState)
	payload, _ := events.ParsePayload(ev)
	state := payload.(events.RoundStatePayload)
	if state.Status != models.RoomStatusWaiting {
		t.Errorf("status = %s, want waiting", state.Status)
	}
	if state.Timer != nil {
		t.Error("timer set outside starting")
	}
}

func TestRequestRoundStateWhileStarting(t *testing.T) {
	cfg := room.DefaultConfig()
	cfg.CountdownSeconds = 30
	g := newTestGateway(t, cfg)
	ctx := context.Background()

	if _, err := g.registry.CreateRoom(ctx, "room-1", models.PlayModeSingle); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := g.registry.Join(ctx, "room-1", models.Player{ID: "p1"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := g.registry.StartSinglePlayer(ctx, "room-1", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	conn := g.dial(t, "room-1", "p1")
	sendCommand(t, conn, events.CommandRequestRoundState)

	ev, _ := readUntil(t, conn, events.EventTypeRoundState)
	payload, _ := events.ParsePayload(ev)
	state := payload.(events.RoundStatePayload)
	if state.Status != models.RoomStatusStarting {
		t.Fatalf("status = %s, want starting", state.Status)
	}
	if state.Timer == nil || *state.Timer <= 0 {
		t.Error("starting round state missing live timer")
	}
}

func TestUpgradeRequiresIdentity(t *testing.T) {
	g := newTestGateway(t, room.DefaultConfig())

	resp, err := http.Get(g.server.URL + "/ws/room?room_id=room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status without user_id = %d, want 400", resp.StatusCode)
	}
}
