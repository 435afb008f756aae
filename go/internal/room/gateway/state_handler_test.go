package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bolsagame/bolsa/go/internal/models"
	"github.com/bolsagame/bolsa/go/internal/room"
	"github.com/bolsagame/bolsa/go/internal/room/bus"
)

func newStateServer(t *testing.T) (*room.Registry, *httptest.Server) {
	t.Helper()

	loopback := bus.NewLoopback()
	registry := room.NewRegistry(room.DefaultConfig(), loopback, nil, nil)
	t.Cleanup(registry.Close)

	mux := http.NewServeMux()
	NewStateHandler(registry).RegisterStateRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return registry, server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeSnapshot(t *testing.T, resp *http.Response) room.Snapshot {
	t.Helper()
	var snap room.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func TestCreateAndJoinRoomOverHTTP(t *testing.T) {
	_, server := newStateServer(t)

	resp := postJSON(t, server.URL+"/api/rooms", map[string]any{
		"roomId":   "room-1",
		"playMode": "multi",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	snap := decodeSnapshot(t, resp)
	if snap.Status != models.RoomStatusWaiting {
		t.Errorf("status = %s, want waiting", snap.Status)
	}

	resp = postJSON(t, server.URL+"/api/rooms/room-1/join", map[string]any{
		"player": map[string]any{"id": "p1", "name": "Ana"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d, want 200", resp.StatusCode)
	}
	snap = decodeSnapshot(t, resp)
	if len(snap.Players) != 1 {
		t.Errorf("players = %d, want 1", len(snap.Players))
	}
}

func TestCreateDuplicateRoomConflicts(t *testing.T) {
	_, server := newStateServer(t)

	create := map[string]any{"roomId": "room-1", "playMode": "single"}
	if resp := postJSON(t, server.URL+"/api/rooms", create); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	if resp := postJSON(t, server.URL+"/api/rooms", create); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate create status = %d, want 409", resp.StatusCode)
	}
}

func TestJoinFullRoomConflicts(t *testing.T) {
	registry, server := newStateServer(t)
	ctx := t.Context()

	for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		if _, err := registry.Join(ctx, "room-1", models.Player{ID: id}); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	resp := postJSON(t, server.URL+"/api/rooms/room-1/join", map[string]any{
		"player": map[string]any{"id": "p6"},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("sixth join status = %d, want 409", resp.StatusCode)
	}
}

func TestGetRoomStateNotFound(t *testing.T) {
	_, server := newStateServer(t)

	resp, err := http.Get(server.URL + "/api/rooms/missing/state")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSetPlayModeLockedOverHTTP(t *testing.T) {
	registry, server := newStateServer(t)

	if _, err := registry.Join(t.Context(), "room-1", models.Player{ID: "p1"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	resp := postJSON(t, server.URL+"/api/rooms/room-1/mode", map[string]any{"playMode": "single"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("mode change status = %d, want 409", resp.StatusCode)
	}
}
