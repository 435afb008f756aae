package gateway

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bolsagame/bolsa/go/internal/room/events"
)

// A broadcast racing a disconnect must drop the frame for the closing
// connection instead of panicking on its closed send channel.
func TestBroadcastDuringUnregister(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())

	ev, err := events.New("room-1", events.EventTypePlayersUpdate, events.PlayersUpdatePayload{})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}

	for i := 0; i < 50; i++ {
		conn := &Connection{
			ID:      fmt.Sprintf("conn-%d", i),
			UserID:  "p1",
			RoomID:  "room-1",
			Send:    make(chan []byte, 256),
			Manager: cm,
		}
		cm.registerConnection(conn)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				cm.handleBroadcast(BroadcastMessage{RoomID: "room-1", Event: ev})
			}
		}()
		go func() {
			defer wg.Done()
			cm.unregisterConnection(conn)
		}()
		wg.Wait()
	}

	if total, _ := cm.GetConnectionStats(); total != 0 {
		t.Errorf("connections left registered = %d, want 0", total)
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	conn := &Connection{
		ID:      "conn-1",
		UserID:  "p1",
		RoomID:  "room-1",
		Send:    make(chan []byte, 1),
		Manager: cm,
	}
	cm.registerConnection(conn)

	// Read and write pumps both unregister on teardown.
	cm.unregisterConnection(conn)
	cm.unregisterConnection(conn)

	if sent, open := conn.trySend([]byte("{}")); sent || open {
		t.Errorf("closed connection accepted a frame: sent=%v open=%v", sent, open)
	}
}
