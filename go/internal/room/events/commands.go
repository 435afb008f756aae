package events

// CommandType represents a client-to-server command issued over the
// room socket. None of the commands carry a payload.
type CommandType string

const (
	CommandCheckRoomStatus       CommandType = "checkRoomStatus"
	CommandRequestRoundState     CommandType = "requestRoundState"
	CommandStartSinglePlayerGame CommandType = "startSinglePlayerGame"
)

// ClientCommand is the envelope for client commands.
type ClientCommand struct {
	Type CommandType `json:"type"`
}
