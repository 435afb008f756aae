package room

import "errors"

// Registry errors are recoverable at the registry boundary and surface
// to the originating client only; they are never broadcast and never
// crash the process.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomExists     = errors.New("room already exists")
	ErrRoomFull       = errors.New("room is full")
	ErrInvalidMode    = errors.New("play mode does not allow another player")
	ErrModeLocked     = errors.New("play mode is locked after the first join")
	ErrAlreadyJoined  = errors.New("player already joined a room")
	ErrNotInRoom      = errors.New("player is not in a room")
	ErrInvalidCommand = errors.New("command not valid for current room state")
)
