package models

// Player represents a player inside a room. A player belongs to exactly
// one room at a time; joining creates the entry, disconnect or explicit
// leave removes it.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CharacterID *int   `json:"characterId,omitempty"`
	IsReady     bool   `json:"isReady"`
}
