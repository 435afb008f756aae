package models

import "testing"

func TestPlayModeCapacity(t *testing.T) {
	if got := PlayModeSingle.Capacity(5); got != 1 {
		t.Errorf("single capacity = %d, want 1", got)
	}
	if got := PlayModeMulti.Capacity(5); got != 5 {
		t.Errorf("multi capacity = %d, want 5", got)
	}
}

func TestPlayModeValid(t *testing.T) {
	if !PlayModeSingle.Valid() || !PlayModeMulti.Valid() {
		t.Error("known modes reported invalid")
	}
	if PlayMode("coop").Valid() {
		t.Error("unknown mode reported valid")
	}
}
