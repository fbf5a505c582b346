package protocol

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeValidCommand(t *testing.T) {
	data := []byte(`{
		"id": "abc-123",
		"type": "gesture_command",
		"timestamp": 1234.5,
		"payload": {
			"action": "move",
			"position": [0.5, 0.25],
			"metadata": {"button": "right"}
		}
	}`)

	now := time.Now()
	cmd, err := Decode(data, now)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cmd.ID != "abc-123" {
		t.Errorf("Expected id abc-123, got %s", cmd.ID)
	}
	if cmd.Action != ActionMove {
		t.Errorf("Expected action move, got %s", cmd.Action)
	}
	if cmd.PosX != 0.5 || cmd.PosY != 0.25 {
		t.Errorf("Expected position (0.5, 0.25), got (%v, %v)", cmd.PosX, cmd.PosY)
	}
	if cmd.Timestamp != 1234.5 {
		t.Errorf("Expected timestamp 1234.5, got %v", cmd.Timestamp)
	}
	if cmd.Meta.Button() != "right" {
		t.Errorf("Expected button right, got %s", cmd.Meta.Button())
	}
	if !cmd.Received.Equal(now) {
		t.Errorf("Expected received time %v, got %v", now, cmd.Received)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	for _, data := range []string{"not json at all", "{truncated", ""} {
		_, err := Decode([]byte(data), time.Now())
		if !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("Expected ErrInvalidJSON for %q, got %v", data, err)
		}
	}
}

func TestDecodeUnknownTypeIgnored(t *testing.T) {
	data := []byte(`{"id": "x", "type": "heartbeat", "payload": {"action": "move"}}`)

	cmd, err := Decode(data, time.Now())
	if err != nil {
		t.Fatalf("Unknown type should not error, got %v", err)
	}
	if cmd != nil {
		t.Errorf("Unknown type should yield no command, got %+v", cmd)
	}
}

func TestDecodeMissingID(t *testing.T) {
	data := []byte(`{"type": "gesture_command", "payload": {"action": "move"}}`)

	_, err := Decode(data, time.Now())
	var invalid *InvalidCommandError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidCommandError, got %v", err)
	}
	if invalid.ID != "" {
		t.Errorf("Expected empty id in error, got %s", invalid.ID)
	}
}

func TestDecodeMissingActionEchoesID(t *testing.T) {
	data := []byte(`{"id": "echo-me", "type": "gesture_command", "payload": {}}`)

	_, err := Decode(data, time.Now())
	var invalid *InvalidCommandError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidCommandError, got %v", err)
	}
	if invalid.ID != "echo-me" {
		t.Errorf("Expected echoed id echo-me, got %s", invalid.ID)
	}
}

func TestDecodeBadPositionLength(t *testing.T) {
	data := []byte(`{"id": "x", "type": "gesture_command",
		"payload": {"action": "move", "position": [0.5]}}`)

	_, err := Decode(data, time.Now())
	var invalid *InvalidCommandError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidCommandError for one-element position, got %v", err)
	}
}

func TestDecodePositionOptional(t *testing.T) {
	data := []byte(`{"id": "x", "type": "gesture_command",
		"payload": {"action": "key_press", "metadata": {"key": "enter"}}}`)

	cmd, err := Decode(data, time.Now())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cmd.PosX != 0 || cmd.PosY != 0 {
		t.Errorf("Expected zero position, got (%v, %v)", cmd.PosX, cmd.PosY)
	}
	if cmd.Meta.Key() != "enter" {
		t.Errorf("Expected key enter, got %s", cmd.Meta.Key())
	}
}

func TestDecodeTimestampDefaultsToNow(t *testing.T) {
	data := []byte(`{"id": "x", "type": "gesture_command", "payload": {"action": "move"}}`)

	now := time.Now()
	cmd, err := Decode(data, now)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := float64(now.UnixNano()) / float64(time.Second)
	if cmd.Timestamp != want {
		t.Errorf("Expected server-side timestamp %v, got %v", want, cmd.Timestamp)
	}
}

func TestMetadataDefaults(t *testing.T) {
	var m Metadata

	if m.Button() != "left" {
		t.Errorf("Expected default button left, got %s", m.Button())
	}
	if m.Amount() != 3 {
		t.Errorf("Expected default amount 3, got %d", m.Amount())
	}
	if m.Factor() != 1.0 {
		t.Errorf("Expected default factor 1.0, got %v", m.Factor())
	}
	if m.Key() != "space" {
		t.Errorf("Expected default key space, got %s", m.Key())
	}
	if m.Direction("up") != "up" {
		t.Errorf("Expected given default direction up, got %s", m.Direction("up"))
	}
	if m.Text() != "" {
		t.Errorf("Expected empty text, got %s", m.Text())
	}
	if dx, dy := m.Delta(); dx != 0 || dy != 0 {
		t.Errorf("Expected zero delta, got (%d, %d)", dx, dy)
	}
	if keys := m.Keys(); keys != nil {
		t.Errorf("Expected nil keys, got %v", keys)
	}
}

func TestMetadataKeysSkipsNonStrings(t *testing.T) {
	m := Metadata{"keys": []any{"ctrl", 42.0, "c"}}

	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "ctrl" || keys[1] != "c" {
		t.Errorf("Expected [ctrl c], got %v", keys)
	}
}
