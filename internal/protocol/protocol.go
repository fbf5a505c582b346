// Package protocol defines the wire format shared by all gesture transports
// and the decoded command type consumed by the execution pipeline.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType discriminates envelope payloads.
type MessageType string

const (
	// TypeGestureCommand is the only message type the server acts on.
	// Envelopes with any other type are ignored.
	TypeGestureCommand MessageType = "gesture_command"
)

// Action identifies what a gesture command should do on the host.
type Action string

const (
	ActionClick         Action = "click"
	ActionDoubleClick   Action = "double_click"
	ActionDragStart     Action = "drag_start"
	ActionDragEnd       Action = "drag_end"
	ActionScroll        Action = "scroll"
	ActionZoom          Action = "zoom"
	ActionMove          Action = "move"
	ActionMoveRelative  Action = "move_relative"
	ActionKeyPress      Action = "key_press"
	ActionKeyCombo      Action = "key_combo"
	ActionTypeText      Action = "type_text"
	ActionWave          Action = "wave"
	ActionCopy          Action = "copy"
	ActionPaste         Action = "paste"
	ActionTranslate     Action = "translate"
	ActionVolumeControl Action = "volume_control"
)

// Envelope is the JSON container every transport carries:
//
//	{"id": "...", "type": "gesture_command", "timestamp": 1234.5,
//	 "payload": {"action": "move", "position": [0.5, 0.5], "metadata": {...}}}
type Envelope struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Timestamp *float64    `json:"timestamp,omitempty"`
	Payload   Payload     `json:"payload"`
}

// Payload is the action-specific body of a gesture command.
type Payload struct {
	Action   string         `json:"action"`
	Position []float64      `json:"position,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Error reply bodies for reply-capable transports. The invalid-command reply
// echoes the client-supplied id (or null) alongside the message.
const (
	ErrMsgInvalidJSON    = "Invalid JSON format"
	ErrMsgInvalidCommand = "Invalid command format"
)

// ErrInvalidJSON marks bytes that are not a JSON envelope at all.
var ErrInvalidJSON = errors.New("invalid JSON format")

// InvalidCommandError marks an envelope that parsed but is not a usable
// gesture command (missing id or action). It keeps whatever id was present so
// error replies can echo it.
type InvalidCommandError struct {
	ID     string
	Reason string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("invalid command format: %s", e.Reason)
}

// Command is one decoded gesture event, immutable after decoding and consumed
// exactly once by the execution worker.
type Command struct {
	ID        string
	Action    Action
	PosX      float64 // normalized [0,1], never trusted
	PosY      float64
	Timestamp float64 // producer-supplied seconds
	Meta      Metadata

	// Received anchors the decode-to-dispatch-complete latency measurement.
	Received time.Time
}

// Decode parses and validates one transport payload.
//
// Returns (nil, nil) for well-formed envelopes of an unrecognized type: those
// are ignored, not errors. Malformed JSON yields ErrInvalidJSON; a gesture
// envelope missing its id or action yields *InvalidCommandError.
func Decode(data []byte, now time.Time) (*Command, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrInvalidJSON
	}

	if env.Type != TypeGestureCommand {
		return nil, nil
	}

	if env.ID == "" {
		return nil, &InvalidCommandError{Reason: "missing id"}
	}
	if env.Payload.Action == "" {
		return nil, &InvalidCommandError{ID: env.ID, Reason: "missing action"}
	}

	var posX, posY float64
	switch len(env.Payload.Position) {
	case 0:
		// position is optional for keyboard/clipboard actions
	case 2:
		posX, posY = env.Payload.Position[0], env.Payload.Position[1]
	default:
		return nil, &InvalidCommandError{ID: env.ID, Reason: "position must be a pair"}
	}

	ts := float64(now.UnixNano()) / float64(time.Second)
	if env.Timestamp != nil {
		ts = *env.Timestamp
	}

	return &Command{
		ID:        env.ID,
		Action:    Action(env.Payload.Action),
		PosX:      posX,
		PosY:      posY,
		Timestamp: ts,
		Meta:      Metadata(env.Payload.Metadata),
		Received:  now,
	}, nil
}
