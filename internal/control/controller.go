// Package control abstracts host input injection (mouse, keyboard, clipboard)
// behind a narrow capability interface so the execution pipeline never touches
// platform APIs directly.
package control

import "errors"

// ErrUnsupported is returned by capabilities the current platform backend
// does not provide.
var ErrUnsupported = errors.New("not supported on this platform")

// Controller is the injection capability set. Implementations may block at
// the OS level; callers serialize per-command dispatch themselves.
type Controller interface {
	// Mouse
	Click(x, y int, button string) error
	DoubleClick(x, y int, button string) error
	MouseDown(x, y int, button string) error
	MouseUp(x, y int, button string) error
	MoveTo(x, y int) error
	MoveRelative(dx, dy int) error
	Scroll(amount, x, y int) error
	HScroll(amount, x, y int) error

	// Keyboard
	KeyDown(key string) error
	KeyUp(key string) error
	Press(key string) error
	Hotkey(keys ...string) error
	TypeText(text string) error

	// Screen
	ScreenSize() (width, height int)

	// Clipboard and selection
	ClipboardRead() (string, error)
	ClipboardWrite(text string) error
	CopySelection() error
	PasteSelection() error

	// Translation of clipboard text; resolved by an external service when
	// one is configured
	Translate(text, toLanguage string) (string, error)

	// System volume keys
	VolumeUp() error
	VolumeDown() error
}
