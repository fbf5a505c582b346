//go:build !windows

package control

// Stub backend for platforms without a native implementation. The server
// still runs (transports, queue, worker), every injection call just reports
// ErrUnsupported.

type stubController struct{}

// New creates the stub controller.
func New() Controller {
	return &stubController{}
}

func (c *stubController) Click(x, y int, button string) error       { return ErrUnsupported }
func (c *stubController) DoubleClick(x, y int, button string) error { return ErrUnsupported }
func (c *stubController) MouseDown(x, y int, button string) error   { return ErrUnsupported }
func (c *stubController) MouseUp(x, y int, button string) error     { return ErrUnsupported }
func (c *stubController) MoveTo(x, y int) error                     { return ErrUnsupported }
func (c *stubController) MoveRelative(dx, dy int) error             { return ErrUnsupported }
func (c *stubController) Scroll(amount, x, y int) error             { return ErrUnsupported }
func (c *stubController) HScroll(amount, x, y int) error            { return ErrUnsupported }
func (c *stubController) KeyDown(key string) error                  { return ErrUnsupported }
func (c *stubController) KeyUp(key string) error                    { return ErrUnsupported }
func (c *stubController) Press(key string) error                    { return ErrUnsupported }
func (c *stubController) Hotkey(keys ...string) error               { return ErrUnsupported }
func (c *stubController) TypeText(text string) error                { return ErrUnsupported }

// ScreenSize reports a nominal 1920x1080 so coordinate math stays sane in
// headless environments.
func (c *stubController) ScreenSize() (int, int) { return 1920, 1080 }

func (c *stubController) ClipboardRead() (string, error)  { return "", ErrUnsupported }
func (c *stubController) ClipboardWrite(text string) error { return ErrUnsupported }
func (c *stubController) CopySelection() error             { return ErrUnsupported }
func (c *stubController) PasteSelection() error            { return ErrUnsupported }
func (c *stubController) Translate(text, toLanguage string) (string, error) {
	return "", ErrUnsupported
}
func (c *stubController) VolumeUp() error   { return ErrUnsupported }
func (c *stubController) VolumeDown() error { return ErrUnsupported }
