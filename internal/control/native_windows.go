//go:build windows

package control

import (
	"fmt"
	"runtime"
	"strings"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows implementation of the Controller using SendInput and the Win32
// clipboard API.

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseeventfMove      = 0x0001
	mouseeventfLeftDown  = 0x0002
	mouseeventfLeftUp    = 0x0004
	mouseeventfRightDown = 0x0008
	mouseeventfRightUp   = 0x0010
	mouseeventfMidDown   = 0x0020
	mouseeventfMidUp     = 0x0040
	mouseeventfWheel     = 0x0800
	mouseeventfHWheel    = 0x1000

	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004

	wheelDelta = 120

	smCxScreen = 0
	smCyScreen = 1

	cfUnicodeText = 13
	gmemMoveable  = 0x0002
)

var (
	user32   = syscall.NewLazyDLL("user32.dll")
	kernel32 = syscall.NewLazyDLL("kernel32.dll")

	procSendInput        = user32.NewProc("SendInput")
	procSetCursorPos     = user32.NewProc("SetCursorPos")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
	procOpenClipboard    = user32.NewProc("OpenClipboard")
	procCloseClipboard   = user32.NewProc("CloseClipboard")
	procEmptyClipboard   = user32.NewProc("EmptyClipboard")
	procGetClipboardData = user32.NewProc("GetClipboardData")
	procSetClipboardData = user32.NewProc("SetClipboardData")
	procGlobalAlloc      = kernel32.NewProc("GlobalAlloc")
	procGlobalLock       = kernel32.NewProc("GlobalLock")
	procGlobalUnlock     = kernel32.NewProc("GlobalUnlock")
)

// INPUT layouts for 64-bit Windows. The union member is 8-aligned, so the
// struct is padded to 40 bytes for both variants.
type mouseInput struct {
	dx          int32
	dy          int32
	mouseData   uint32
	dwFlags     uint32
	time        uint32
	_           [4]byte
	dwExtraInfo uintptr
}

type mInput struct {
	inputType uint32
	_         [4]byte
	mi        mouseInput
}

type keybdInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	_           [4]byte
	dwExtraInfo uintptr
	_           [8]byte
}

type kInput struct {
	inputType uint32
	_         [4]byte
	ki        keybdInput
}

// virtual-key codes for the key names the wire protocol uses
var vkeys = map[string]uint16{
	"space": 0x20, "enter": 0x0D, "return": 0x0D, "tab": 0x09,
	"esc": 0x1B, "escape": 0x1B, "backspace": 0x08, "delete": 0x2E,
	"ctrl": 0x11, "alt": 0x12, "shift": 0x10, "cmd": 0x5B, "win": 0x5B,
	"up": 0x26, "down": 0x28, "left": 0x25, "right": 0x27,
	"home": 0x24, "end": 0x23, "pageup": 0x21, "pagedown": 0x22,
	"volumeup": 0xAF, "volumedown": 0xAE, "volumemute": 0xAD,
}

func vkeyFor(key string) (uint16, error) {
	key = strings.ToLower(key)
	if vk, ok := vkeys[key]; ok {
		return vk, nil
	}
	if len(key) == 1 {
		c := key[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint16(c-'a') + 0x41, nil
		case c >= '0' && c <= '9':
			return uint16(c-'0') + 0x30, nil
		}
	}
	if len(key) >= 2 && key[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(key, "f%d", &n); err == nil && n >= 1 && n <= 12 {
			return uint16(0x70 + n - 1), nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", key)
}

type winController struct {
	keymap Keymap
}

// New creates the native Windows controller.
func New() Controller {
	return &winController{keymap: KeymapFor(runtime.GOOS)}
}

func sendMouse(flags uint32, dx, dy int32, data uint32) error {
	in := mInput{
		inputType: inputMouse,
		mi:        mouseInput{dx: dx, dy: dy, mouseData: data, dwFlags: flags},
	}
	n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if n == 0 {
		return fmt.Errorf("SendInput(mouse): %w", err)
	}
	return nil
}

func sendKey(vk uint16, scan uint16, flags uint32) error {
	in := kInput{
		inputType: inputKeyboard,
		ki:        keybdInput{wVk: vk, wScan: scan, dwFlags: flags},
	}
	n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if n == 0 {
		return fmt.Errorf("SendInput(key): %w", err)
	}
	return nil
}

func buttonFlags(button string) (down, up uint32, err error) {
	switch button {
	case "left", "":
		return mouseeventfLeftDown, mouseeventfLeftUp, nil
	case "right":
		return mouseeventfRightDown, mouseeventfRightUp, nil
	case "middle":
		return mouseeventfMidDown, mouseeventfMidUp, nil
	default:
		return 0, 0, fmt.Errorf("unknown mouse button %q", button)
	}
}

func (c *winController) MoveTo(x, y int) error {
	r, _, err := procSetCursorPos.Call(uintptr(x), uintptr(y))
	if r == 0 {
		return fmt.Errorf("SetCursorPos: %w", err)
	}
	return nil
}

func (c *winController) MoveRelative(dx, dy int) error {
	return sendMouse(mouseeventfMove, int32(dx), int32(dy), 0)
}

func (c *winController) Click(x, y int, button string) error {
	down, up, err := buttonFlags(button)
	if err != nil {
		return err
	}
	if err := c.MoveTo(x, y); err != nil {
		return err
	}
	if err := sendMouse(down, 0, 0, 0); err != nil {
		return err
	}
	return sendMouse(up, 0, 0, 0)
}

func (c *winController) DoubleClick(x, y int, button string) error {
	if err := c.Click(x, y, button); err != nil {
		return err
	}
	return c.Click(x, y, button)
}

func (c *winController) MouseDown(x, y int, button string) error {
	down, _, err := buttonFlags(button)
	if err != nil {
		return err
	}
	if err := c.MoveTo(x, y); err != nil {
		return err
	}
	return sendMouse(down, 0, 0, 0)
}

func (c *winController) MouseUp(x, y int, button string) error {
	_, up, err := buttonFlags(button)
	if err != nil {
		return err
	}
	if err := c.MoveTo(x, y); err != nil {
		return err
	}
	return sendMouse(up, 0, 0, 0)
}

func (c *winController) Scroll(amount, x, y int) error {
	if err := c.MoveTo(x, y); err != nil {
		return err
	}
	return sendMouse(mouseeventfWheel, 0, 0, uint32(int32(amount*wheelDelta)))
}

func (c *winController) HScroll(amount, x, y int) error {
	if err := c.MoveTo(x, y); err != nil {
		return err
	}
	return sendMouse(mouseeventfHWheel, 0, 0, uint32(int32(amount*wheelDelta)))
}

func (c *winController) KeyDown(key string) error {
	vk, err := vkeyFor(key)
	if err != nil {
		return err
	}
	return sendKey(vk, 0, 0)
}

func (c *winController) KeyUp(key string) error {
	vk, err := vkeyFor(key)
	if err != nil {
		return err
	}
	return sendKey(vk, 0, keyeventfKeyUp)
}

func (c *winController) Press(key string) error {
	if err := c.KeyDown(key); err != nil {
		return err
	}
	return c.KeyUp(key)
}

func (c *winController) Hotkey(keys ...string) error {
	for _, k := range keys {
		if err := c.KeyDown(k); err != nil {
			return err
		}
	}
	// release in reverse order
	for i := len(keys) - 1; i >= 0; i-- {
		if err := c.KeyUp(keys[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *winController) TypeText(text string) error {
	for _, u := range windows.StringToUTF16(text) {
		if u == 0 {
			break
		}
		if err := sendKey(0, u, keyeventfUnicode); err != nil {
			return err
		}
		if err := sendKey(0, u, keyeventfUnicode|keyeventfKeyUp); err != nil {
			return err
		}
	}
	return nil
}

func (c *winController) ScreenSize() (int, int) {
	w, _, _ := procGetSystemMetrics.Call(smCxScreen)
	h, _, _ := procGetSystemMetrics.Call(smCyScreen)
	if w == 0 || h == 0 {
		return 1920, 1080
	}
	return int(w), int(h)
}

// openClipboard retries briefly since another process may hold the clipboard.
func openClipboard() error {
	for attempt := 0; attempt < 5; attempt++ {
		if r, _, _ := procOpenClipboard.Call(0); r != 0 {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("failed to open clipboard")
}

func (c *winController) ClipboardRead() (string, error) {
	if err := openClipboard(); err != nil {
		return "", err
	}
	defer procCloseClipboard.Call()

	h, _, _ := procGetClipboardData.Call(cfUnicodeText)
	if h == 0 {
		// empty clipboard or no text format present
		return "", nil
	}
	ptr, _, _ := procGlobalLock.Call(h)
	if ptr == 0 {
		return "", fmt.Errorf("GlobalLock failed")
	}
	defer procGlobalUnlock.Call(h)

	return windows.UTF16PtrToString((*uint16)(unsafe.Pointer(ptr))), nil
}

func (c *winController) ClipboardWrite(text string) error {
	u16, err := windows.UTF16FromString(text)
	if err != nil {
		return err
	}

	if err := openClipboard(); err != nil {
		return err
	}
	defer procCloseClipboard.Call()

	procEmptyClipboard.Call()

	size := uintptr(len(u16) * 2)
	h, _, callErr := procGlobalAlloc.Call(gmemMoveable, size)
	if h == 0 {
		return fmt.Errorf("GlobalAlloc: %w", callErr)
	}
	ptr, _, _ := procGlobalLock.Call(h)
	if ptr == 0 {
		return fmt.Errorf("GlobalLock failed")
	}
	dst := unsafe.Slice((*uint16)(unsafe.Pointer(ptr)), len(u16))
	copy(dst, u16)
	procGlobalUnlock.Call(h)

	if r, _, callErr := procSetClipboardData.Call(cfUnicodeText, h); r == 0 {
		return fmt.Errorf("SetClipboardData: %w", callErr)
	}
	return nil
}

func (c *winController) CopySelection() error {
	return c.Hotkey(c.keymap.CopyCombo()...)
}

func (c *winController) PasteSelection() error {
	return c.Hotkey(c.keymap.PasteCombo()...)
}

func (c *winController) Translate(text, toLanguage string) (string, error) {
	// No translation service wired on the native backend.
	return "", ErrUnsupported
}

func (c *winController) VolumeUp() error {
	return c.Press("volumeup")
}

func (c *winController) VolumeDown() error {
	return c.Press("volumedown")
}
