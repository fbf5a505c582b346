package gesture

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gestured/internal/config"
	"gestured/internal/protocol"
)

// call records one injection invocation on the fake controller.
type call struct {
	name   string
	x, y   int
	amount int
	arg    string
	keys   []string
}

// fakeController records every injection call and can be told to fail
// specific capabilities.
type fakeController struct {
	mu        sync.Mutex
	calls     []call
	fail      map[string]error
	clipboard string
	selection string // what CopySelection places on the clipboard
	translate string // what Translate returns
}

func newFakeController() *fakeController {
	return &fakeController{fail: make(map[string]error)}
}

func (f *fakeController) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.fail[c.name]
}

func (f *fakeController) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeController) Click(x, y int, button string) error {
	return f.record(call{name: "click", x: x, y: y, arg: button})
}
func (f *fakeController) DoubleClick(x, y int, button string) error {
	return f.record(call{name: "double_click", x: x, y: y, arg: button})
}
func (f *fakeController) MouseDown(x, y int, button string) error {
	return f.record(call{name: "mouse_down", x: x, y: y, arg: button})
}
func (f *fakeController) MouseUp(x, y int, button string) error {
	return f.record(call{name: "mouse_up", x: x, y: y, arg: button})
}
func (f *fakeController) MoveTo(x, y int) error {
	return f.record(call{name: "move_to", x: x, y: y})
}
func (f *fakeController) MoveRelative(dx, dy int) error {
	return f.record(call{name: "move_relative", x: dx, y: dy})
}
func (f *fakeController) Scroll(amount, x, y int) error {
	return f.record(call{name: "scroll", x: x, y: y, amount: amount})
}
func (f *fakeController) HScroll(amount, x, y int) error {
	return f.record(call{name: "hscroll", x: x, y: y, amount: amount})
}
func (f *fakeController) KeyDown(key string) error {
	return f.record(call{name: "key_down", arg: key})
}
func (f *fakeController) KeyUp(key string) error {
	return f.record(call{name: "key_up", arg: key})
}
func (f *fakeController) Press(key string) error {
	return f.record(call{name: "press", arg: key})
}
func (f *fakeController) Hotkey(keys ...string) error {
	return f.record(call{name: "hotkey", keys: keys})
}
func (f *fakeController) TypeText(text string) error {
	return f.record(call{name: "type_text", arg: text})
}
func (f *fakeController) ScreenSize() (int, int) { return 1920, 1080 }
func (f *fakeController) ClipboardRead() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clipboard, f.fail["clipboard_read"]
}
func (f *fakeController) ClipboardWrite(text string) error {
	err := f.record(call{name: "clipboard_write", arg: text})
	if err == nil {
		f.mu.Lock()
		f.clipboard = text
		f.mu.Unlock()
	}
	return err
}
func (f *fakeController) CopySelection() error {
	err := f.record(call{name: "copy_selection"})
	if err == nil {
		f.mu.Lock()
		if f.selection != "" {
			f.clipboard = f.selection
		}
		f.mu.Unlock()
	}
	return err
}
func (f *fakeController) PasteSelection() error {
	return f.record(call{name: "paste_selection"})
}
func (f *fakeController) Translate(text, toLanguage string) (string, error) {
	err := f.record(call{name: "translate", arg: text})
	return f.translate, err
}
func (f *fakeController) VolumeUp() error   { return f.record(call{name: "volume_up"}) }
func (f *fakeController) VolumeDown() error { return f.record(call{name: "volume_down"}) }

// newTestExecutor builds an executor with smoothing and prediction off unless
// mutate changes that.
func newTestExecutor(t *testing.T, fake *fakeController, mutate func(*config.Config)) (*Executor, *Monitor) {
	t.Helper()

	cfgMgr := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	err := cfgMgr.Update(func(c *config.Config) {
		c.Performance.GestureSmoothing = 0
		c.Performance.EnablePrediction = false
		if mutate != nil {
			mutate(c)
		}
	})
	if err != nil {
		t.Fatalf("failed to build test config: %v", err)
	}

	monitor := NewMonitor()
	return NewExecutor(cfgMgr, fake, monitor), monitor
}

func command(action protocol.Action, x, y float64, meta protocol.Metadata) *protocol.Command {
	return &protocol.Command{
		ID:        "test-cmd",
		Action:    action,
		PosX:      x,
		PosY:      y,
		Timestamp: 1.0,
		Meta:      meta,
		Received:  time.Now(),
	}
}

func TestMoveDispatchesDenormalized(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, nil)

	if err := e.execute(command(protocol.ActionMove, 0.5, 0.5, nil)); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 call, got %d", len(calls))
	}
	if calls[0].name != "move_to" || calls[0].x != 960 || calls[0].y != 540 {
		t.Errorf("Expected move_to(960, 540), got %s(%d, %d)", calls[0].name, calls[0].x, calls[0].y)
	}
}

func TestPositionClamping(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, nil)

	positions := [][2]float64{
		{1.5, -0.2}, {-3.0, 2.0}, {0.0, 1.0}, {100.0, -100.0}, {0.9999, 0.0001},
	}
	for _, pos := range positions {
		if err := e.execute(command(protocol.ActionMove, pos[0], pos[1], nil)); err != nil {
			t.Fatalf("execute failed: %v", err)
		}
	}

	for _, c := range fake.Calls() {
		if c.x < 0 || c.x > 1920 || c.y < 0 || c.y > 1080 {
			t.Errorf("Dispatched coordinate (%d, %d) outside screen bounds", c.x, c.y)
		}
	}
}

func TestSmoothingAppliedToMoves(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, func(c *config.Config) {
		c.Performance.GestureSmoothing = 0.5
	})

	for i := 0; i < 3; i++ {
		if err := e.execute(command(protocol.ActionMove, 0.5, 0.5, nil)); err != nil {
			t.Fatalf("execute failed: %v", err)
		}
	}

	calls := fake.Calls()
	want := [][2]int{{480, 270}, {720, 405}, {840, 472}}
	for i, w := range want {
		if calls[i].x != w[0] || calls[i].y != w[1] {
			t.Errorf("Step %d: expected move_to(%d, %d), got (%d, %d)",
				i+1, w[0], w[1], calls[i].x, calls[i].y)
		}
	}
}

func TestMoveWithPrediction(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, func(c *config.Config) {
		c.Performance.EnablePrediction = true
	})

	first := command(protocol.ActionMove, 0, 0, nil)
	first.Timestamp = 1.0
	second := command(protocol.ActionMove, 0.05, 0, nil)
	second.Timestamp = 1.1

	if err := e.execute(first); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if err := e.execute(second); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	calls := fake.Calls()
	if calls[0].x != 0 || calls[0].y != 0 {
		t.Errorf("First move should be unpredicted, got (%d, %d)", calls[0].x, calls[0].y)
	}
	// 96 px over 100ms -> 960 px/s; 96 + 960*0.020 = 115.2 -> 115
	if calls[1].x != 115 || calls[1].y != 0 {
		t.Errorf("Expected predicted move_to(115, 0), got (%d, %d)", calls[1].x, calls[1].y)
	}
}

func TestDragLifecycleIdempotence(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, nil)

	// drag_end while idle is a no-op
	if err := e.execute(command(protocol.ActionDragEnd, 0.5, 0.5, nil)); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if n := len(fake.Calls()); n != 0 {
		t.Errorf("Expected no calls for drag_end while idle, got %d", n)
	}

	// first drag_start presses, second is a no-op
	e.execute(command(protocol.ActionDragStart, 0.5, 0.5, nil))
	e.execute(command(protocol.ActionDragStart, 0.6, 0.6, nil))
	calls := fake.Calls()
	if len(calls) != 1 || calls[0].name != "mouse_down" {
		t.Fatalf("Expected exactly one mouse_down, got %v", calls)
	}

	// drag_end releases once
	e.execute(command(protocol.ActionDragEnd, 0.7, 0.7, nil))
	e.execute(command(protocol.ActionDragEnd, 0.7, 0.7, nil))
	calls = fake.Calls()
	if len(calls) != 2 || calls[1].name != "mouse_up" {
		t.Fatalf("Expected exactly one mouse_up after drag, got %v", calls)
	}
}

func TestScrollDirections(t *testing.T) {
	cases := []struct {
		meta       protocol.Metadata
		wantName   string
		wantAmount int
	}{
		{protocol.Metadata{"direction": "down", "amount": float64(5)}, "scroll", -5},
		{protocol.Metadata{"direction": "up", "amount": float64(2)}, "scroll", 2},
		{nil, "scroll", 3}, // defaults: up, amount 3
		{protocol.Metadata{"direction": "left"}, "hscroll", -3},
		{protocol.Metadata{"direction": "right", "amount": float64(4)}, "hscroll", 4},
	}

	for i, tc := range cases {
		fake := newFakeController()
		e, _ := newTestExecutor(t, fake, nil)
		if err := e.execute(command(protocol.ActionScroll, 0.5, 0.5, tc.meta)); err != nil {
			t.Fatalf("case %d: execute failed: %v", i, err)
		}
		calls := fake.Calls()
		if len(calls) != 1 || calls[0].name != tc.wantName || calls[0].amount != tc.wantAmount {
			t.Errorf("case %d: expected %s(%d), got %v", i, tc.wantName, tc.wantAmount, calls)
		}
	}
}

func TestZoomWrapsScrollInCtrl(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, nil)

	meta := protocol.Metadata{"factor": 2.0}
	if err := e.execute(command(protocol.ActionZoom, 0.5, 0.5, meta)); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	calls := fake.Calls()
	if len(calls) != 3 {
		t.Fatalf("Expected 3 calls, got %d", len(calls))
	}
	if calls[0].name != "key_down" || calls[0].arg != "ctrl" {
		t.Errorf("Expected key_down(ctrl) first, got %v", calls[0])
	}
	if calls[1].name != "scroll" || calls[1].amount != 5 {
		t.Errorf("Expected scroll(5), got %v", calls[1])
	}
	if calls[2].name != "key_up" || calls[2].arg != "ctrl" {
		t.Errorf("Expected key_up(ctrl) last, got %v", calls[2])
	}
}

func TestZoomReleasesCtrlOnScrollError(t *testing.T) {
	fake := newFakeController()
	fake.fail["scroll"] = errors.New("scroll failed")
	e, _ := newTestExecutor(t, fake, nil)

	err := e.execute(command(protocol.ActionZoom, 0.5, 0.5, protocol.Metadata{"factor": 2.0}))
	if err == nil {
		t.Fatal("Expected error from failing scroll")
	}

	calls := fake.Calls()
	last := calls[len(calls)-1]
	if last.name != "key_up" || last.arg != "ctrl" {
		t.Errorf("ctrl must be released after a failed scroll, last call was %v", last)
	}
}

func TestMoveRelativeBypassesPipeline(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, func(c *config.Config) {
		c.Performance.GestureSmoothing = 0.9
		c.Performance.EnablePrediction = true
	})

	meta := protocol.Metadata{"dx": float64(-5000), "dy": float64(4000)}
	if err := e.execute(command(protocol.ActionMoveRelative, 0.5, 0.5, meta)); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	calls := fake.Calls()
	if len(calls) != 1 || calls[0].name != "move_relative" {
		t.Fatalf("Expected a single move_relative, got %v", calls)
	}
	if calls[0].x != -5000 || calls[0].y != 4000 {
		t.Errorf("Expected unclamped delta (-5000, 4000), got (%d, %d)", calls[0].x, calls[0].y)
	}
}

func TestKeyboardActions(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, nil)

	e.execute(command(protocol.ActionKeyPress, 0, 0, nil))
	e.execute(command(protocol.ActionKeyPress, 0, 0, protocol.Metadata{"key": "enter"}))
	e.execute(command(protocol.ActionKeyCombo, 0, 0, protocol.Metadata{"keys": []any{"ctrl", "shift", "t"}}))
	e.execute(command(protocol.ActionTypeText, 0, 0, protocol.Metadata{"text": "hello"}))
	e.execute(command(protocol.ActionWave, 0, 0, nil))

	calls := fake.Calls()
	if calls[0].name != "press" || calls[0].arg != "space" {
		t.Errorf("key_press default should be space, got %v", calls[0])
	}
	if calls[1].arg != "enter" {
		t.Errorf("Expected press(enter), got %v", calls[1])
	}
	if calls[2].name != "hotkey" || len(calls[2].keys) != 3 || calls[2].keys[0] != "ctrl" {
		t.Errorf("Expected hotkey(ctrl, shift, t), got %v", calls[2])
	}
	if calls[3].name != "type_text" || calls[3].arg != "hello" {
		t.Errorf("Expected type_text(hello), got %v", calls[3])
	}
	if calls[4].name != "hotkey" || len(calls[4].keys) != 2 || calls[4].keys[0] != "alt" || calls[4].keys[1] != "tab" {
		t.Errorf("wave should dispatch hotkey(alt, tab), got %v", calls[4])
	}
}

func TestVolumeControl(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, nil)

	e.execute(command(protocol.ActionVolumeControl, 0, 0, nil))
	e.execute(command(protocol.ActionVolumeControl, 0, 0, protocol.Metadata{"direction": "down"}))

	calls := fake.Calls()
	if calls[0].name != "volume_up" {
		t.Errorf("Default volume direction should be up, got %v", calls[0])
	}
	if calls[1].name != "volume_down" {
		t.Errorf("Expected volume_down, got %v", calls[1])
	}
}

func TestPaste(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, nil)

	// without text: no-op
	if err := e.execute(command(protocol.ActionPaste, 0, 0, nil)); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if n := len(fake.Calls()); n != 0 {
		t.Errorf("Expected no calls for paste without text, got %d", n)
	}

	// with text: clipboard write then paste
	e.execute(command(protocol.ActionPaste, 0, 0, protocol.Metadata{"text": "hi"}))
	calls := fake.Calls()
	if len(calls) != 2 || calls[0].name != "clipboard_write" || calls[0].arg != "hi" || calls[1].name != "paste_selection" {
		t.Errorf("Expected clipboard_write(hi) then paste_selection, got %v", calls)
	}
}

func TestTranslateFlow(t *testing.T) {
	fake := newFakeController()
	fake.selection = "hello world"
	fake.translate = "bonjour le monde"
	e, _ := newTestExecutor(t, fake, nil)

	if err := e.execute(command(protocol.ActionTranslate, 0, 0, nil)); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	var names []string
	var wrote string
	for _, c := range fake.Calls() {
		names = append(names, c.name)
		if c.name == "clipboard_write" {
			wrote = c.arg
		}
	}

	want := []string{"copy_selection", "translate", "clipboard_write", "paste_selection"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("Expected call sequence %v, got %v", want, names)
	}
	if wrote != "bonjour le monde" {
		t.Errorf("Expected translated text on clipboard, got %q", wrote)
	}
}

func TestTranslateEmptyClipboardNoop(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, nil)

	if err := e.execute(command(protocol.ActionTranslate, 0, 0, nil)); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	for _, c := range fake.Calls() {
		if c.name == "translate" || c.name == "paste_selection" {
			t.Errorf("Empty clipboard must not trigger %s", c.name)
		}
	}
}

func TestUnknownActionIgnored(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, nil)

	if err := e.execute(command(protocol.Action("somersault"), 0.5, 0.5, nil)); err != nil {
		t.Fatalf("Unknown action should not error, got %v", err)
	}
	if n := len(fake.Calls()); n != 0 {
		t.Errorf("Unknown action should dispatch nothing, got %d calls", n)
	}
}

func TestCommandIsolation(t *testing.T) {
	fake := newFakeController()
	fake.fail["click"] = errors.New("injection failed")
	e, monitor := newTestExecutor(t, fake, nil)

	bad := command(protocol.ActionClick, 0.5, 0.5, nil)
	good := command(protocol.ActionMove, 0.25, 0.25, nil)

	e.process(bad)
	e.process(good)

	calls := fake.Calls()
	if len(calls) != 2 || calls[1].name != "move_to" {
		t.Fatalf("Command after a failed one must still dispatch, got %v", calls)
	}

	stats := monitor.Snapshot()
	if stats.Errors != 1 {
		t.Errorf("Expected 1 recorded error, got %d", stats.Errors)
	}
	// latency recorded for both the failed and the successful command
	if got := statsCount(monitor); got != 2 {
		t.Errorf("Expected 2 recorded commands, got %d", got)
	}
}

func statsCount(m *Monitor) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func TestWorkerFIFOOrdering(t *testing.T) {
	fake := newFakeController()
	e, _ := newTestExecutor(t, fake, nil)

	const n = 50
	for i := 0; i < n; i++ {
		cmd := command(protocol.ActionMoveRelative, 0, 0, protocol.Metadata{"dx": float64(i), "dy": float64(0)})
		cmd.ID = fmt.Sprintf("cmd-%d", i)
		if !e.Submit(cmd) {
			t.Fatalf("Submit of command %d was dropped", i)
		}
	}

	e.Start()
	deadline := time.Now().Add(2 * time.Second)
	for len(fake.Calls()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out: %d/%d commands dispatched", len(fake.Calls()), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
	e.Stop()

	calls := fake.Calls()
	if len(calls) != n {
		t.Fatalf("Expected exactly %d dispatches, got %d", n, len(calls))
	}
	for i, c := range calls {
		if c.x != i {
			t.Fatalf("Out-of-order dispatch at %d: got tag %d", i, c.x)
		}
	}
}
