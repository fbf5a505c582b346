package gesture

import (
	"log"
	"math"
	"time"

	"gestured/internal/config"
	"gestured/internal/control"
	"gestured/internal/protocol"
)

const (
	// clipboardPollInterval and clipboardSettleTimeout bound the wait for an
	// external clipboard update after a selection copy. Polling replaces the
	// fixed settle delay: the copy is usually visible after one or two polls.
	clipboardPollInterval  = 20 * time.Millisecond
	clipboardSettleTimeout = 500 * time.Millisecond
)

// Executor is the sole consumer of the command queue. At most one injection
// call is in flight at any time, so concurrent transports can never interleave
// mouse/keyboard actions. Smoothing state, prediction history and the drag
// state machine are owned here and touched only by the worker goroutine.
type Executor struct {
	cfgMgr     *config.Manager
	controller control.Controller
	monitor    *Monitor
	queue      *Queue

	screenWidth  int
	screenHeight int
	predictor    *Predictor
	smoother     Smoother
	dragging     bool

	done    chan struct{}
	stopped chan struct{}
}

// NewExecutor wires the worker against the given controller and monitor.
func NewExecutor(cfgMgr *config.Manager, controller control.Controller, monitor *Monitor) *Executor {
	w, h := controller.ScreenSize()
	cfg := cfgMgr.Get()

	e := &Executor{
		cfgMgr:       cfgMgr,
		controller:   controller,
		monitor:      monitor,
		queue:        NewQueue(cfg.Performance.QueueCapacity, monitor),
		screenWidth:  w,
		screenHeight: h,
		predictor:    NewPredictor(w, h),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}

	log.Printf("Executor: screen resolution %dx%d", w, h)
	if cfg.Performance.EnablePrediction {
		log.Printf("Executor: trajectory prediction enabled")
	}
	return e
}

// Submit hands a decoded command to the queue without waiting for execution.
func (e *Executor) Submit(cmd *protocol.Command) bool {
	return e.queue.Enqueue(cmd)
}

// QueueLen reports how many commands are waiting.
func (e *Executor) QueueLen() int {
	return e.queue.Len()
}

// Start launches the worker goroutine.
func (e *Executor) Start() {
	go e.run()
}

// Stop cancels the worker. An in-flight injection call finishes; commands
// still queued are abandoned, not drained.
func (e *Executor) Stop() {
	close(e.done)
	<-e.stopped
}

func (e *Executor) run() {
	defer close(e.stopped)
	log.Printf("Executor: worker started")

	for {
		cmd, ok := e.queue.Dequeue(e.done)
		if !ok {
			log.Printf("Executor: worker stopped")
			return
		}
		e.process(cmd)
	}
}

// process executes one command, isolating any failure from the rest of the
// stream. Latency is recorded decode-to-dispatch-complete, success or not.
func (e *Executor) process(cmd *protocol.Command) {
	if err := e.execute(cmd); err != nil {
		log.Printf("Executor: command %s failed: %v", cmd.ID, err)
		e.monitor.RecordError()
	}
	e.monitor.RecordCommand(time.Since(cmd.Received))
}

func (e *Executor) execute(cmd *protocol.Command) error {
	perf := e.cfgMgr.Get().Performance

	// move_relative bypasses smoothing, prediction and clamping entirely
	if cmd.Action == protocol.ActionMoveRelative {
		dx, dy := cmd.Meta.Delta()
		return e.controller.MoveRelative(dx, dy)
	}

	x := clampI(int(math.Round(cmd.PosX*float64(e.screenWidth))), 0, e.screenWidth)
	y := clampI(int(math.Round(cmd.PosY*float64(e.screenHeight))), 0, e.screenHeight)

	if cmd.Action == protocol.ActionMove {
		if perf.EnablePrediction {
			// prediction works on the pre-clamped denormalized position so
			// velocity reflects what the client actually sent
			px, py := e.predictor.Predict(
				cmd.PosX*float64(e.screenWidth),
				cmd.PosY*float64(e.screenHeight),
				cmd.Timestamp,
			)
			x = clampI(int(px), 0, e.screenWidth)
			y = clampI(int(py), 0, e.screenHeight)
		}
		x, y = e.smoother.Apply(x, y, perf.GestureSmoothing)
		return e.controller.MoveTo(x, y)
	}

	// prediction is move-only; smoothing applies to every positioned action
	x, y = e.smoother.Apply(x, y, perf.GestureSmoothing)

	switch cmd.Action {
	case protocol.ActionClick:
		return e.controller.Click(x, y, cmd.Meta.Button())

	case protocol.ActionDoubleClick:
		return e.controller.DoubleClick(x, y, cmd.Meta.Button())

	case protocol.ActionDragStart:
		if e.dragging {
			return nil
		}
		log.Printf("Executor: drag start at (%d, %d)", x, y)
		e.dragging = true
		return e.controller.MouseDown(x, y, cmd.Meta.Button())

	case protocol.ActionDragEnd:
		if !e.dragging {
			return nil
		}
		log.Printf("Executor: drag end at (%d, %d)", x, y)
		e.dragging = false
		return e.controller.MouseUp(x, y, cmd.Meta.Button())

	case protocol.ActionScroll:
		amount := cmd.Meta.Amount()
		switch cmd.Meta.Direction("up") {
		case "down":
			return e.controller.Scroll(-amount, x, y)
		case "left":
			return e.controller.HScroll(-amount, x, y)
		case "right":
			return e.controller.HScroll(amount, x, y)
		default:
			return e.controller.Scroll(amount, x, y)
		}

	case protocol.ActionZoom:
		return e.zoom(cmd.Meta.Factor(), x, y)

	case protocol.ActionKeyPress:
		return e.controller.Press(cmd.Meta.Key())

	case protocol.ActionKeyCombo:
		return e.controller.Hotkey(cmd.Meta.Keys()...)

	case protocol.ActionTypeText:
		return e.controller.TypeText(cmd.Meta.Text())

	case protocol.ActionWave:
		return e.controller.Hotkey("alt", "tab")

	case protocol.ActionCopy:
		return e.controller.CopySelection()

	case protocol.ActionPaste:
		text := cmd.Meta.Text()
		if text == "" {
			return nil
		}
		if err := e.controller.ClipboardWrite(text); err != nil {
			return err
		}
		return e.controller.PasteSelection()

	case protocol.ActionTranslate:
		return e.translateSelection()

	case protocol.ActionVolumeControl:
		if cmd.Meta.Direction("up") == "down" {
			return e.controller.VolumeDown()
		}
		return e.controller.VolumeUp()
	}

	// unknown actions are ignored for forward compatibility
	return nil
}

// zoom emulates ctrl+scroll. Ctrl is released even when the scroll fails so a
// bad command cannot leave the modifier stuck down.
func (e *Executor) zoom(factor float64, x, y int) error {
	amount := int(math.Round((factor - 1.0) * 5))

	if err := e.controller.KeyDown("ctrl"); err != nil {
		return err
	}
	scrollErr := e.controller.Scroll(amount, x, y)
	upErr := e.controller.KeyUp("ctrl")
	if scrollErr != nil {
		return scrollErr
	}
	return upErr
}

// translateSelection copies the current selection, waits for the clipboard to
// reflect it, translates, and pastes the result. A no-op when the clipboard
// stays empty.
func (e *Executor) translateSelection() error {
	before, err := e.controller.ClipboardRead()
	if err != nil {
		return err
	}
	if err := e.controller.CopySelection(); err != nil {
		return err
	}

	text, err := e.waitClipboard(before)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	translated, err := e.controller.Translate(text, "en")
	if err != nil {
		return err
	}
	if err := e.controller.ClipboardWrite(translated); err != nil {
		return err
	}
	return e.controller.PasteSelection()
}

// waitClipboard polls until the clipboard content changes from the
// pre-copy snapshot or the settle timeout passes, returning whatever is
// present at that point.
func (e *Executor) waitClipboard(before string) (string, error) {
	deadline := time.Now().Add(clipboardSettleTimeout)
	for {
		text, err := e.controller.ClipboardRead()
		if err != nil {
			return "", err
		}
		if text != "" && text != before {
			return text, nil
		}
		if time.Now().After(deadline) {
			return text, nil
		}
		time.Sleep(clipboardPollInterval)
	}
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
