// Package dispatchsvc contains the dispatch engine: it consumes normalized
// input events, resolves them against the binding store and drives the
// output sinks, scheduling discrete pattern playback on a delayed-task
// queue.
package dispatchsvc

import (
	"time"

	"github.com/hapticbridge/hapticbridge/internal/inputsvc"
	"github.com/hapticbridge/hapticbridge/internal/mapstore"
	"github.com/hapticbridge/hapticbridge/internal/sinkio"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type Sinks struct {
	Vest sinkio.VestSink
	Pad  sinkio.PadSink
}

// Engine is single-threaded: Handle and Tick must be called from one
// goroutine (the Service run loop). Pause, Resume and PresetLive are safe
// from other goroutines.
type Engine struct {
	log   *zap.Logger
	store *mapstore.Store
	sinks Sinks
	now   func() time.Time

	sched *scheduler
	state *deviceState

	// held tracks pressed inputs for edge detection and while-held.
	held            map[mapstore.LogicalInput]bool
	playbackByInput map[mapstore.LogicalInput]uint64
	holdTokens      map[mapstore.LogicalInput]uint64
	turboTokens     map[mapstore.LogicalInput]uint64
	// padHeld tracks gamepad buttons latched down by while-held bindings.
	padHeld map[mapstore.LogicalInput]padPress
	// padTaps tracks gamepad buttons awaiting a scheduled tap release.
	padTaps map[uint64]padPress
	// recalcs dedupes node recalculation points already scheduled.
	recalcs map[int]map[time.Time]struct{}

	nextID uint64
	paused *atomic.Bool
	live   *xsync.MapOf[string, *atomic.Int64]
}

func NewEngine(log *zap.Logger, store *mapstore.Store, sinks Sinks, now func() time.Time) *Engine {
	e := &Engine{
		log:             log,
		store:           store,
		sinks:           sinks,
		now:             now,
		sched:           newScheduler(),
		state:           newDeviceState(),
		held:            make(map[mapstore.LogicalInput]bool),
		playbackByInput: make(map[mapstore.LogicalInput]uint64),
		holdTokens:      make(map[mapstore.LogicalInput]uint64),
		turboTokens:     make(map[mapstore.LogicalInput]uint64),
		padHeld:         make(map[mapstore.LogicalInput]padPress),
		padTaps:         make(map[uint64]padPress),
		recalcs:         make(map[int]map[time.Time]struct{}),
		paused:          atomic.NewBool(false),
		live:            xsync.NewMapOf[string, *atomic.Int64](),
	}
	store.Catalog.RegisterInUseProbe(e.PresetLive)
	return e
}

// Pause suspends stimulus delivery without tearing down state: held
// tracking, playbacks and the scheduler keep running, sends are dropped.
func (e *Engine) Pause()  { e.paused.Store(true) }
func (e *Engine) Resume() { e.paused.Store(false) }

func (e *Engine) Paused() bool { return e.paused.Load() }

// PresetLive reports whether any live playback references the preset.
// Registered as the catalog's in-use probe.
func (e *Engine) PresetLive(name string) bool {
	counter, ok := e.live.Load(name)
	return ok && counter.Load() > 0
}

// NextWake returns when the scheduler next needs a tick.
func (e *Engine) NextWake() (time.Time, bool) {
	return e.sched.nextAt()
}

// Tick runs all scheduled work due at or before now.
func (e *Engine) Tick(now time.Time) {
	e.sched.runDue(now)
}

// Handle processes one normalized input event. An input with no binding
// is a no-op, not an error. Zero-offset pattern steps are delivered
// before Handle returns.
func (e *Engine) Handle(ev inputsvc.Event) {
	e.handle(ev)
	e.sched.runDue(e.now())
}

func (e *Engine) handle(ev inputsvc.Event) {
	binding, ok := e.store.Bindings.Resolve(ev.Input)
	if !ok {
		return
	}
	switch binding.Mode {
	case mapstore.ModeContinuousAxis:
		if ev.Kind != inputsvc.AxisChange || e.disabled(binding) {
			return
		}
		e.handleAxis(binding, ev.Value)
	case mapstore.ModeOnPress:
		switch ev.Kind {
		case inputsvc.Press:
			if e.held[ev.Input] {
				return
			}
			e.held[ev.Input] = true
			if e.disabled(binding) {
				return
			}
			e.trigger(binding)
		case inputsvc.Release:
			if !e.held[ev.Input] {
				return
			}
			delete(e.held, ev.Input)
			e.cancelHoldTurbo(ev.Input)
		}
	case mapstore.ModeOnRelease:
		switch ev.Kind {
		case inputsvc.Press:
			e.held[ev.Input] = true
		case inputsvc.Release:
			if !e.held[ev.Input] {
				return
			}
			delete(e.held, ev.Input)
			if e.disabled(binding) {
				return
			}
			e.fireOnce(binding)
		}
	case mapstore.ModeWhileHeld:
		switch ev.Kind {
		case inputsvc.Press:
			if e.held[ev.Input] {
				return
			}
			e.held[ev.Input] = true
			if e.disabled(binding) {
				return
			}
			e.trigger(binding)
		case inputsvc.Release:
			if !e.held[ev.Input] {
				return
			}
			delete(e.held, ev.Input)
			e.cancelHoldTurbo(ev.Input)
			e.releasePadHeld(ev.Input)
			if pid, ok := e.playbackByInput[ev.Input]; ok {
				e.cancelPlayback(pid)
			}
		}
	}
}

func (e *Engine) disabled(binding mapstore.Binding) bool {
	return e.store.Bindings.IsDisabled(binding.Name)
}

// trigger starts the fire path for press-triggered bindings, honoring the
// hold-time option: the fire is delayed and aborted if the input is
// released before the delay elapses.
func (e *Engine) trigger(binding mapstore.Binding) {
	in := binding.Input
	if binding.HoldMs > 0 {
		token := e.newID()
		e.holdTokens[in] = token
		e.sched.schedule(token, e.now().Add(ms(binding.HoldMs)), func(time.Time) {
			delete(e.holdTokens, in)
			if !e.held[in] {
				return
			}
			e.startFiring(binding)
		})
		return
	}
	e.startFiring(binding)
}

func (e *Engine) startFiring(binding mapstore.Binding) {
	e.fireOnce(binding)
	if binding.TurboMs > 0 {
		token := e.newID()
		e.turboTokens[binding.Input] = token
		e.scheduleTurbo(binding, token)
	}
}

func (e *Engine) scheduleTurbo(binding mapstore.Binding, token uint64) {
	e.sched.schedule(token, e.now().Add(ms(binding.TurboMs)), func(time.Time) {
		if !e.held[binding.Input] {
			delete(e.turboTokens, binding.Input)
			return
		}
		if !e.disabled(binding) {
			e.fireOnce(binding)
		}
		e.scheduleTurbo(binding, token)
	})
}

func (e *Engine) cancelHoldTurbo(in mapstore.LogicalInput) {
	if token, ok := e.holdTokens[in]; ok {
		e.sched.cancel(token)
		delete(e.holdTokens, in)
	}
	if token, ok := e.turboTokens[in]; ok {
		e.sched.cancel(token)
		delete(e.turboTokens, in)
	}
}

// fireOnce applies group toggles and fires the bound preset. Vest presets
// start a playback; a previous playback from the same input still running
// is cancelled first, restarting the pattern from offset 0. Pad presets
// press a virtual gamepad button.
func (e *Engine) fireOnce(binding mapstore.Binding) {
	e.applyGroups(binding)
	preset, err := e.store.Catalog.Get(binding.Preset)
	if err != nil {
		e.reportOnce(binding.Preset, "Binding references missing preset", err)
		return
	}
	switch {
	case preset.Vest != nil:
		if pid, ok := e.playbackByInput[binding.Input]; ok {
			if _, running := e.state.playbacks[pid]; running {
				e.cancelPlayback(pid)
			}
		}
		e.firePlayback(binding.Input, preset)
	case preset.Pad != nil:
		e.firePadButton(binding, preset)
	default:
		e.reportOnce(preset.Name, "Press binding on a continuous preset", nil)
	}
}

// defaultTapMs bounds a button tap when the preset does not configure one.
const defaultTapMs = 50

// firePadButton forwards a fire to the virtual gamepad. A while-held
// binding without turbo mirrors the input, holding the button down until
// the input is released. Every other fire is a timed tap, so turbo
// produces repeated taps.
func (e *Engine) firePadButton(binding mapstore.Binding, preset mapstore.Preset) {
	press := padPress{preset: preset.Name, button: preset.Pad.Button}
	if binding.Mode == mapstore.ModeWhileHeld && binding.TurboMs == 0 {
		if e.sendButton(press, true) {
			e.padHeld[binding.Input] = press
		}
		return
	}
	if !e.sendButton(press, true) {
		return
	}
	tap := preset.Pad.TapMs
	if tap <= 0 {
		tap = defaultTapMs
	}
	pid := e.newID()
	e.padTaps[pid] = press
	e.sched.schedule(pid, e.now().Add(ms(tap)), func(time.Time) {
		e.finishPadTap(pid)
	})
}

func (e *Engine) finishPadTap(pid uint64) {
	press, ok := e.padTaps[pid]
	if !ok {
		return
	}
	delete(e.padTaps, pid)
	e.sendButton(press, false)
}

func (e *Engine) releasePadHeld(in mapstore.LogicalInput) {
	press, ok := e.padHeld[in]
	if !ok {
		return
	}
	delete(e.padHeld, in)
	e.sendButton(press, false)
}

func (e *Engine) applyGroups(binding mapstore.Binding) {
	for _, name := range binding.Disables {
		e.store.Bindings.SetDisabled(name, true)
	}
	for _, name := range binding.Enables {
		e.store.Bindings.SetDisabled(name, false)
	}
}

func (e *Engine) firePlayback(input mapstore.LogicalInput, preset mapstore.Preset) {
	now := e.now()
	pid := e.newID()
	pb := &activePlayback{
		id:     pid,
		preset: preset.Name,
		input:  input,
	}
	e.state.playbacks[pid] = pb
	e.playbackByInput[input] = pid
	e.incLive(preset.Name)
	for _, step := range preset.Vest.Steps {
		step := step
		e.sched.schedule(pid, now.Add(ms(step.StartOffsetMs)), func(at time.Time) {
			e.fireStep(pb, step, at)
		})
	}
	e.sched.schedule(pid, now.Add(ms(preset.Vest.EndOffsetMs())), func(at time.Time) {
		e.finishPlayback(pid, at)
	})
}

func (e *Engine) fireStep(pb *activePlayback, step mapstore.VestStep, now time.Time) {
	if _, running := e.state.playbacks[pb.id]; !running {
		return
	}
	live := e.state.addContribution(step.Node, contribution{
		pid:       pb.id,
		intensity: step.Intensity,
		until:     now.Add(ms(step.DurationMs)),
	}, now)
	if !e.emitNode(step.Node, live, now) {
		// Delivery failed: drop the whole cue rather than resume
		// mid-pattern with stale timing.
		e.cancelPlayback(pb.id)
	}
}

// emitNode sends the effective (maximum) intensity for a node and
// schedules a recalculation at the next instant it can change. A send
// that would repeat what the node is already executing is suppressed.
// Returns false when delivery failed.
func (e *Engine) emitNode(node int, live []contribution, now time.Time) bool {
	max, next := maxIntensity(live)
	window := int(next.Sub(now) / time.Millisecond)
	if window <= 0 {
		return true
	}
	e.scheduleRecalc(node, next)
	if last, ok := e.state.lastSent[node]; ok && last.intensity == max && last.until.Equal(next) {
		return true
	}
	if !e.sendStimulus(e.presetOfMax(live), node, max, window) {
		return false
	}
	if !e.paused.Load() {
		e.state.lastSent[node] = sentStimulus{intensity: max, until: next}
	}
	return true
}

func (e *Engine) scheduleRecalc(node int, at time.Time) {
	set, ok := e.recalcs[node]
	if !ok {
		set = make(map[time.Time]struct{})
		e.recalcs[node] = set
	}
	if _, dup := set[at]; dup {
		return
	}
	set[at] = struct{}{}
	e.sched.schedule(0, at, func(now time.Time) {
		delete(set, at)
		e.recalcNode(node, now)
	})
}

// recalcNode re-emits a node after a contribution expired. Natural expiry
// of the last contribution needs no stop command: the previous send
// already carried the right duration.
func (e *Engine) recalcNode(node int, now time.Time) {
	live := e.state.liveContributions(node, now)
	if len(live) == 0 {
		delete(e.state.lastSent, node)
		return
	}
	if !e.emitNode(node, live, now) {
		e.cancelPlayback(e.pidOfMax(live))
	}
}

// finishPlayback removes a playback on natural completion. All of its
// contributions have expired by then; nothing is sent.
func (e *Engine) finishPlayback(pid uint64, now time.Time) {
	pb, ok := e.state.playbacks[pid]
	if !ok {
		return
	}
	delete(e.state.playbacks, pid)
	if cur, ok := e.playbackByInput[pb.input]; ok && cur == pid {
		delete(e.playbackByInput, pb.input)
	}
	e.decLive(pb.preset)
	e.state.dropPlayback(pid, now)
}

// cancelPlayback removes a playback and its pending scheduled sends, and
// stops or lowers the vest nodes it was driving.
func (e *Engine) cancelPlayback(pid uint64) {
	pb, ok := e.state.playbacks[pid]
	if !ok {
		return
	}
	e.sched.cancel(pid)
	delete(e.state.playbacks, pid)
	if cur, ok := e.playbackByInput[pb.input]; ok && cur == pid {
		delete(e.playbackByInput, pb.input)
	}
	e.decLive(pb.preset)

	now := e.now()
	affected := e.state.dropPlayback(pid, now)
	for _, node := range affected {
		live := e.state.liveContributions(node, now)
		if len(live) == 0 {
			// Explicit stop: the last send told the device to keep
			// playing past this instant.
			delete(e.state.lastSent, node)
			e.sendStimulus(pb.preset, node, 0, 0)
			continue
		}
		if !e.emitNode(node, live, now) {
			e.cancelPlayback(e.pidOfMax(live))
		}
	}
}

// CancelAll cancels every live playback, releases every gamepad button
// still down and zeroes the output axes. Used at shutdown and must run on
// the engine goroutine.
func (e *Engine) CancelAll() {
	for pid := range e.state.playbacks {
		e.cancelPlayback(pid)
	}
	for in := range e.padHeld {
		e.releasePadHeld(in)
	}
	for pid := range e.padTaps {
		e.sched.cancel(pid)
		e.finishPadTap(pid)
	}
	for axis := range e.state.lastAxis {
		e.sinks.Pad.SendAxis(axis, 0)
	}
}

func (e *Engine) handleAxis(binding mapstore.Binding, value float64) {
	preset, err := e.store.Catalog.Get(binding.Preset)
	if err != nil {
		e.reportOnce(binding.Preset, "Binding references missing preset", err)
		return
	}
	if preset.Axis == nil {
		e.reportOnce(preset.Name, "Axis binding on a discrete preset", nil)
		return
	}
	out := preset.Axis.Apply(value)
	e.state.lastAxis[preset.Axis.Output] = out
	if e.paused.Load() {
		return
	}
	if err := e.sinks.Pad.SendAxis(preset.Axis.Output, out); err != nil {
		e.reportOnce(preset.Name, "Axis delivery failed; dropping value", err)
	}
}

// sendButton is the choke point for gamepad button deliveries: it applies
// the pause gate and the once-per-preset failure report.
func (e *Engine) sendButton(press padPress, pressed bool) bool {
	if e.paused.Load() {
		return true
	}
	err := e.sinks.Pad.SendButton(press.button, pressed)
	if err == nil {
		return true
	}
	e.reportOnce(press.preset, "Button delivery failed", err)
	return false
}

// sendStimulus is the single choke point for vest deliveries: it applies
// the pause gate and the once-per-preset failure report.
func (e *Engine) sendStimulus(preset string, node int, intensity float64, durationMs int) bool {
	if e.paused.Load() {
		return true
	}
	err := e.sinks.Vest.SendStimulus(node, intensity, durationMs)
	if err == nil {
		return true
	}
	e.reportOnce(preset, "Stimulus delivery failed; dropping cue", err)
	return false
}

// reportOnce logs a runtime problem once per preset per session to avoid
// log storms from per-tuple failures.
func (e *Engine) reportOnce(preset string, msg string, err error) {
	if _, ok := e.state.reported[preset]; ok {
		return
	}
	e.state.reported[preset] = struct{}{}
	e.log.Warn(msg, zap.String("preset", preset), zap.Error(err))
}

func (e *Engine) presetOfMax(live []contribution) string {
	if pb, ok := e.state.playbacks[e.pidOfMax(live)]; ok {
		return pb.preset
	}
	return ""
}

func (e *Engine) pidOfMax(live []contribution) uint64 {
	var max float64
	var pid uint64
	for _, c := range live {
		if c.intensity >= max {
			max = c.intensity
			pid = c.pid
		}
	}
	return pid
}

func (e *Engine) incLive(name string) {
	counter, _ := e.live.LoadOrCompute(name, func() *atomic.Int64 {
		return atomic.NewInt64(0)
	})
	counter.Inc()
}

func (e *Engine) decLive(name string) {
	if counter, ok := e.live.Load(name); ok {
		counter.Dec()
	}
}

func (e *Engine) newID() uint64 {
	e.nextID++
	return e.nextID
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
