package linux

import (
	"context"
	"encoding/binary"
	"os"
	"testing"
	"time"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/hapticbridge/hapticbridge/internal/inputsvc"
	"github.com/hapticbridge/hapticbridge/internal/mapstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pipeDevice(t *testing.T, kind string) (openDevice, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	od := openDevice{
		dev:       &evdev.InputDevice{Fn: "pipe", File: r},
		kind:      kind,
		axisRange: defaultAxisRange,
	}
	return od, w
}

func writeEvent(t *testing.T, w *os.File, evType, code uint16, value int32) {
	t.Helper()
	ev := evdev.InputEvent{Type: evType, Code: code, Value: value}
	require.NoError(t, binary.Write(w, binary.LittleEndian, &ev))
}

func TestReadLoopExitsOnShutdown(t *testing.T) {
	b := NewBackend(zap.NewNop(), Config{})
	od, _ := pipeDevice(t, KindKeyboard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.readLoop(ctx, od, func(context.Context, inputsvc.Event) {})
	}()

	// The loop is blocked in a read on an idle device. Cancelling the
	// context and closing the file, as Start does, must unblock it.
	cancel()
	closeDevices([]openDevice{od})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read loop did not exit after shutdown")
	}
}

func TestReadLoopPublishesTranslatedEvents(t *testing.T) {
	b := NewBackend(zap.NewNop(), Config{})
	od, w := pipeDevice(t, KindKeyboard)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan inputsvc.Event, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.readLoop(ctx, od, func(_ context.Context, ev inputsvc.Event) {
			events <- ev
		})
	}()

	writeEvent(t, w, evdev.EV_KEY, 19, 1)
	writeEvent(t, w, evdev.EV_KEY, 19, 0)

	want := mapstore.LogicalInput{Kind: mapstore.KindKey, Code: 19}
	for _, kind := range []inputsvc.EventKind{inputsvc.Press, inputsvc.Release} {
		select {
		case ev := <-events:
			assert.Equal(t, want, ev.Input)
			assert.Equal(t, kind, ev.Kind)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}

	cancel()
	closeDevices([]openDevice{od})
	<-done
}

func TestTranslateJoystickAxis(t *testing.T) {
	od := openDevice{
		dev:       &evdev.InputDevice{},
		kind:      KindJoystick,
		joyIndex:  1,
		axisRange: defaultAxisRange,
	}
	ev, ok := translate(od, &evdev.InputEvent{Type: evdev.EV_ABS, Code: 0, Value: defaultAxisRange / 2})
	require.True(t, ok)
	assert.Equal(t, mapstore.KindJoyAxis, ev.Input.Kind)
	assert.Equal(t, 1, ev.Input.Device)
	assert.InDelta(t, 0.5, ev.Value, 0.001)

	// Values past the configured range clamp to full deflection.
	ev, ok = translate(od, &evdev.InputEvent{Type: evdev.EV_ABS, Code: 0, Value: defaultAxisRange + 500})
	require.True(t, ok)
	assert.Equal(t, 1.0, ev.Value)
}
