// Package inputsvc normalizes raw device events into logical input events
// and publishes them on a bus consumed by the dispatch engine.
package inputsvc

import (
	"context"
	"fmt"
	"math"

	"github.com/hapticbridge/hapticbridge/internal/mapstore"
	"github.com/hapticbridge/hapticbridge/pkg/bus"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

type EventKind uint8

const (
	Press EventKind = iota
	Release
	AxisChange
)

func (k EventKind) String() string {
	switch k {
	case Press:
		return "press"
	case Release:
		return "release"
	case AxisChange:
		return "axisChange"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is a normalized input event. Value is the axis position in [-1,1]
// for AxisChange and unused otherwise.
type Event struct {
	Input mapstore.LogicalInput
	Kind  EventKind
	Value float64
}

type (
	InputBus        = bus.Bus[mapstore.LogicalInput, Event]
	InputSubscriber = bus.Subscriber[mapstore.LogicalInput, Event]
)

// DefaultAxisEpsilon filters joystick jitter: axis changes smaller than
// this are dropped before they reach the bus.
const DefaultAxisEpsilon = 0.01

var defaultOptions = serviceOptions{
	backends:    make(map[string]Backend),
	axisEpsilon: DefaultAxisEpsilon,
}

type serviceOptions struct {
	backends    map[string]Backend
	axisEpsilon float64
}

type Option func(*serviceOptions)

func WithBackend(name string, backend Backend) Option {
	return func(o *serviceOptions) {
		o.backends[name] = backend
	}
}

func WithAxisEpsilon(epsilon float64) Option {
	return func(o *serviceOptions) {
		o.axisEpsilon = epsilon
	}
}

type Service struct {
	log     *zap.Logger
	options serviceOptions
	ready   chan struct{}

	bus      *InputBus
	lastAxis *xsync.MapOf[mapstore.LogicalInput, float64]
}

func New(log *zap.Logger, opts ...Option) *Service {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{
		log:      log,
		options:  options,
		ready:    make(chan struct{}),
		bus:      bus.NewBus[mapstore.LogicalInput, Event](log),
		lastAxis: xsync.NewMapOf[mapstore.LogicalInput, float64](),
	}
}

// Start runs all backends and blocks until the context is cancelled. A
// backend failing to acquire its configured devices is fatal.
func (s *Service) Start(ctx context.Context) error {
	err := s.bus.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start input bus: %w", err)
	}
	select {
	case <-ctx.Done():
		return nil
	case <-s.bus.Ready():
	}

	errCh := make(chan error, len(s.options.backends))
	for name, backend := range s.options.backends {
		name, backend := name, backend
		go func() {
			err := backend.Start(ctx, s.publish)
			if err != nil {
				errCh <- fmt.Errorf("input backend %s failed: %w", name, err)
			}
		}()
	}
	for _, backend := range s.options.backends {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case <-backend.Ready():
		}
	}
	close(s.ready)
	s.log.Info("Input service started")

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Subscribe returns the full normalized event stream. Events for a single
// input arrive in chronological order; cross-input ordering follows device
// polling order.
func (s *Service) Subscribe(ctx context.Context) <-chan bus.Message[mapstore.LogicalInput, Event] {
	return s.bus.Subscribe(ctx)
}

// publish is handed to backends. It applies the axis debounce before the
// event reaches the bus.
func (s *Service) publish(ctx context.Context, event Event) {
	if event.Kind == AxisChange {
		if last, ok := s.lastAxis.Load(event.Input); ok && math.Abs(event.Value-last) < s.options.axisEpsilon {
			return
		}
		s.lastAxis.Store(event.Input, event.Value)
	}
	s.bus.Publish(ctx, event.Input, event)
}
