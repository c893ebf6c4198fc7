package dispatchsvc

import (
	"context"
	"time"

	"github.com/hapticbridge/hapticbridge/internal/inputsvc"
	"github.com/hapticbridge/hapticbridge/internal/mapstore"
	"go.uber.org/zap"
)

// Service owns the engine goroutine. It pumps input events into the
// engine and wakes it whenever scheduled work comes due.
type Service struct {
	log    *zap.Logger
	inputs *inputsvc.Service
	engine *Engine
	ready  chan struct{}
}

func New(log *zap.Logger, store *mapstore.Store, inputs *inputsvc.Service, sinks Sinks) *Service {
	return &Service{
		log:    log,
		inputs: inputs,
		engine: NewEngine(log, store, sinks, time.Now),
		ready:  make(chan struct{}),
	}
}

// Pause suspends stimulus delivery; Resume restores it. Safe from any
// goroutine.
func (s *Service) Pause() {
	s.engine.Pause()
	s.log.Info("Dispatch paused")
}

func (s *Service) Resume() {
	s.engine.Resume()
	s.log.Info("Dispatch resumed")
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Start runs the dispatch loop until the context is cancelled. All engine
// mutation happens here, on this goroutine.
func (s *Service) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-s.inputs.Ready():
	}
	events := s.inputs.Subscribe(ctx)
	close(s.ready)
	s.log.Info("Dispatch service started")

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	defer timer.Stop()

	rearm := func() {
		if armed {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			armed = false
		}
		next, ok := s.engine.NextWake()
		if !ok {
			return
		}
		timer.Reset(time.Until(next))
		armed = true
	}

	for {
		select {
		case <-ctx.Done():
			s.engine.CancelAll()
			return nil
		case msg, ok := <-events:
			if !ok {
				s.engine.CancelAll()
				return nil
			}
			s.engine.Handle(msg.Message)
			rearm()
		case <-timer.C:
			armed = false
			s.engine.Tick(time.Now())
			rearm()
		}
	}
}
