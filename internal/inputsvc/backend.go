package inputsvc

import "context"

// PublishFunc delivers a normalized event into the service.
type PublishFunc func(ctx context.Context, event Event)

// Backend produces normalized events from one family of raw input devices.
// Start blocks until the context is cancelled; Ready closes once the
// backend has acquired its devices. Start returning an error is fatal to
// the agent: losing a configured input device leaves nothing to bridge.
type Backend interface {
	Start(ctx context.Context, publish PublishFunc) error
	Ready() <-chan struct{}
}
