// Package saga carries the event-dispatch plumbing shared by all
// services: a typed handler registry and the kafka consumer loop that
// feeds it.
package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadPayload marks a payload that can never be decoded; the consumer
// commits such messages instead of redelivering them forever.
var ErrBadPayload = errors.New("malformed event payload")

type HandlerFunc func(ctx context.Context, payload []byte) error

// Registry maps event-type names to handlers. Dispatch is driven by the
// event_type message header, so one registry can serve several topics.
type Registry struct {
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

func (r *Registry) Register(eventType string, h HandlerFunc) {
	r.handlers[eventType] = h
}

// Dispatch runs the handler for eventType. The bool reports whether a
// handler was registered at all.
func (r *Registry) Dispatch(ctx context.Context, eventType string, payload []byte) (bool, error) {
	h, ok := r.handlers[eventType]
	if !ok {
		return false, nil
	}
	return true, h(ctx, payload)
}

// Typed adapts a handler of a concrete event struct to a HandlerFunc.
func Typed[T any](h func(ctx context.Context, ev T) error) HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		var ev T
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return h(ctx, ev)
	}
}
