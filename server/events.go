package server

import (
	"context"
	"sync"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"

	"github.com/AvaProtocol/aa-keyring/core/keyring"
	"github.com/AvaProtocol/aa-keyring/pkg/logger"
)

type Event struct {
	Kind    keyring.EventKind      `json:"kind"`
	Payload map[string]interface{} `json:"payload"`
	At      time.Time              `json:"at"`
}

// EventLog is the keyring emitter of a standalone node. It logs account
// lifecycle events and keeps the most recent ones for GET /events.
type EventLog struct {
	logger sdklogging.Logger

	mu     sync.Mutex
	events []Event
	size   int
}

const DefaultEventLogSize = 100

func NewEventLog(l sdklogging.Logger, size int) *EventLog {
	if size <= 0 {
		size = DefaultEventLogSize
	}
	return &EventLog{logger: logger.EnsureLogger(l), size: size}
}

func (l *EventLog) Emit(ctx context.Context, kind keyring.EventKind, payload map[string]interface{}) error {
	l.logger.Info("account event", "event", kind)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Event{Kind: kind, Payload: payload, At: time.Now().UTC()})
	if len(l.events) > l.size {
		l.events = l.events[len(l.events)-l.size:]
	}
	return nil
}

// Recent returns the retained events, oldest first.
func (l *EventLog) Recent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
