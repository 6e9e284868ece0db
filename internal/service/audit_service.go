package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/merchant-console/internal/events"
	"github.com/spec-kit/merchant-console/internal/observability"
)

const defaultAuditCapacity = 200

// AuditService records session lifecycle events: every event is logged, and the most recent
// ones are kept in memory for the admin audit view.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu       sync.Mutex
	capacity int
	recent   []events.Event
}

// NewAuditService creates the service. A capacity <= 0 uses the default.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, capacity int) *AuditService {
	if capacity <= 0 {
		capacity = defaultAuditCapacity
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     observability.OrNop(logger),
		capacity:   capacity,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSessionStarted, a.handleSessionStarted)
	a.dispatcher.Subscribe(events.EventSessionCleared, a.handleSessionCleared)
	a.dispatcher.Subscribe(events.EventSessionExpired, a.handleSessionExpired)
}

// Recent returns up to limit events, newest first. limit <= 0 returns all retained events.
func (a *AuditService) Recent(limit int) []events.Event {
	a.mu.Lock()
	defer a.mu.Unlock()

	if limit <= 0 || limit > len(a.recent) {
		limit = len(a.recent)
	}
	out := make([]events.Event, 0, limit)
	for i := len(a.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.recent[i])
	}
	return out
}

func (a *AuditService) handleSessionStarted(_ context.Context, event events.Event) error {
	a.logger.Info("SessionStarted", fields(event)...)
	a.remember(event)
	return nil
}

func (a *AuditService) handleSessionCleared(_ context.Context, event events.Event) error {
	a.logger.Info("SessionCleared", fields(event)...)
	a.remember(event)
	return nil
}

func (a *AuditService) handleSessionExpired(_ context.Context, event events.Event) error {
	a.logger.Info("SessionExpired", fields(event)...)
	a.remember(event)
	return nil
}

func (a *AuditService) remember(event events.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recent = append(a.recent, event)
	if over := len(a.recent) - a.capacity; over > 0 {
		a.recent = append(a.recent[:0:0], a.recent[over:]...)
	}
}

func fields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("scope", event.Scope),
		zap.String("user_id", event.UserID),
		zap.String("role", string(event.Role)),
		zap.Any("payload", event.Payload),
	}
}
