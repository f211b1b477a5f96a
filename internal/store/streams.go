package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"citizenly-registry/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AuditStream is the Redis stream that carries registry change events.
const AuditStream = "citizenly:audit"

// AuditPublisher records who changed what. Implementations must not
// fail the caller's request: audit is best-effort by contract.
type AuditPublisher interface {
	Publish(ctx context.Context, event *domain.AuditEvent)
}

// StreamAuditPublisher appends events to a Redis stream so downstream
// consumers (reporting, sync to city systems) can replay them.
type StreamAuditPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewStreamAuditPublisher(client *redis.Client, logger *zap.Logger) *StreamAuditPublisher {
	return &StreamAuditPublisher{client: client, logger: logger}
}

var _ AuditPublisher = (*StreamAuditPublisher)(nil)

func (p *StreamAuditPublisher) Publish(ctx context.Context, event *domain.AuditEvent) {
	if event == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	id, err := publishJSONToStream(ctx, p.client, AuditStream, event)
	if err != nil {
		// log and move on: a dead Redis must not block registry writes
		p.logger.Warn("Failed to publish audit event",
			zap.String("action", event.Action),
			zap.String("resource_type", event.ResourceType),
			zap.String("resource_id", event.ResourceID),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("Published audit event",
		zap.String("stream_id", id),
		zap.String("action", event.Action),
		zap.String("resource_type", event.ResourceType),
		zap.String("resource_id", event.ResourceID),
	)
}

func publishJSONToStream(ctx context.Context, client *redis.Client, stream string, data interface{}) (string, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stream payload: %w", err)
	}

	return client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"data":      string(jsonBytes),
			"timestamp": time.Now().Unix(),
		},
	}).Result()
}

// MemoryAuditPublisher collects events in memory for tests and for
// running without Redis.
type MemoryAuditPublisher struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func NewMemoryAuditPublisher() *MemoryAuditPublisher {
	return &MemoryAuditPublisher{}
}

var _ AuditPublisher = (*MemoryAuditPublisher)(nil)

func (p *MemoryAuditPublisher) Publish(_ context.Context, event *domain.AuditEvent) {
	if event == nil {
		return
	}
	stored := *event
	if stored.At.IsZero() {
		stored.At = time.Now()
	}

	p.mu.Lock()
	p.events = append(p.events, stored)
	p.mu.Unlock()
}

// Events returns a copy of everything published so far.
func (p *MemoryAuditPublisher) Events() []domain.AuditEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.AuditEvent, len(p.events))
	copy(out, p.events)
	return out
}
