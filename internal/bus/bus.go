// Package bus propagates grade events between portal nodes. Every
// successful grade save is published over redis pub/sub and NATS; each node
// consumes both feeds, filters out its own events by node id, and fans the
// rest out to local subscribers (live grading pages) and registered
// handlers (cache invalidation).
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/classtrack/portal-api/internal/observability"
)

const subscriberBufferSize = 16

// GradeEvent describes one committed grade save.
type GradeEvent struct {
	Source       string    `json:"source"`
	AssignmentID int64     `json:"assignment_id"`
	SubmissionID int64     `json:"submission_id"`
	StudentID    int64     `json:"student_id"`
	Grade        float64   `json:"grade"`
	GradedBy     string    `json:"graded_by"`
	SentAt       time.Time `json:"sent_at"`
}

// Bus connects local grade activity to the rest of the fleet. Both wire
// transports are optional: with neither configured the bus still serves
// same-node subscribers.
type Bus struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	natsQueue    string
	logger       zerolog.Logger
	broker       *gradeBroker
	nodeID       string

	mu       sync.RWMutex
	handlers []func(GradeEvent)
}

type gradeBroker struct {
	mu          sync.RWMutex
	subscribers map[int64]map[chan GradeEvent]struct{}
}

// New constructs a grade event bus. channelBase names the shared channel
// namespace, e.g. "portal" yields redis channel "portal:grades" and NATS
// subject "portal.grades".
func New(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) *Bus {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":grades"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".grades"
	}

	return &Bus{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		natsQueue:    "portal-grades",
		logger:       logger.With().Str("component", "grade_bus").Logger(),
		broker: &gradeBroker{
			subscribers: make(map[int64]map[chan GradeEvent]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

// Start launches the wire consumers. They stop when ctx is cancelled.
func (b *Bus) Start(ctx context.Context) {
	if b.redis != nil && b.redisChannel != "" {
		go b.consumeRedis(ctx)
	}
	if b.nats != nil && b.natsSubject != "" {
		go b.consumeNATS(ctx)
	}
}

// Publish stamps the event with this node's identity, delivers it to local
// subscribers, and pushes it onto the wire for the rest of the fleet.
func (b *Bus) Publish(ctx context.Context, event GradeEvent) error {
	event.Source = b.nodeID
	event.SentAt = time.Now().UTC()

	observability.GradeEvents().WithLabelValues("local").Inc()
	b.broker.broadcast(event.AssignmentID, event)

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe delivers grade events for one assignment until the returned
// cleanup runs. Slow subscribers drop events rather than block the bus.
func (b *Bus) Subscribe(assignmentID int64) (<-chan GradeEvent, func()) {
	channel := make(chan GradeEvent, subscriberBufferSize)

	b.broker.subscribe(assignmentID, channel)
	observability.GradingStreamClients().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			b.broker.unsubscribe(assignmentID, channel)
			observability.GradingStreamClients().Dec()
		})
	}

	return channel, cleanup
}

// OnEvent registers a handler invoked for events from OTHER nodes. Local
// saves are not replayed to handlers: the publishing service already acted
// on its own write.
func (b *Bus) OnEvent(handler func(GradeEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

func (b *Bus) consumeRedis(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Error().Err(err).Msg("grade event redis subscription closed")
			return
		}
		b.handleEvent([]byte(msg.Payload))
	}
}

func (b *Bus) consumeNATS(ctx context.Context) {
	sub, err := b.nats.QueueSubscribe(b.natsSubject, b.natsQueue, func(msg *nats.Msg) {
		b.handleEvent(msg.Data)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to nats grade subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain grade nats subscription")
		}
	}()
}

func (b *Bus) handleEvent(payload []byte) {
	var event GradeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logger.Warn().Err(err).Msg("invalid grade event payload")
		return
	}

	if event.Source == b.nodeID {
		return
	}

	observability.GradeEvents().WithLabelValues("remote").Inc()

	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, handler := range handlers {
		handler(event)
	}

	b.broker.broadcast(event.AssignmentID, event)
}

func (g *gradeBroker) subscribe(assignmentID int64, ch chan GradeEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.subscribers[assignmentID]; !exists {
		g.subscribers[assignmentID] = make(map[chan GradeEvent]struct{})
	}
	g.subscribers[assignmentID][ch] = struct{}{}
}

func (g *gradeBroker) unsubscribe(assignmentID int64, ch chan GradeEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if subscribers, ok := g.subscribers[assignmentID]; ok {
		if _, present := subscribers[ch]; present {
			delete(subscribers, ch)
			close(ch)
		}
		if len(subscribers) == 0 {
			delete(g.subscribers, assignmentID)
		}
	}
}

func (g *gradeBroker) broadcast(assignmentID int64, event GradeEvent) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for ch := range g.subscribers[assignmentID] {
		select {
		case ch <- event:
		default:
		}
	}
}
