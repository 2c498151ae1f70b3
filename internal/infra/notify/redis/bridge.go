// Package redis carries change events between processes over a Redis pub/sub
// channel. Local hub events are published to the channel; messages from other
// processes are re-published into the local hub.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"aeracore/internal/notify"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "aera:changes"

const (
	defaultQueue   = 64
	publishTimeout = 2 * time.Second
)

// Option customises a Bridge.
type Option func(*Bridge)

// WithChannel overrides the pub/sub channel.
func WithChannel(channel string) Option {
	return func(b *Bridge) {
		if channel != "" {
			b.channel = channel
		}
	}
}

// WithLogger sets the logger used for transport failures.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bridge relays events between a notify.Hub and Redis.
type Bridge struct {
	client  goredis.UniversalClient
	hub     *notify.Hub
	channel string
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	queue   chan notify.Event
	stopCh  chan struct{}
	wg      sync.WaitGroup
	unsub   func()
	pubsub  *goredis.PubSub
}

// NewClient dials nothing; go-redis connects lazily on first use.
func NewClient(addr string) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: addr})
}

// New constructs a bridge for hub over client.
func New(client goredis.UniversalClient, hub *notify.Hub, opts ...Option) *Bridge {
	b := &Bridge{
		client:  client,
		hub:     hub,
		channel: DefaultChannel,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Channel returns the pub/sub channel name.
func (b *Bridge) Channel() string { return b.channel }

// Forward publishes ev to the channel.
func (b *Bridge) Forward(ctx context.Context, ev notify.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, string(payload)).Err()
}

// Start subscribes to the channel and begins relaying in both directions. It
// returns once the subscription is confirmed.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return errors.New("redis bridge already running")
	}
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	b.pubsub = pubsub
	b.queue = make(chan notify.Event, defaultQueue)
	b.stopCh = make(chan struct{})
	b.unsub = b.hub.Subscribe(b.enqueue)
	b.running = true

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.drain(b.stopCh)
	}()
	go func() {
		defer b.wg.Done()
		b.consume(b.stopCh, pubsub.Channel())
	}()
	b.logger.Info("redis bridge started", zap.String("channel", b.channel))
	return nil
}

// Stop unsubscribes and waits for the relay goroutines to exit.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.unsub()
	close(b.stopCh)
	pubsub := b.pubsub
	b.mu.Unlock()

	_ = pubsub.Close()
	b.wg.Wait()
	b.logger.Info("redis bridge stopped", zap.String("channel", b.channel))
}

// enqueue is the hub listener. Only locally originated events are forwarded,
// otherwise events received from Redis would echo back onto the channel.
func (b *Bridge) enqueue(ev notify.Event) {
	if !b.hub.Local(ev) {
		return
	}
	select {
	case b.queue <- ev:
	default:
		b.logger.Warn("redis bridge queue full, dropping event",
			zap.String("key", ev.Key), zap.Int64("revision", ev.Revision))
	}
}

func (b *Bridge) drain(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case ev := <-b.queue:
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			if err := b.Forward(ctx, ev); err != nil {
				b.logger.Warn("redis publish failed", zap.String("key", ev.Key), zap.Error(err))
			}
			cancel()
		}
	}
}

func (b *Bridge) consume(stop <-chan struct{}, msgs <-chan *goredis.Message) {
	for {
		select {
		case <-stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			b.handleMessage(msg.Payload)
		}
	}
}

func (b *Bridge) handleMessage(payload string) {
	var ev notify.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		b.logger.Warn("redis bridge ignored malformed event", zap.Error(err))
		return
	}
	if ev.Origin == "" || b.hub.Local(ev) {
		return
	}
	b.hub.Publish(ev)
}
