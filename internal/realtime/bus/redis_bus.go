package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/realtime"
)

// envelope wraps events on the wire with the publishing instance so a
// forwarder can drop its own traffic. Local subscribers already got
// the event through the hub.
type envelope struct {
	Origin string                 `json:"origin"`
	Event  realtime.ProgressEvent `json:"event"`
}

type redisBus struct {
	log        *logger.Logger
	rdb        *goredis.Client
	channel    string
	instanceID string
}

// NewRedisBus connects to REDIS_ADDR and mirrors job events on a
// pub/sub channel (REDIS_CHANNEL, default "autoclipper:jobs").
func NewRedisBus(log *logger.Logger) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))
	if ch == "" {
		ch = "autoclipper:jobs"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:        log.With("service", "RedisEventBus"),
		rdb:        rdb,
		channel:    ch,
		instanceID: uuid.NewString(),
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, event realtime.ProgressEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	raw, err := json.Marshal(envelope{Origin: b.instanceID, Event: event})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// decodeRemote unwraps a wire payload and reports whether it should be
// forwarded. Self-originated messages are dropped.
func (b *redisBus) decodeRemote(payload []byte) (realtime.ProgressEvent, bool, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return realtime.ProgressEvent{}, false, err
	}
	if env.Origin == b.instanceID {
		return realtime.ProgressEvent{}, false, nil
	}
	return env.Event, true, nil
}

func (b *redisBus) StartForwarder(ctx context.Context, onEvent func(event realtime.ProgressEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				event, forward, err := b.decodeRemote([]byte(m.Payload))
				if err != nil {
					b.log.Warn("bad redis event payload", "error", err)
					continue
				}
				if !forward {
					continue
				}
				onEvent(event)
			}
		}
	}()

	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
