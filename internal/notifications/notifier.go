// Package notifications delivers realtime events over Redis pub/sub and WebSockets.
package notifications

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	BroadcastChannel  = "notifications:broadcast"
	// SettingsChannel carries the key of a site setting that changed.
	SettingsChannel = "settings:changed"
)

// Notifier publishes payloads into Redis channels and subscribes to them.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client turns every call into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether the notifier is backed by Redis.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a payload to every connected client.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

// PublishSettingsChanged tells every instance that the setting under key was replaced.
func (n *Notifier) PublishSettingsChanged(ctx context.Context, key string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, SettingsChannel, key).Err()
}

// StartPatternSubscriber forwards every user and broadcast message to onMessage
// until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", BroadcastChannel)
	go pump(ctx, sub, "PatternSubscriber", onMessage)
	return nil
}

// Subscribe delivers messages on channel to onMessage until the returned
// function is called or ctx is cancelled. The subscription is confirmed
// before Subscribe returns.
func (n *Notifier) Subscribe(ctx context.Context, channel string, onMessage func(payload string)) (func(), error) {
	if !n.Enabled() {
		return func() {}, nil
	}

	sub := n.rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	go pump(ctx, sub, channel, func(_, payload string) { onMessage(payload) })
	return cancel, nil
}

// SubscribeUser registers onMessage for session events of one user.
func (n *Notifier) SubscribeUser(ctx context.Context, userID uint, onMessage func(payload string)) (func(), error) {
	return n.Subscribe(ctx, UserChannel(userID), onMessage)
}

func pump(ctx context.Context, sub *redis.PubSub, name string, onMessage func(channel, payload string)) {
	defer func() { _ = sub.Close() }()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("PANIC in %s subscriber: %v\n%s", name, r, debug.Stack())
					}
				}()
				onMessage(msg.Channel, msg.Payload)
			}()
		}
	}
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user ID from a user channel name.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
