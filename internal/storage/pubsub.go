package storage

import (
	"encoding/json"

	"snackbox/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// broadcastChannel carries every realtime fanout unit. Each gateway instance
// subscribes and delivers to its locally connected participants, so events
// raised by HTTP handlers or other instances reach everyone.
const broadcastChannel = "snack:broadcast"

// PublishBroadcast pushes a fanout unit to every subscribed gateway
// instance, including this one. Without a redis connection (CLI use) the
// broadcast is skipped.
func (s *Service) PublishBroadcast(b models.Broadcast) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, broadcastChannel, payload).Err()
}

// SubscribeBroadcasts opens the fanout subscription. The caller owns the
// returned PubSub and must close it.
func (s *Service) SubscribeBroadcasts() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, broadcastChannel)
}
