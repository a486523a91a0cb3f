package types

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ChannelPrefix starts every live update channel: "depositview:<feed>:feed.updated".
const ChannelPrefix = "depositview"

// FeedUpdatedEvent is the name of the live update event.
const FeedUpdatedEvent = "feed.updated"

// FeedUpdated is published after a feed refreshes.
type FeedUpdated struct {
	Feed      string `json:"feed"`
	Key       string `json:"key"`
	UpdatedAt int64  `json:"updatedAt"`
}

// FeedChannel returns the Pub/Sub channel for feed.
func FeedChannel(feed string) string {
	return ChannelPrefix + ":" + feed + ":" + FeedUpdatedEvent
}

// PublishFeedUpdate announces a refreshed cache key. Keys look like
// "recentDeposits:5"; the part before the first colon names the feed.
func (a *App) PublishFeedUpdate(key string, at time.Time) {
	if a.RedisClient == nil {
		return
	}
	name, _, _ := strings.Cut(key, ":")
	payload, err := json.Marshal(FeedUpdated{Feed: name, Key: key, UpdatedAt: at.UnixMilli()})
	if err != nil {
		a.Logger.Error("Failed to encode feed update", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	a.RedisClient.Publish(ctx, FeedChannel(name), payload)
}
