package services

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/quitmate/utils"
)

// Event types published to connected clients.
const (
	EventBadgeUnlocked     = "badge_unlocked"
	EventCertificateIssued = "certificate_issued"
	EventCheckedIn         = "checked_in"
)

// Notifier delivers an event to the sessions of one user. Delivery is best effort.
type Notifier interface {
	Publish(userID, eventType string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, string, interface{}) {}

// Cache stores derived read models. Implementations must treat failures as misses.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) bool
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration)
	// Generation reads a counter, 0 when absent. ok is false when the cache is unreachable.
	Generation(ctx context.Context, key string) (gen int64, ok bool)
	// BumpGeneration increments a counter and keeps it alive for ttl.
	BumpGeneration(ctx context.Context, key string, ttl time.Duration) error
}

// statsGenerationTTL outlives any cached stats view, so an expired counter never
// revives an entry written under an older generation.
const statsGenerationTTL = 7 * 24 * time.Hour

func statsGenerationKey(userID string) string {
	return "quitmate:stats:gen:" + userID
}

// statsKey names the view of userID on day under generation gen. A write bumps the
// generation, which retires every view computed before it, including ones still being computed.
func statsKey(userID, day string, gen int64) string {
	return "quitmate:stats:" + userID + ":" + day + ":" + strconv.FormatInt(gen, 10)
}

func invalidateStats(ctx context.Context, cache Cache, userID string) {
	if cache == nil {
		return
	}
	if err := cache.BumpGeneration(ctx, statsGenerationKey(userID), statsGenerationTTL); err != nil {
		utils.LoggerFrom(ctx).Warn("stats invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
