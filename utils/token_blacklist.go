package utils

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const revokedKeyPrefix = "quitmate:jwt:revoked:"

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.Mutex
)

// BlacklistToken revokes a token until its natural expiry to support logout.
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	// Prefer Redis so revocation is shared across instances.
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := rc.Set(ctx, revokedKeyPrefix+token, "1", ttl).Err()
		if err == nil {
			return
		}
		Logger.Warn("token revoke in redis failed, using memory", zap.Error(err))
	}
	revokedMu.Lock()
	sweepRevokedLocked(time.Now())
	revoked[token] = expiresAt
	revokedMu.Unlock()
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
func IsTokenBlacklisted(token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, revokedKeyPrefix+token).Result()
		if err == nil && n > 0 {
			return true
		}
		// Fail open on Redis errors; the memory list still covers local revocations.
	}
	revokedMu.Lock()
	defer revokedMu.Unlock()
	exp, ok := revoked[token]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(revoked, token)
		return false
	}
	return true
}

func sweepRevokedLocked(now time.Time) {
	for token, exp := range revoked {
		if now.After(exp) {
			delete(revoked, token)
		}
	}
}
