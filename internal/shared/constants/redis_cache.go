package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// This file centralizes all Redis cache keys and TTL values for StableHub
// Pattern: stablehub:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_DYNAMIC_MEDIUM = 10 * time.Minute // 10 minutes - for analytics
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "stablehub"
)

// ================== ANALYTICS MODULE ==================

const (
	CACHE_KEY_ANALYTICS_STABLE = CACHE_PREFIX + ":analytics:stable:" // + stable-id:facility:X:from:Y:to:Z
)

// ================== RATE LIMIT MODULE ==================

const (
	CACHE_KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:" // + type:ip
)

// ================== KEY BUILDERS ==================

// BuildAnalyticsKey keys one analytics query. facilityID may be empty.
func BuildAnalyticsKey(stableID, facilityID, from, to string) string {
	if facilityID == "" {
		facilityID = "all"
	}
	return fmt.Sprintf("%s%s:facility:%s:from:%s:to:%s", CACHE_KEY_ANALYTICS_STABLE, stableID, facilityID, from, to)
}

// AnalyticsStablePattern matches every cached analytics query of a stable.
func AnalyticsStablePattern(stableID string) string {
	return CACHE_KEY_ANALYTICS_STABLE + stableID + ":*"
}

func BuildRateLimitKey(limitType, clientIP string) string {
	return CACHE_KEY_RATE_LIMIT + limitType + ":" + clientIP
}
