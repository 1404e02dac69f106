package config

import (
	"strconv"
	"time"
)

type SecurityConfig interface {
	GetAdminAPIKeyHash() string
	GetEnableRateLimiting() bool
	GetRateLimitPerMinute() int
	GetRateLimitBurst() int
	GetStateTimeout() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetAdminAPIKeyHash returns the bcrypt hash the X-Admin-Key header is
// compared against. Admin routes are unavailable when no hash is configured.
func (Security) GetAdminAPIKeyHash() string {
	return GetEnv("ADMIN_API_KEY_HASH", "")
}

func (Security) GetEnableRateLimiting() bool {
	return GetEnv("ENABLE_RATE_LIMITING", "true") != "false"
}

func (Security) GetRateLimitPerMinute() int {
	if v, err := strconv.Atoi(GetEnv("RATE_LIMIT_PER_MINUTE", "")); err == nil && v > 0 {
		return v
	}
	return 120
}

func (Security) GetRateLimitBurst() int {
	if v, err := strconv.Atoi(GetEnv("RATE_LIMIT_BURST", "")); err == nil && v > 0 {
		return v
	}
	return 30
}

// GetStateTimeout bounds how long an OAuth state parameter stays valid.
func (Security) GetStateTimeout() time.Duration {
	return 15 * time.Minute
}
