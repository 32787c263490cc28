package config

import "time"

// RateLimitConfig tunes the token bucket guarding the admin API.  Fields
// are read from RATE_LIMIT_* variables.
type RateLimitConfig struct {
    Enabled        bool          `env:"ENABLED" envDefault:"true"`
    Capacity       int           `env:"CAPACITY" envDefault:"60"`
    Burst          int           `env:"BURST" envDefault:"0"` // overrides Capacity when set
    RefillTokens   int           `env:"REFILL_TOKENS" envDefault:"1"`
    RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"1s"`
    RefillEvery    time.Duration `env:"REFILL_EVERY" envDefault:"0s"` // one token per interval shorthand
    TTL            time.Duration `env:"TTL" envDefault:"10m"`
    Prefix         string        `env:"PREFIX" envDefault:"rl"`
    Debug          bool          `env:"DEBUG" envDefault:"false"`
}

func (c *RateLimitConfig) normalize() {
    if c.Burst > 0 { c.Capacity = c.Burst }
    if c.RefillEvery > 0 {
        c.RefillTokens = 1
        c.RefillInterval = c.RefillEvery
    }
    if c.Capacity < 1 { c.Capacity = 1 }
    if c.RefillTokens < 1 { c.RefillTokens = 1 }
    if c.RefillInterval <= 0 { c.RefillInterval = time.Second }
    minTTL := 5 * c.RefillInterval
    if c.TTL < minTTL { c.TTL = minTTL }
}
