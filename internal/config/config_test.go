package config

import (
    "strings"
    "testing"
    "time"
)

func setRequired(t *testing.T) {
    t.Helper()
    for k, v := range map[string]string{
        "BOT_TOKEN":     "123:abc",
        "ADMIN_CHAT_ID": "-1001",
        "DB_USER":       "bot",
        "DB_HOST":       "localhost",
        "DB_PORT":       "3306",
        "DB_NAME":       "wave",
        "JWT_SECRET":    "secret",
    } {
        t.Setenv(k, v)
    }
}

func TestParseDefaults(t *testing.T) {
    setRequired(t)
    cfg, err := Parse()
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if cfg.Port != "8080" || cfg.BotMode != ModePolling || cfg.SessionBackend != BackendRedis {
        t.Fatalf("defaults = %+v", cfg)
    }
    if cfg.AdminChatID != -1001 || cfg.StatusQueue != "reservation.status" {
        t.Fatalf("cfg = %+v", cfg)
    }
    if cfg.SessionTTL != 0 || cfg.RepositoryTimeout != 5*time.Second || cfg.SendTimeout != 10*time.Second {
        t.Fatalf("timeouts = %v %v %v", cfg.SessionTTL, cfg.RepositoryTimeout, cfg.SendTimeout)
    }
    if cfg.RabbitURL == "" || cfg.Redis.Address() != "localhost:6379" {
        t.Fatalf("broker = %q redis = %q", cfg.RabbitURL, cfg.Redis.Address())
    }
    if cfg.SessionLockTTL != 30*time.Second || cfg.SessionLockWait != 10*time.Second || cfg.DispatchQueue != 64 {
        t.Fatalf("session lock = %v/%v queue = %d", cfg.SessionLockTTL, cfg.SessionLockWait, cfg.DispatchQueue)
    }
    if cfg.AccessTTL() != time.Hour {
        t.Fatalf("access ttl = %v", cfg.AccessTTL())
    }
}

func TestParseMissingRequired(t *testing.T) {
    setRequired(t)
    t.Setenv("BOT_TOKEN", "")
    _, err := Parse()
    if err == nil || !strings.Contains(err.Error(), "BOT_TOKEN") {
        t.Fatalf("err = %v, want BOT_TOKEN error", err)
    }
}

func TestParseRejectsBadModes(t *testing.T) {
    setRequired(t)
    t.Setenv("BOT_MODE", "webhook")
    t.Setenv("SESSION_BACKEND", "etcd")
    _, err := Parse()
    if err == nil {
        t.Fatal("expected error")
    }
    for _, want := range []string{"WEBHOOK_SECRET", "SESSION_BACKEND"} {
        if !strings.Contains(err.Error(), want) {
            t.Errorf("err %q does not mention %s", err, want)
        }
    }
}

func TestRedisAddressPrefersHostPort(t *testing.T) {
    setRequired(t)
    t.Setenv("REDIS_HOST", "cache")
    t.Setenv("REDIS_PORT", "6380")
    cfg, err := Parse()
    if err != nil {
        t.Fatal(err)
    }
    if got := cfg.Redis.Address(); got != "cache:6380" {
        t.Fatalf("address = %q", got)
    }
}

func TestRateLimitNormalize(t *testing.T) {
    setRequired(t)
    t.Setenv("RATE_LIMIT_BURST", "5")
    t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")
    cfg, err := Parse()
    if err != nil {
        t.Fatal(err)
    }
    rl := cfg.RateLimit
    if rl.Capacity != 5 || rl.RefillTokens != 1 || rl.RefillInterval != 2*time.Second || rl.TTL != 10*time.Second {
        t.Fatalf("rate limit = %+v", rl)
    }
}

func TestParseRejectsLockShorterThanInsert(t *testing.T) {
    cases := []struct {
        name    string
        repo    string
        lockTTL string
        ok      bool
    }{
        {"defaults", "5s", "30s", true},
        {"exactly twice", "15s", "30s", true},
        {"repository timeout above lock", "45s", "30s", false},
        {"too little headroom", "20s", "30s", false},
        {"longer lock", "45s", "2m", true},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            setRequired(t)
            t.Setenv("REPOSITORY_TIMEOUT", tc.repo)
            t.Setenv("SESSION_LOCK_TTL", tc.lockTTL)
            _, err := Parse()
            if tc.ok && err != nil {
                t.Fatalf("unexpected error: %v", err)
            }
            if !tc.ok && (err == nil || !strings.Contains(err.Error(), "SESSION_LOCK_TTL")) {
                t.Fatalf("err = %v, want SESSION_LOCK_TTL error", err)
            }
        })
    }
}
