package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitClass configures one independent group of routes. Classes never
// share counters.
type RateLimitClass struct {
    Name    string
    Window  time.Duration
    Max     int
    Message string
}

type RateLimitConfig struct {
    Enabled bool
    Prefix  string
    Auth    RateLimitClass // register, login, refresh, logout
    API     RateLimitClass // every other API route
}

func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled: envBool("RATE_LIMIT_ENABLED", true),
        Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
        Auth: RateLimitClass{
            Name:    "auth",
            Window:  envDur("RATE_LIMIT_AUTH_WINDOW", 15*time.Minute),
            Max:     envInt("RATE_LIMIT_AUTH_MAX", 5),
            Message: "Too many authentication attempts, please try again later.",
        },
        API: RateLimitClass{
            Name:    "api",
            Window:  envDur("RATE_LIMIT_API_WINDOW", 15*time.Minute),
            Max:     envInt("RATE_LIMIT_API_MAX", 100),
            Message: "Too many requests, please try again later.",
        },
    }
    for _, c := range []*RateLimitClass{&def.Auth, &def.API} {
        if c.Max < 1 { c.Max = 1 }
        if c.Window <= 0 { c.Window = time.Minute }
    }
    return def
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
