package config

import "os"

// Config captures everything main needs from the environment.
type Config struct {
	Addr string
	// DatabaseURL empty means in-memory stores (dev/test only; nothing
	// survives a restart).
	DatabaseURL string
	JWTSecret   string
	// RedisURL empty means the login lockout state stays process-local.
	RedisURL string
}

func FromEnv() Config {
	return Config{
		Addr:        ":" + env("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		RedisURL:    os.Getenv("REDIS_URL"),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
