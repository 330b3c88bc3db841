package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the portal service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	CORSOrigins       string
	UpstreamBaseURL   string
	UpstreamTimeout   time.Duration
	RedisURL          string
	NATSURL           string
	SessionTTL        time.Duration
	WorkspaceCacheTTL time.Duration
	DashboardCacheTTL time.Duration
	LiveBoardTTL      time.Duration
	SaveRateLimit     int
	SaveRateWindow    time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "ClassTrack Portal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("upstream.timeout", "10s")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("workspace.cache_ttl", "60s")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("live.board_ttl", "5s")
	v.SetDefault("save.rate_limit", 10)
	v.SetDefault("save.rate_window", "1m")

	upstreamTimeout, err := duration(v, "upstream.timeout")
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := duration(v, "session.ttl")
	if err != nil {
		return Config{}, err
	}
	workspaceTTL, err := duration(v, "workspace.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	dashboardTTL, err := duration(v, "dashboard.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	liveTTL, err := duration(v, "live.board_ttl")
	if err != nil {
		return Config{}, err
	}
	saveWindow, err := duration(v, "save.rate_window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		CORSOrigins:       v.GetString("cors.origins"),
		UpstreamBaseURL:   v.GetString("upstream.base_url"),
		UpstreamTimeout:   upstreamTimeout,
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		SessionTTL:        sessionTTL,
		WorkspaceCacheTTL: workspaceTTL,
		DashboardCacheTTL: dashboardTTL,
		LiveBoardTTL:      liveTTL,
		SaveRateLimit:     v.GetInt("save.rate_limit"),
		SaveRateWindow:    saveWindow,
	}

	if cfg.UpstreamBaseURL == "" {
		return Config{}, fmt.Errorf("upstream base url must be provided")
	}

	if cfg.SaveRateLimit <= 0 {
		cfg.SaveRateLimit = 10
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
