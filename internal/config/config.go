// Package config is the configuration shared by portald and portal-cli. Values are
// read from a json5 file (plus its .local override) and then from the environment.
package config

import (
	"path/filepath"
	"portalbot-backend/internal/components/telemetry"
	"portalbot-backend/internal/scrapers/caskan"
	"portalbot-backend/internal/scrapers/estama"
	"portalbot-backend/internal/scrapers/session"
	"portalbot-backend/pkg/configutil"
	"portalbot-backend/pkg/restyutil"
	"time"
)

type CaskanConfig struct {
	BaseUrl  string `json:"base_url" env:"CASKAN_BASE_URL" validate:"omitempty,url"`
	ShopId   string `json:"shop_id" env:"CASKAN_SHOP_ID" validate:"required"`
	LoginId  string `json:"login_id" env:"CASKAN_LOGIN_ID" validate:"required"`
	Password string `json:"password" env:"CASKAN_PASSWORD" validate:"required"`
}

type EstamaConfig struct {
	BaseUrl          string   `json:"base_url" env:"ESTAMA_BASE_URL" validate:"omitempty,url"`
	LoginId          string   `json:"login_id" env:"ESTAMA_LOGIN_ID" validate:"required"`
	Password         string   `json:"password" env:"ESTAMA_PASSWORD" validate:"required"`
	ShopNameKeywords []string `json:"shop_name_keywords" env:"ESTAMA_SHOP_NAME_KEYWORDS" envSeparator:","`
}

type SessionConfig struct {
	TimeoutSeconds      int     `json:"timeout_seconds" env:"PORTAL_TIMEOUT_SECONDS" validate:"gte=1"`
	ProbeTimeoutSeconds int     `json:"probe_timeout_seconds" env:"PORTAL_PROBE_TIMEOUT_SECONDS" validate:"gte=1"`
	RequestsPerSecond   float64 `json:"requests_per_second" env:"PORTAL_REQUESTS_PER_SECOND" validate:"gte=0"`
	CloudflareBypass    bool    `json:"cloudflare_bypass" env:"PORTAL_CLOUDFLARE_BYPASS"`
	UserAgent           string  `json:"user_agent" env:"PORTAL_USER_AGENT"`
	// DumpDir receives every page exchange as a file per portal, empty disables dumping.
	DumpDir string `json:"dump_dir" env:"PORTAL_DUMP_DIR"`
}

type ServerConfig struct {
	Port            int `json:"port" env:"PORTALD_PORT" validate:"gte=1,lte=65535"`
	CacheTTLSeconds int `json:"cache_ttl_seconds" env:"PORTALD_CACHE_TTL_SECONDS" validate:"gte=0"`
	CacheSize       int `json:"cache_size" validate:"gte=0"`
}

type KeepAliveConfig struct {
	// Cron is a standard 5 field cron spec, empty disables the keepalive.
	Cron           string `json:"cron" env:"PORTALD_KEEPALIVE_CRON"`
	TimeoutSeconds int    `json:"timeout_seconds" validate:"gte=1"`
}

type SnapshotConfig struct {
	// Database is the path of the sqlite database, empty disables snapshots.
	Database     string `json:"database" env:"PORTALD_SNAPSHOT_DB"`
	KeepPerMonth int    `json:"keep_per_month" validate:"gte=0"`
}

type Config struct {
	Caskan    CaskanConfig            `json:"caskan"`
	Estama    EstamaConfig            `json:"estama"`
	Session   SessionConfig           `json:"session"`
	Server    ServerConfig            `json:"server"`
	KeepAlive KeepAliveConfig         `json:"keepalive"`
	Snapshots SnapshotConfig          `json:"snapshots"`
	Log       telemetry.LogFileConfig `json:"log"`
}

func setDefaults(c *Config) {
	if c.Session.TimeoutSeconds == 0 {
		c.Session.TimeoutSeconds = 15
	}
	if c.Session.ProbeTimeoutSeconds == 0 {
		c.Session.ProbeTimeoutSeconds = 10
	}
	if c.Session.RequestsPerSecond == 0 {
		c.Session.RequestsPerSecond = 2
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.CacheSize == 0 {
		c.Server.CacheSize = 64
	}
	if c.KeepAlive.TimeoutSeconds == 0 {
		c.KeepAlive.TimeoutSeconds = 60
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 20
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
}

// Load reads the config file at path, a missing file is fine as long as the
// environment provides the required values.
func Load(path string) (Config, error) {
	return configutil.Load[Config](path, setDefaults)
}

func (c SessionConfig) Options() session.Options {
	return session.Options{
		UserAgent:         c.UserAgent,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		ProbeTimeout:      time.Duration(c.ProbeTimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		CloudflareBypass:  c.CloudflareBypass,
	}
}

// portalOptions is Options with the dump output of a single portal.
func (c SessionConfig) portalOptions(portal, baseUrl string) (session.Options, error) {
	opts := c.Options()
	opts.BaseUrl = baseUrl
	if c.DumpDir == "" {
		return opts, nil
	}
	dump, err := restyutil.NewFilesystemOutput(filepath.Join(c.DumpDir, portal))
	if err != nil {
		return session.Options{}, err
	}
	opts.Dump = dump
	return opts, nil
}

func (c Config) CaskanClient(tel telemetry.API) (*caskan.Client, error) {
	opts, err := c.Session.portalOptions(caskan.Name, c.Caskan.BaseUrl)
	if err != nil {
		return nil, err
	}
	return caskan.NewClient(caskan.Credentials{
		ShopCode: c.Caskan.ShopId,
		LoginId:  c.Caskan.LoginId,
		Password: c.Caskan.Password,
	}, opts, tel)
}

func (c Config) EstamaClient(tel telemetry.API) (*estama.Client, error) {
	opts, err := c.Session.portalOptions(estama.Name, c.Estama.BaseUrl)
	if err != nil {
		return nil, err
	}
	return estama.NewClient(estama.Options{
		Credentials: estama.Credentials{
			Mail:     c.Estama.LoginId,
			Password: c.Estama.Password,
		},
		ShopNameKeywords: c.Estama.ShopNameKeywords,
	}, opts, tel)
}
