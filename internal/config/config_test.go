package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STK_HUB_URL", "http://localhost:4000")

	tests := []struct {
		name   string
		check  func(*Config) bool
		expect string
	}{
		{
			name:   "default host is 0.0.0.0",
			check:  func(c *Config) bool { return c.Host == "0.0.0.0" },
			expect: "0.0.0.0",
		},
		{
			name:   "default port is 3000",
			check:  func(c *Config) bool { return c.Port == 3000 },
			expect: "3000",
		},
		{
			name:   "default release cache ttl is 60s",
			check:  func(c *Config) bool { return c.ReleaseCacheTTL == 60*time.Second },
			expect: "60s",
		},
		{
			name:   "default rate limit is 600 per 60s",
			check:  func(c *Config) bool { return c.RateLimitMax == 600 && c.RateLimitWindow == 60*time.Second },
			expect: "600/60s",
		},
		{
			name:   "default disable auth is false",
			check:  func(c *Config) bool { return !c.DisableAuth },
			expect: "false",
		},
		{
			name:   "default log format is json",
			check:  func(c *Config) bool { return c.LogFormat == "json" },
			expect: "json",
		},
		{
			name:   "listen addr format",
			check:  func(c *Config) bool { return c.ListenAddr() == "0.0.0.0:3000" },
			expect: "0.0.0.0:3000",
		},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("expected %s", tt.expect)
			}
		})
	}
}

func TestLoadRequiresHubURL(t *testing.T) {
	os.Unsetenv("STK_HUB_URL")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when STK_HUB_URL is unset")
	}
}

func TestLoadPasetoKeys(t *testing.T) {
	t.Setenv("STK_HUB_URL", "http://localhost:4000")
	t.Setenv("STK_PASETO_KEYS", "key_new,key_old")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.PasetoKeys) != 2 || cfg.PasetoKeys[0] != "key_new" || cfg.PasetoKeys[1] != "key_old" {
		t.Errorf("expected [key_new key_old], got %v", cfg.PasetoKeys)
	}
}
