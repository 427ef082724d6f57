package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/tokenstore"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML layout read by --config. Zero values keep the
// library defaults.
type fileConfig struct {
	API struct {
		BaseURL   string        `yaml:"base_url"`
		Path      string        `yaml:"path"`
		Timeout   time.Duration `yaml:"timeout"`
		UserAgent string        `yaml:"user_agent"`
	} `yaml:"api"`
	Session struct {
		RollbackLoginOnFetchFailure *bool         `yaml:"rollback_login_on_fetch_failure"`
		DiscardExpiredTokens        *bool         `yaml:"discard_expired_tokens"`
		ClockSkew                   time.Duration `yaml:"clock_skew"`
		CoalesceFetches             *bool         `yaml:"coalesce_fetches"`
	} `yaml:"session"`
	Token struct {
		VerifyMethod string `yaml:"verify_method"`
		VerifyKey    string `yaml:"verify_key"`
		Issuer       string `yaml:"issuer"`
		Audience     string `yaml:"audience"`
	} `yaml:"token"`
	Storage storageOptions `yaml:"storage"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Serve struct {
		Addr string `yaml:"addr"`
	} `yaml:"serve"`
}

// storageOptions selects and configures the durable token backend.
type storageOptions struct {
	Backend     string        `yaml:"backend"`
	Key         string        `yaml:"key"`
	Dir         string        `yaml:"dir"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisPrefix string        `yaml:"redis_prefix"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
	DSN         string        `yaml:"dsn"`
}

const (
	backendFile     = "file"
	backendRedis    = "redis"
	backendSQLite   = "sqlite"
	backendPostgres = "postgres"

	defaultServeAddr  = "127.0.0.1:8787"
	defaultAPITimeout = 10 * time.Second
)

// settings is the resolved CLI configuration.
type settings struct {
	Session   goSession.Config
	Storage   storageOptions
	ServeAddr string
}

// overrides carries values from flags. Empty strings mean "not set".
type overrides struct {
	APIBase   string
	Storage   string
	RedisAddr string
	DSN       string
	Dir       string
}

// loadSettings reads path (optional), then applies environment variables and
// finally flag overrides.
func loadSettings(path string, getenv func(string) string, flags overrides) (settings, error) {
	var fc fileConfig
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return settings{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg := goSession.DefaultConfig()
	cfg.API.Timeout = defaultAPITimeout
	cfg.Metrics.Enabled = true
	s := settings{
		Session:   cfg,
		Storage:   fc.Storage,
		ServeAddr: fc.Serve.Addr,
	}
	applyFileConfig(&s.Session, fc)

	if v := getenv("GOSESSION_API_BASE"); v != "" {
		s.Session.API.BaseURL = v
	}
	if v := getenv("GOSESSION_STORAGE"); v != "" {
		s.Storage.Backend = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		s.Storage.RedisAddr = v
	}
	if v := getenv("GOSESSION_DSN"); v != "" {
		s.Storage.DSN = v
	}

	if flags.APIBase != "" {
		s.Session.API.BaseURL = flags.APIBase
	}
	if flags.Storage != "" {
		s.Storage.Backend = flags.Storage
	}
	if flags.RedisAddr != "" {
		s.Storage.RedisAddr = flags.RedisAddr
	}
	if flags.DSN != "" {
		s.Storage.DSN = flags.DSN
	}
	if flags.Dir != "" {
		s.Storage.Dir = flags.Dir
	}

	if s.ServeAddr == "" {
		s.ServeAddr = defaultServeAddr
	}
	if err := s.normalizeStorage(); err != nil {
		return settings{}, err
	}
	s.Session.Storage.Key = s.Storage.Key
	if s.Storage.RedisPrefix != "" {
		s.Session.Storage.RedisPrefix = s.Storage.RedisPrefix
	} else {
		s.Storage.RedisPrefix = s.Session.Storage.RedisPrefix
	}
	s.Session.Storage.RedisTTL = s.Storage.RedisTTL

	if err := s.Session.Validate(); err != nil {
		return settings{}, err
	}
	return s, nil
}

func applyFileConfig(cfg *goSession.Config, fc fileConfig) {
	if fc.API.BaseURL != "" {
		cfg.API.BaseURL = fc.API.BaseURL
	}
	if fc.API.Path != "" {
		cfg.API.Path = fc.API.Path
	}
	if fc.API.Timeout > 0 {
		cfg.API.Timeout = fc.API.Timeout
	}
	if fc.API.UserAgent != "" {
		cfg.API.UserAgent = fc.API.UserAgent
	}
	if fc.Session.RollbackLoginOnFetchFailure != nil {
		cfg.Session.RollbackLoginOnFetchFailure = *fc.Session.RollbackLoginOnFetchFailure
	}
	if fc.Session.DiscardExpiredTokens != nil {
		cfg.Session.DiscardExpiredTokens = *fc.Session.DiscardExpiredTokens
	}
	if fc.Session.ClockSkew > 0 {
		cfg.Session.ClockSkew = fc.Session.ClockSkew
	}
	if fc.Session.CoalesceFetches != nil {
		cfg.Session.CoalesceFetches = *fc.Session.CoalesceFetches
	}
	if fc.Token.VerifyMethod != "" {
		cfg.Token.VerifyMethod = fc.Token.VerifyMethod
	}
	if fc.Token.VerifyKey != "" {
		cfg.Token.VerifyKey = []byte(fc.Token.VerifyKey)
	}
	cfg.Token.Issuer = fc.Token.Issuer
	cfg.Token.Audience = fc.Token.Audience
	if fc.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *fc.Metrics.Enabled
	}
}

func (s *settings) normalizeStorage() error {
	s.Storage.Backend = strings.ToLower(strings.TrimSpace(s.Storage.Backend))
	if s.Storage.Backend == "" {
		s.Storage.Backend = backendFile
	}
	if s.Storage.Key == "" {
		s.Storage.Key = tokenstore.DefaultKey
	}

	switch s.Storage.Backend {
	case backendFile:
		if s.Storage.Dir == "" {
			dir, err := tokenstore.DefaultDir()
			if err != nil {
				return fmt.Errorf("resolve token directory: %w", err)
			}
			s.Storage.Dir = dir
		}
	case backendRedis:
		if s.Storage.RedisAddr == "" {
			return errors.New("redis storage requires --redis-addr or REDIS_ADDR")
		}
	case backendSQLite:
		if s.Storage.DSN == "" {
			dir := s.Storage.Dir
			if dir == "" {
				d, err := tokenstore.DefaultDir()
				if err != nil {
					return fmt.Errorf("resolve token directory: %w", err)
				}
				dir = d
			}
			s.Storage.DSN = filepath.Join(dir, "session.db")
		}
	case backendPostgres:
		if s.Storage.DSN == "" {
			return errors.New("postgres storage requires --dsn or GOSESSION_DSN")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (want file, redis, sqlite or postgres)", s.Storage.Backend)
	}
	return nil
}
