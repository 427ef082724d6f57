package goSession

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	internalevents "github.com/MrEthical07/goSession/internal/events"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/remote"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/tokenstore"
	"github.com/MrEthical07/goSession/votes"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles a Store.
//
// Builder instances are intended to be configured during initialization and
// used once. Build fails on the second call.
type Builder struct {
	config     Config
	tokens     tokenstore.Store
	redis      redis.UniversalClient
	httpClient *http.Client
	logger     *zap.Logger
	eventSink  EventSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New returns a Builder seeded with DefaultConfig. It performs no I/O.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is cloned.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAPIBase sets Config.API.BaseURL.
func (b *Builder) WithAPIBase(baseURL string) *Builder {
	b.config.API.BaseURL = strings.TrimSpace(baseURL)
	return b
}

// WithTokenStore sets the durable token backend. It takes precedence over
// WithRedis.
func (b *Builder) WithTokenStore(ts tokenstore.Store) *Builder {
	b.tokens = ts
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// When no explicit token store is set, Build stores the token in Redis under
// Config.Storage.RedisPrefix and Config.Storage.Key. The Store never closes
// the client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the client used for API requests. Config.API.Timeout is
// ignored when a client is supplied.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithEventSink sets the sink that receives session events and enables the
// event dispatcher.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	if sink != nil {
		b.config.Events.Enabled = true
	}
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, wires the token store, API client, token
// inspector, event dispatcher and metrics, and returns a logged-out Store
// with an empty snapshot. Build performs no I/O against the token store or
// the API; call CheckLoginStatus to restore a persisted session.
func (b *Builder) Build() (*Store, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("gosession")

	// -------- TOKEN STORE --------
	tokens := b.tokens
	if tokens == nil {
		if b.redis == nil {
			return nil, errors.New("token store or redis client required")
		}
		tokens = tokenstore.NewRedis(b.redis, cfg.Storage.RedisPrefix, cfg.Storage.Key, cfg.Storage.RedisTTL)
	}

	// -------- API CLIENT --------
	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.API.Timeout}
	}
	client, err := remote.New(remote.Config{
		BaseURL:           cfg.API.BaseURL,
		Path:              cfg.API.Path,
		UserAgent:         cfg.API.UserAgent,
		MaxBodyBytes:      cfg.API.MaxBodyBytes,
		MaxErrorBodyBytes: cfg.API.MaxErrorBodyBytes,
	}, httpClient, logger)
	if err != nil {
		return nil, err
	}

	// -------- TOKEN INSPECTOR --------
	method, err := jwt.ParseVerifyMethod(cfg.Token.VerifyMethod)
	if err != nil {
		return nil, err
	}
	inspector, err := jwt.NewInspector(jwt.Config{
		Method:   method,
		Key:      cloneBytes(cfg.Token.VerifyKey),
		Issuer:   cfg.Token.Issuer,
		Audience: cfg.Token.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("token inspector: %w", err)
	}

	store := &Store{
		config:    cloneConfig(cfg),
		logger:    logger,
		tokens:    tokens,
		client:    client,
		inspector: inspector,
		metrics:   NewMetrics(cfg.Metrics),
		events: internalevents.NewDispatcher(internalevents.Config{
			Enabled:    cfg.Events.Enabled,
			BufferSize: cfg.Events.BufferSize,
			DropIfFull: cfg.Events.DropIfFull,
		}, b.eventSink),
		state: State{Snapshot: votes.Empty()},
	}
	store.flows = flows.New(store.flowDeps())

	b.built = true

	logger.Debug("session store built",
		zap.String("endpoint", client.Endpoint()),
		zap.Bool("rollback_on_fetch_failure", cfg.Session.RollbackLoginOnFetchFailure),
		zap.Bool("discard_expired_tokens", cfg.Session.DiscardExpiredTokens),
		zap.Bool("token_verification", inspector.Verifies()))

	return store, nil
}
