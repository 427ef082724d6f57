package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrEthical07/goSession/tokenstore"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// backend is an opened token store plus whatever must be released with it.
type backend struct {
	store tokenstore.Store
	file  *tokenstore.File
	close func() error
}

func openBackend(ctx context.Context, opts storageOptions) (*backend, error) {
	switch opts.Backend {
	case backendFile:
		f, err := tokenstore.NewFile(opts.Dir, opts.Key)
		if err != nil {
			return nil, err
		}
		return &backend{store: f, file: f, close: func() error { return nil }}, nil

	case backendRedis:
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		rs := tokenstore.NewRedis(client, opts.RedisPrefix, opts.Key, opts.RedisTTL)
		if _, err := rs.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", opts.RedisAddr, err)
		}
		return &backend{store: rs, close: client.Close}, nil

	case backendSQLite, backendPostgres:
		dialect := tokenstore.DialectSQLite
		if opts.Backend == backendPostgres {
			dialect = tokenstore.DialectPostgres
		} else if err := os.MkdirAll(filepath.Dir(opts.DSN), 0o700); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}

		db, err := sql.Open(dialect.DriverName(), opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", opts.Backend, err)
		}
		ss, err := tokenstore.NewSQL(db, dialect, opts.Key)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := ss.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backend{store: ss, close: db.Close}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
