// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const dbConnectTimeout = 10 * time.Second

// sqlitePragmas run once on every new sqlite pool.
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=10000",
}

// DBPool hands out one *sql.DB per driver and DSN, so the checkpoint store
// and the task store opened on the same database share connections. sqlite
// pools hold a single connection.
type DBPool struct {
	mu    sync.Mutex
	pools map[string]*sql.DB
}

// NewDBPool creates an empty pool.
func NewDBPool() *DBPool {
	return &DBPool{pools: make(map[string]*sql.DB)}
}

// Get returns the shared handle for cfg, opening it on first use.
func (p *DBPool) Get(cfg *DatabaseConfig) (*sql.DB, error) {
	key := cfg.DriverName() + "|" + cfg.DSN()

	p.mu.Lock()
	defer p.mu.Unlock()

	if db, ok := p.pools[key]; ok {
		return db, nil
	}
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}
	p.pools[key] = db
	return db, nil
}

// GetNamed resolves a database reference from cfg and returns its pool.
func (p *DBPool) GetNamed(cfg *Config, name string) (*sql.DB, *DatabaseConfig, error) {
	dbCfg, ok := cfg.Database(name)
	if !ok {
		return nil, nil, fmt.Errorf("database %q is not defined", name)
	}
	db, err := p.Get(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database %s: %w", name, err)
	}
	return db, dbCfg, nil
}

// Close closes every handle. The pool can be reused afterwards.
func (p *DBPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for key, db := range p.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", key, err))
		}
	}
	clear(p.pools)
	return errors.Join(errs...)
}

func open(cfg *DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.embedded() {
		// One writer at a time, otherwise "database is locked".
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxConns > 0 {
			db.SetMaxOpenConns(cfg.MaxConns)
		}
		if cfg.MaxIdle > 0 {
			db.SetMaxIdleConns(cfg.MaxIdle)
		}
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), dbConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.embedded() {
		for _, pragma := range sqlitePragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				slog.Warn("sqlite pragma failed", "pragma", pragma, "error", err)
			}
		}
	}

	slog.Debug("Database pool opened", "driver", cfg.Driver, "database", cfg.Database)
	return db, nil
}
