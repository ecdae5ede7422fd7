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

package checkpoint

import (
	"context"
	"fmt"

	"github.com/kadirpekel/graphchat/pkg/config"
)

// NewStoreFromConfig creates the Store selected by cfg.Checkpoint.
// The SQL backend takes its connection from pool so tasks and checkpoints
// sharing a SQLite file share one writer. The returned close function
// releases backend connections that are not owned by the pool.
//
// Example config:
//
//	databases:
//	  main:
//	    driver: sqlite
//	    database: ./graphchat.db
//
//	checkpoint:
//	  backend: sql
//	  database: main
func NewStoreFromConfig(ctx context.Context, cfg *config.Config, pool *config.DBPool) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Checkpoint.Backend {
	case "", config.CheckpointBackendMemory:
		return NewMemoryStore(), noop, nil

	case config.CheckpointBackendSQL:
		if pool == nil {
			return nil, nil, fmt.Errorf("DBPool is required for SQL checkpoint backend")
		}
		db, dbCfg, err := pool.GetNamed(cfg, cfg.Checkpoint.Database)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewSQLStore(ctx, db, dbCfg.Dialect())
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case config.CheckpointBackendRedis:
		r := cfg.Checkpoint.Redis
		store, err := NewRedisStore(ctx, RedisOptions{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
			TTL:      r.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown checkpoint backend: %s", cfg.Checkpoint.Backend)
	}
}
