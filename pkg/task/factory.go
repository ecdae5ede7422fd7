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

package task

import (
	"context"
	"fmt"

	"github.com/a2aproject/a2a-go/a2asrv"

	"github.com/kadirpekel/graphchat/pkg/config"
)

// NewTaskStoreFromConfig creates the TaskStore selected by cfg.Server.Tasks.
// It returns nil for the inmemory backend, which a2asrv provides itself.
//
// Example config:
//
//	databases:
//	  main:
//	    driver: sqlite
//	    database: ./graphchat.db
//
//	server:
//	  tasks:
//	    backend: sql
//	    database: main
func NewTaskStoreFromConfig(ctx context.Context, cfg *config.Config, pool *config.DBPool) (a2asrv.TaskStore, error) {
	tasks := &cfg.Server.Tasks
	if tasks.IsInMemory() {
		return nil, nil
	}
	if !tasks.IsSQL() {
		return nil, fmt.Errorf("unknown tasks backend: %s", tasks.Backend)
	}
	if pool == nil {
		return nil, fmt.Errorf("DBPool is required for SQL task backend")
	}

	db, dbCfg, err := pool.GetNamed(cfg, tasks.Database)
	if err != nil {
		return nil, err
	}
	return NewSQLTaskStore(ctx, db, dbCfg.Dialect())
}
