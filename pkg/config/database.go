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
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Supported SQL drivers. "sqlite3" is accepted as an alias of "sqlite".
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// driverInfo maps a configured driver to its database/sql name and the
// migration dialect used by the checkpoint and task stores.
type driverInfo struct {
	sqlName     string
	dialect     string
	defaultPort int
	embedded    bool
}

var drivers = map[string]driverInfo{
	DriverPostgres: {sqlName: "postgres", dialect: DriverPostgres, defaultPort: 5432},
	DriverMySQL:    {sqlName: "mysql", dialect: DriverMySQL, defaultPort: 3306},
	DriverSQLite:   {sqlName: "sqlite3", dialect: DriverSQLite, embedded: true},
	"sqlite3":      {sqlName: "sqlite3", dialect: DriverSQLite, embedded: true},
}

// DatabaseConfig is one entry of the databases section. Checkpoint and task
// stores reference entries by name and share a pool per DSN.
//
//	databases:
//	  main:
//	    driver: postgres
//	    host: localhost
//	    database: graphchat
//	    username: ${PGUSER}
//	    password: ${PGPASSWORD}
type DatabaseConfig struct {
	// Driver is "postgres", "mysql" or "sqlite".
	Driver string `yaml:"driver"`

	// Host and Port locate a server. Unused for sqlite.
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// Database is the database name, or the file path for sqlite.
	Database string `yaml:"database"`

	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// SSLMode is passed to postgres.
	// Default: disable
	SSLMode string `yaml:"ssl_mode,omitempty"`

	// MaxConns bounds open connections. sqlite always uses one.
	// Default: 25
	MaxConns int `yaml:"max_conns,omitempty"`

	// MaxIdle bounds idle connections.
	// Default: 5
	MaxIdle int `yaml:"max_idle,omitempty"`
}

// SetDefaults applies default values to DatabaseConfig.
func (c *DatabaseConfig) SetDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 25
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = 5
	}
	info, ok := drivers[c.Driver]
	if !ok {
		return
	}
	if c.Port == 0 {
		c.Port = info.defaultPort
	}
	if c.Driver == DriverPostgres && c.SSLMode == "" {
		c.SSLMode = "disable"
	}
}

// Validate checks the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("driver is required")
	}
	info, ok := drivers[c.Driver]
	if !ok {
		return fmt.Errorf("invalid driver %q (valid: postgres, mysql, sqlite)", c.Driver)
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if !info.embedded && c.Host == "" {
		return fmt.Errorf("host is required for %s", c.Driver)
	}
	if c.MaxConns < 0 || c.MaxIdle < 0 {
		return fmt.Errorf("max_conns and max_idle must be non-negative")
	}
	return nil
}

// DSN returns the connection string for sql.Open.
func (c *DatabaseConfig) DSN() string {
	switch c.Dialect() {
	case DriverPostgres:
		fields := []string{
			"host=" + c.Host,
			"port=" + strconv.Itoa(c.Port),
			"dbname=" + c.Database,
		}
		if c.Username != "" {
			fields = append(fields, "user="+c.Username)
		}
		if c.Password != "" {
			fields = append(fields, "password="+c.Password)
		}
		if c.SSLMode != "" {
			fields = append(fields, "sslmode="+c.SSLMode)
		}
		return strings.Join(fields, " ")
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = c.Username
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.DBName = c.Database
		mc.ParseTime = true
		return mc.FormatDSN()
	case DriverSQLite:
		return c.Database
	default:
		return ""
	}
}

// DriverName returns the database/sql driver name.
func (c *DatabaseConfig) DriverName() string {
	if info, ok := drivers[c.Driver]; ok {
		return info.sqlName
	}
	return c.Driver
}

// Dialect returns the migration dialect: postgres, mysql or sqlite.
func (c *DatabaseConfig) Dialect() string {
	if info, ok := drivers[c.Driver]; ok {
		return info.dialect
	}
	return c.Driver
}

func (c *DatabaseConfig) embedded() bool {
	return drivers[c.Driver].embedded
}
