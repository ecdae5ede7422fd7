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

package main

import (
	"os"

	"github.com/kadirpekel/graphchat/pkg/config"
	"github.com/kadirpekel/graphchat/pkg/logger"
)

const (
	LogLevelEnvVar  = "LOG_LEVEL"
	LogFileEnvVar   = "LOG_FILE"
	LogFormatEnvVar = "LOG_FORMAT"

	DefaultLogFormat = "simple"
)

// logOverridden is set when flags or env chose the logger, so the config
// file's logger section is ignored.
var logOverridden bool

// initLoggerFromCLI installs the logger from CLI flags and environment
// variables. Priority: CLI flags > env vars > defaults.
func initLoggerFromCLI(cliLogLevel, cliLogFile, cliLogFormat string) (func(), error) {
	level := firstNonEmpty(cliLogLevel, os.Getenv(LogLevelEnvVar))
	file := firstNonEmpty(cliLogFile, os.Getenv(LogFileEnvVar))
	format := firstNonEmpty(cliLogFormat, os.Getenv(LogFormatEnvVar))
	logOverridden = level != "" || file != "" || format != ""

	return logger.Setup(firstNonEmpty(level, "info"), file, firstNonEmpty(format, DefaultLogFormat))
}

// initLoggerFromConfig applies the config file's logger section unless the
// command line already decided.
func initLoggerFromConfig(cfg *config.LoggerConfig) (func(), error) {
	if logOverridden || cfg == nil {
		return func() {}, nil
	}
	return logger.Setup(cfg.Level, cfg.File, cfg.Format)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
