// Copyright the webserv contributors.
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

// Package wlog holds the process-wide logger, in the style of caddy's
// package-level Log() accessor: one default, swappable for tests, instead
// of threading a logger through every constructor.
package wlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu      sync.RWMutex
	logger  *zap.Logger
)

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	logger = l
}

// Log returns the current process-wide logger.
func Log() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the process-wide logger, e.g. with a development
// config in the CLI or a zaptest logger in tests.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}
