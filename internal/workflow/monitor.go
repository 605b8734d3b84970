// Copyright (c) 2026 John Earle
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

package workflow

import (
	"context"
	"log/slog"
	"time"
)

// HealthChecker probes backend connectivity. Implemented by api.Client.
type HealthChecker interface {
	CheckHealth(ctx context.Context) bool
}

// ConnectivityCallback is called when connectivity changes.
type ConnectivityCallback func(ctx context.Context, online bool)

// Monitor periodically probes the backend and reports connectivity
// transitions. The first probe is always reported.
type Monitor struct {
	checker  HealthChecker
	interval time.Duration
	onChange ConnectivityCallback
}

// NewMonitor creates a monitor that probes at the given interval.
func NewMonitor(checker HealthChecker, interval time.Duration, onChange ConnectivityCallback) *Monitor {
	return &Monitor{
		checker:  checker,
		interval: interval,
		onChange: onChange,
	}
}

// Run starts the probe loop. It blocks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	slog.Info("connectivity monitor starting", "interval", m.interval)

	var last *bool
	probe := func() {
		online := m.checker.CheckHealth(ctx)
		if ctx.Err() != nil {
			return
		}
		if last != nil && *last == online {
			return
		}
		last = &online
		m.onChange(ctx, online)
	}

	// Do an initial probe immediately
	probe()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("connectivity monitor stopping")
			return
		case <-ticker.C:
			probe()
		}
	}
}
