// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package checkpoint persists Graph State (pkg/graph) as an opaque blob
// keyed by (job_id, step_index), one new row per node transition. Rows
// are never updated or deleted individually — append-only, since only
// the worker holding a job's lease ever writes them.
package checkpoint

import (
	"fmt"
	"time"
)

// Config tunes checkpoint recovery behavior. Every node transition is
// always checkpointed; Config only governs how a worker treats
// checkpoints it finds on startup.
type Config struct {
	// Enabled gates checkpoint persistence entirely. Tests and
	// throwaway runs can disable it; production workers should not.
	Enabled *bool `yaml:"enabled,omitempty"`

	// RecoveryTimeoutSeconds is the age past which Record.IsExpired,
	// given RecoveryTimeout, reports a checkpoint as expired. Resume does
	// not consult it: an expired checkpoint is neither rejected nor
	// reported failed.
	RecoveryTimeoutSeconds int `yaml:"recovery_timeout_seconds,omitempty"`
}

func (c *Config) SetDefaults() {
	if c.Enabled == nil {
		enabled := true
		c.Enabled = &enabled
	}
	if c.RecoveryTimeoutSeconds <= 0 {
		c.RecoveryTimeoutSeconds = 7 * 24 * 3600 // matches the orchestrator's default job wall-clock
	}
}

func (c *Config) Validate() error {
	if c.RecoveryTimeoutSeconds < 0 {
		return fmt.Errorf("recovery_timeout_seconds must be non-negative")
	}
	return nil
}

func (c *Config) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

func (c *Config) RecoveryTimeout() time.Duration {
	if c == nil || c.RecoveryTimeoutSeconds <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.RecoveryTimeoutSeconds) * time.Second
}
