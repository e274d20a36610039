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

package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// NoopTracer returns a tracer that records nothing, for use when tracing is
// disabled or during tests that don't care about spans.
func NoopTracer(name string) trace.Tracer {
	return tracenoop.NewTracerProvider().Tracer(name)
}

// NoopMetrics is a Metrics implementation that discards everything. It backs
// GetGlobalMetrics until SetGlobalMetrics installs a real recorder.
type NoopMetrics struct{}

func (NoopMetrics) RecordAgentCall(_ context.Context, _ time.Duration, _ int, _ error)        {}
func (NoopMetrics) RecordToolExecution(_ context.Context, _ string, _ time.Duration, _ error) {}
func (NoopMetrics) RecordLLMCall(_ context.Context, _ string, _ time.Duration, _, _ int, _ error) {
}
func (NoopMetrics) RecordHTTPRequest(_ context.Context, _, _ string, _ int, _ time.Duration, _ int) {
}
func (NoopMetrics) RecordGRPCCall(_ context.Context, _, _, _ string, _ time.Duration, _ error) {}
func (NoopMetrics) RecordSession(_ context.Context, _ string, _ time.Duration, _ bool)          {}
func (NoopMetrics) RecordConversationTurn(_ context.Context, _ string, _ int)                   {}

var _ Metrics = NoopMetrics{}
