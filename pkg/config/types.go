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

// Package config builds the per-job Resolved Config described in the
// engine's data model: an immutable bundle produced by deep-merging a
// defaults layer, an expert layer, a caller-supplied override patch,
// and an orchestrator-derived tool-override layer.
package config

import "fmt"

// Autonomy is the human-in-the-loop autonomy level governing where the
// phase graph freezes for review.
type Autonomy string

const (
	AutonomyFull      Autonomy = "full"
	AutonomyReview    Autonomy = "review"
	AutonomyPartial   Autonomy = "partial"
	AutonomyGuided    Autonomy = "guided"
	AutonomyDependent Autonomy = "dependent"
)

func (a Autonomy) Valid() bool {
	switch a {
	case AutonomyFull, AutonomyReview, AutonomyPartial, AutonomyGuided, AutonomyDependent:
		return true
	}
	return false
}

// LLMSettings configures the model the worker drives through the graph.
type LLMSettings struct {
	Provider       string  `yaml:"provider,omitempty" mapstructure:"provider"`
	Model          string  `yaml:"model,omitempty" mapstructure:"model"`
	Temperature    float64 `yaml:"temperature,omitempty" mapstructure:"temperature"`
	ReasoningLevel string  `yaml:"reasoning_level,omitempty" mapstructure:"reasoning_level"`
	MaxTokens      int     `yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`
	RequestTimeout int     `yaml:"request_timeout_seconds,omitempty" mapstructure:"request_timeout_seconds"`
	RetryMaxCap    int     `yaml:"retry_max_attempts,omitempty" mapstructure:"retry_max_attempts"`
}

func (l *LLMSettings) setDefaults() {
	if l.Provider == "" {
		l.Provider = "openai"
	}
	if l.Model == "" {
		l.Model = "gpt-4o"
	}
	if l.MaxTokens <= 0 {
		l.MaxTokens = 4096
	}
	if l.RequestTimeout <= 0 {
		l.RequestTimeout = 120
	}
	if l.RetryMaxCap <= 0 {
		l.RetryMaxCap = 5
	}
}

// PhaseSettings tunes the nested-loop phase graph and the context
// manager's token-budget discipline.
type PhaseSettings struct {
	MinTodos    int `yaml:"min_todos,omitempty" mapstructure:"min_todos"`
	MaxTodos    int `yaml:"max_todos,omitempty" mapstructure:"max_todos"`
	SprintLimit int `yaml:"sprint_limit,omitempty" mapstructure:"sprint_limit"`
	// MaxIterations is the hard iteration ceiling for the whole job (default 500).
	MaxIterations int `yaml:"max_iterations,omitempty" mapstructure:"max_iterations"`

	KeepRecentToolResults        int `yaml:"keep_recent_tool_results,omitempty" mapstructure:"keep_recent_tool_results"`
	MaxToolResultLength          int `yaml:"max_tool_result_length,omitempty" mapstructure:"max_tool_result_length"`
	CompactionThresholdTokens    int `yaml:"compaction_threshold_tokens,omitempty" mapstructure:"compaction_threshold_tokens"`
	SummarizationThresholdTokens int `yaml:"summarization_threshold_tokens,omitempty" mapstructure:"summarization_threshold_tokens"`
	SummarizeKeepRecentMessages  int `yaml:"summarize_keep_recent_messages,omitempty" mapstructure:"summarize_keep_recent_messages"`
}

func (p *PhaseSettings) setDefaults() {
	if p.MinTodos <= 0 {
		p.MinTodos = 5
	}
	if p.MaxTodos <= 0 {
		p.MaxTodos = 20
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = 500
	}
	if p.KeepRecentToolResults <= 0 {
		p.KeepRecentToolResults = 5
	}
	if p.MaxToolResultLength <= 0 {
		p.MaxToolResultLength = 5000
	}
	if p.CompactionThresholdTokens <= 0 {
		p.CompactionThresholdTokens = 80000
	}
	if p.SummarizationThresholdTokens <= 0 {
		p.SummarizationThresholdTokens = 100000
	}
	if p.SummarizeKeepRecentMessages <= 0 {
		p.SummarizeKeepRecentMessages = 20
	}
	// SprintLimit default 0 (disabled) is intentional; leave as-is.
}

// ToolCategoryConfig enables/disables a tool category and,
// for categories backed by an external datasource, whether write tools
// are exposed.
type ToolCategoryConfig struct {
	Enabled  bool     `yaml:"enabled" mapstructure:"enabled"`
	ReadOnly bool     `yaml:"read_only,omitempty" mapstructure:"read_only"`
	Tools    []string `yaml:"tools,omitempty" mapstructure:"tools"`
}

// WorkspaceLayout configures the per-job workspace directory.
type WorkspaceLayout struct {
	Root       string `yaml:"root,omitempty" mapstructure:"root"`
	GitEnabled bool   `yaml:"git_enabled,omitempty" mapstructure:"git_enabled"`
}

func (w *WorkspaceLayout) setDefaults() {
	if w.Root == "" {
		w.Root = "./workspaces"
	}
}

// Config is the Resolved Config: the immutable, per-job-start bundle
// produced by merging defaults, expert, override, and orchestrator
// tool-override layers.
type Config struct {
	LLM          LLMSettings                    `yaml:"llm,omitempty" mapstructure:"llm"`
	Autonomy     Autonomy                       `yaml:"autonomy,omitempty" mapstructure:"autonomy"`
	Phase        PhaseSettings                  `yaml:"phase,omitempty" mapstructure:"phase"`
	Tools        map[string]*ToolCategoryConfig `yaml:"tools,omitempty" mapstructure:"tools"`
	Workspace    WorkspaceLayout                `yaml:"workspace,omitempty" mapstructure:"workspace"`
	Instructions string                         `yaml:"instructions,omitempty" mapstructure:"instructions"`
}

// SetDefaults fills in zero-valued fields with engine defaults. Called
// once after the full merge chain has been unmarshalled.
func (c *Config) SetDefaults() {
	c.LLM.setDefaults()
	c.Phase.setDefaults()
	c.Workspace.setDefaults()
	if c.Autonomy == "" {
		c.Autonomy = AutonomyFull
	}
	if c.Tools == nil {
		c.Tools = map[string]*ToolCategoryConfig{}
	}
	// workspace and core are always enabled regardless of what layers said.
	for _, always := range []string{"workspace", "core"} {
		cat, ok := c.Tools[always]
		if !ok {
			c.Tools[always] = &ToolCategoryConfig{Enabled: true}
			continue
		}
		cat.Enabled = true
	}
}

// Validate checks structural invariants of a fully-merged config.
func (c *Config) Validate() error {
	if !c.Autonomy.Valid() {
		return fmt.Errorf("invalid autonomy level: %q", c.Autonomy)
	}
	if c.Phase.MinTodos > c.Phase.MaxTodos {
		return fmt.Errorf("phase.min_todos (%d) > phase.max_todos (%d)", c.Phase.MinTodos, c.Phase.MaxTodos)
	}
	if c.Phase.SprintLimit < 0 {
		return fmt.Errorf("phase.sprint_limit cannot be negative")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	return nil
}

// ToolEnabled reports whether the category is enabled and, if tools is
// non-empty, whether the named tool is in the category's allowlist.
func (c *Config) ToolEnabled(category, tool string) bool {
	cat, ok := c.Tools[category]
	if !ok || !cat.Enabled {
		return false
	}
	if len(cat.Tools) == 0 {
		return true
	}
	for _, t := range cat.Tools {
		if t == tool {
			return true
		}
	}
	return false
}

// CategoryReadOnly reports whether write tools in category should be omitted.
func (c *Config) CategoryReadOnly(category string) bool {
	cat, ok := c.Tools[category]
	return ok && cat.ReadOnly
}
