package tool

import (
	"context"
	"fmt"

	"github.com/loomwork/loom/pkg/llms"
)

// Dispatcher looks up and executes tool calls the LLM emits, folding
// results (or errors) into tool_result messages. Tool errors are never
// fatal to the graph — they're returned to the agent as observation text
// rather than aborting the run.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{registry: reg}
}

// Dispatch executes one tool call and returns the tool_result message to
// append to the chat log.
func (d *Dispatcher) Dispatch(ctx context.Context, call llms.ToolCall) llms.Message {
	t, ok := d.registry.Get(call.Name)
	if !ok {
		return errorMessage(call, fmt.Sprintf("Error: tool %q not found", call.Name))
	}

	result, err := t.Execute(ctx, call.Arguments)
	if err != nil {
		return errorMessage(call, fmt.Sprintf("Error: %v", err))
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "tool reported failure with no error message"
		}
		return errorMessage(call, fmt.Sprintf("Error: %s", msg))
	}

	return llms.Message{
		Role:       "tool",
		Content:    result.Content,
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

// DispatchAll executes every tool call from one assistant turn in order
// and returns one tool_result message per call.
func (d *Dispatcher) DispatchAll(ctx context.Context, calls []llms.ToolCall) []llms.Message {
	out := make([]llms.Message, 0, len(calls))
	for _, call := range calls {
		out = append(out, d.Dispatch(ctx, call))
	}
	return out
}

func errorMessage(call llms.ToolCall, content string) llms.Message {
	return llms.Message{
		Role:       "tool",
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

// Definitions converts the visible tool set into the provider-facing
// ToolDefinition list llms.LLMProvider.Generate expects.
func Definitions(tools []Tool) []llms.ToolDefinition {
	defs := make([]llms.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		info := t.Info()
		defs = append(defs, llms.ToolDefinition{
			Name:        info.Name,
			Description: info.Description,
			Parameters:  parametersSchema(info.Parameters),
		})
	}
	return defs
}

func parametersSchema(params []Parameter) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	var required []string

	for _, p := range params {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
