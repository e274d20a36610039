package graph

import "github.com/loomwork/loom/pkg/llms"

func toLLMMessages(messages []Message) []llms.Message {
	out := make([]llms.Message, len(messages))
	for i, m := range messages {
		out[i] = llms.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  toLLMToolCalls(m.ToolCalls),
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
	}
	return out
}

func toLLMToolCalls(calls []ToolCall) []llms.ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]llms.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = llms.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments, RawArgs: c.RawArgs}
	}
	return out
}

func fromLLMMessage(m llms.Message) Message {
	return Message{
		Role:       m.Role,
		Content:    m.Content,
		ToolCalls:  fromLLMToolCalls(m.ToolCalls),
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
}

func fromLLMToolCalls(calls []llms.ToolCall) []ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, c := range calls {
		out[i] = ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments, RawArgs: c.RawArgs}
	}
	return out
}
