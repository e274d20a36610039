package graph

const strategicSystemPrompt = `You are driving the strategic phase of a long-running engineering job.
Your job this phase: re-examine the workspace, keep workspace.md and plan.md
current, and close the phase by calling next_phase_todos with the ordered
todo list the next tactical phase should work through. If the job's overall
goal has been met, call job_complete instead and do not call
next_phase_todos.

Work through your current todos using the available tools. Call
todo_complete as you finish each one. Only one of next_phase_todos or
job_complete may be called, and only once, to end this phase.`

const tacticalSystemPrompt = `You are driving a tactical phase of a long-running engineering job: a
fixed todo list handed to you by the prior strategic phase. Work through the
list in order, using the available tools, calling todo_complete as each
item finishes. If a todo turns out to rest on a wrong assumption, call
todo_rewind with the issue instead of improvising past it. This phase ends
on its own once every todo is done or skipped — you do not call
next_phase_todos or job_complete here.`

func systemPromptFor(phase PhaseType) string {
	if phase == PhaseStrategic {
		return strategicSystemPrompt
	}
	return tacticalSystemPrompt
}

const summarizationPrompt = `Summarize the conversation so far in a few dense paragraphs. Preserve
concrete facts: file paths touched, decisions made and why, open issues,
and anything a continuation would need that isn't already in workspace.md
or plan.md. Respond with only the summary text.`
