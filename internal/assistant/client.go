package assistant

import "context"

// Message roles understood by the assistant engine. The full engine set is
// mirrored because ListMessages can report any of them; this bridge itself
// only writes RoleUser and selects replies by RoleAssistant.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleOperator  = "operator"
)

type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusRequiresAction RunStatus = "requires_action"
	StatusCompleted      RunStatus = "completed"
	StatusFailed         RunStatus = "failed"
)

// Run is one assistant inference pass over a thread's message log.
type Run struct {
	ID       string
	ThreadID string
	Status   RunStatus
	// ToolCalls is populated only while Status == StatusRequiresAction.
	ToolCalls []ToolCall
	// FailureReason carries the engine-reported error for a failed run.
	FailureReason string
}

// ToolCall is a tool invocation the engine asks us to perform before the
// run can continue. Arguments is the raw JSON the model produced.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolOutput answers one ToolCall. Output is a JSON payload.
type ToolOutput struct {
	ToolCallID string
	Output     string
}

type Message struct {
	Role      string
	Content   string
	CreatedAt int64
}

// Engine is the remote assistant engine's conversation API. A thread is
// the engine's persistent, append-only message log for one conversation.
type Engine interface {
	CreateThread(ctx context.Context) (string, error)
	AddMessage(ctx context.Context, threadID, role, content string) error
	CreateRun(ctx context.Context, threadID string) (Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error
	ListMessages(ctx context.Context, threadID string) ([]Message, error)
}
