package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, name, argumentsJSON string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.failFor[name] {
		return `{"error":"provider exploded"}`
	}
	return `{"ok":true}`
}

// fakeEngine serves a scripted sequence of run states: CreateRun returns
// the first, each RetrieveRun advances to the next and the last repeats.
type fakeEngine struct {
	states    []Run
	idx       int
	retrieves int
	submitted [][]ToolOutput
	messages  []Message
}

func (f *fakeEngine) CreateThread(ctx context.Context) (string, error) { return "thread-1", nil }

func (f *fakeEngine) AddMessage(ctx context.Context, threadID, role, content string) error {
	return nil
}

func (f *fakeEngine) CreateRun(ctx context.Context, threadID string) (Run, error) {
	f.idx = 0
	return f.states[0], nil
}

func (f *fakeEngine) RetrieveRun(ctx context.Context, threadID, runID string) (Run, error) {
	f.retrieves++
	if f.idx < len(f.states)-1 {
		f.idx++
	}
	return f.states[f.idx], nil
}

func (f *fakeEngine) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error {
	f.submitted = append(f.submitted, outputs)
	return nil
}

func (f *fakeEngine) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	return f.messages, nil
}

func run(id string, status RunStatus) Run { return Run{ID: id, ThreadID: "thread-1", Status: status} }

func TestRunConversation_ToolRoundThenCompletion(t *testing.T) {
	requiresAction := run("run-1", StatusRequiresAction)
	requiresAction.ToolCalls = []ToolCall{
		{ID: "call-1", Name: "get_weather", Arguments: `{"location":"Hanoi"}`},
		{ID: "call-2", Name: "get_gold_price", Arguments: `{}`},
	}
	eng := &fakeEngine{
		states: []Run{
			run("run-1", StatusQueued),
			run("run-1", StatusInProgress),
			requiresAction,
			run("run-1", StatusInProgress),
			run("run-1", StatusCompleted),
		},
		messages: []Message{
			{Role: RoleUser, Content: "what's the weather", CreatedAt: 1},
			{Role: RoleAssistant, Content: "older reply", CreatedAt: 2},
			{Role: RoleAssistant, Content: "final reply", CreatedAt: 3},
		},
	}
	disp := &fakeDispatcher{failFor: map[string]bool{"get_gold_price": true}}

	svc := NewService(eng, disp, time.Millisecond, time.Second)
	reply, err := svc.RunConversation(context.Background(), "thread-1")
	if err != nil {
		t.Fatalf("RunConversation: %v", err)
	}
	if reply.Text != "final reply" {
		t.Fatalf("expected newest assistant message, got %q", reply.Text)
	}

	if len(eng.submitted) != 1 {
		t.Fatalf("expected exactly one tool-output submission, got %d", len(eng.submitted))
	}
	batch := eng.submitted[0]
	if len(batch) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(batch))
	}
	got := map[string]string{}
	for _, o := range batch {
		got[o.ToolCallID] = o.Output
	}
	if _, ok := got["call-1"]; !ok {
		t.Fatalf("call-1 left unanswered: %+v", got)
	}
	if out, ok := got["call-2"]; !ok || out != `{"error":"provider exploded"}` {
		t.Fatalf("failing tool must still answer its call id, got %+v", got)
	}
}

func TestRunConversation_Failed(t *testing.T) {
	failed := run("run-2", StatusFailed)
	failed.FailureReason = "rate limit exceeded"
	eng := &fakeEngine{states: []Run{run("run-2", StatusQueued), failed}}

	svc := NewService(eng, &fakeDispatcher{}, time.Millisecond, time.Second)
	_, err := svc.RunConversation(context.Background(), "thread-1")

	var runErr *RunFailedError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunFailedError, got %v", err)
	}
	if runErr.Reason != "rate limit exceeded" {
		t.Fatalf("engine reason lost: %q", runErr.Reason)
	}
	if len(eng.submitted) != 0 {
		t.Fatalf("no submission expected for a failed run")
	}
}

func TestRunConversation_NoReply(t *testing.T) {
	eng := &fakeEngine{
		states:   []Run{run("run-3", StatusCompleted)},
		messages: []Message{{Role: RoleUser, Content: "hello", CreatedAt: 1}},
	}
	svc := NewService(eng, &fakeDispatcher{}, time.Millisecond, time.Second)
	_, err := svc.RunConversation(context.Background(), "thread-1")
	if !errors.Is(err, ErrNoReply) {
		t.Fatalf("expected ErrNoReply, got %v", err)
	}
}

func TestRunConversation_Timeout(t *testing.T) {
	eng := &fakeEngine{states: []Run{run("run-4", StatusInProgress)}}
	svc := NewService(eng, &fakeDispatcher{}, 5*time.Millisecond, 30*time.Millisecond)
	_, err := svc.RunConversation(context.Background(), "thread-1")
	if !errors.Is(err, ErrRunTimeout) {
		t.Fatalf("expected ErrRunTimeout for a run stuck in progress, got %v", err)
	}
}

func TestRunConversation_OneRetrievePerIteration(t *testing.T) {
	eng := &fakeEngine{
		states: []Run{
			run("run-5", StatusQueued),
			run("run-5", StatusInProgress),
			run("run-5", StatusCompleted),
		},
		messages: []Message{{Role: RoleAssistant, Content: "hi", CreatedAt: 1}},
	}
	svc := NewService(eng, &fakeDispatcher{}, time.Millisecond, time.Second)
	if _, err := svc.RunConversation(context.Background(), "thread-1"); err != nil {
		t.Fatalf("RunConversation: %v", err)
	}
	if eng.retrieves != 2 {
		t.Fatalf("expected one status read per loop iteration (2 total), got %d", eng.retrieves)
	}
}
