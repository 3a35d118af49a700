package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Dispatcher executes a single tool call and renders its result as a JSON
// payload. Implementations must contain their own failures: a broken tool
// is reported inside the payload, never as an error, so one failing call
// cannot abort the run it belongs to.
type Dispatcher interface {
	Dispatch(ctx context.Context, name, argumentsJSON string) string
}

// ErrNoReply means the run completed but the thread holds no assistant message.
var ErrNoReply = errors.New("assistant produced no reply")

// ErrRunTimeout means the run did not reach a terminal status within the
// configured wall-clock limit.
var ErrRunTimeout = errors.New("run timed out")

// RunFailedError reports a run the engine marked as failed.
type RunFailedError struct {
	RunID  string
	Reason string
}

func (e *RunFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("run %s failed", e.RunID)
	}
	return fmt.Sprintf("run %s failed: %s", e.RunID, e.Reason)
}

type Reply struct {
	Text string
}

// Service drives runs over engine threads: it starts a run, polls it,
// executes tool calls when the run blocks on them and resolves to the
// final assistant reply.
type Service struct {
	engine       Engine
	dispatcher   Dispatcher
	pollInterval time.Duration
	runTimeout   time.Duration
}

func NewService(engine Engine, dispatcher Dispatcher, pollInterval, runTimeout time.Duration) *Service {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Service{
		engine:       engine,
		dispatcher:   dispatcher,
		pollInterval: pollInterval,
		runTimeout:   runTimeout,
	}
}

// RunConversation starts a run over the thread's current message log and
// drives it to completion. The caller must have appended the message(s)
// to respond to beforehand, and must not start a second run on the same
// thread while this one is in flight.
func (s *Service) RunConversation(ctx context.Context, threadID string) (Reply, error) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	run, err := s.engine.CreateRun(ctx, threadID)
	if err != nil {
		return Reply{}, err
	}
	log.Printf("run %s started on thread %s", run.ID, threadID)

	for {
		switch run.Status {
		case StatusCompleted:
			return s.latestAssistantReply(ctx, threadID)
		case StatusFailed:
			return Reply{}, &RunFailedError{RunID: run.ID, Reason: run.FailureReason}
		case StatusRequiresAction:
			log.Printf("run %s requires %d tool call(s)", run.ID, len(run.ToolCalls))
			outputs := s.executeToolCalls(ctx, run.ToolCalls)
			if err := s.engine.SubmitToolOutputs(ctx, threadID, run.ID, outputs); err != nil {
				return Reply{}, s.tagTimeout(err)
			}
		default: // queued, in_progress
			if err := sleep(ctx, s.pollInterval); err != nil {
				return Reply{}, s.tagTimeout(err)
			}
		}

		run, err = s.engine.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return Reply{}, s.tagTimeout(err)
		}
	}
}

// executeToolCalls fans the batch out to the dispatcher and collects one
// output per call, keyed by tool-call id. Completion order is irrelevant.
func (s *Service) executeToolCalls(ctx context.Context, calls []ToolCall) []ToolOutput {
	outputs := make([]ToolOutput, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			outputs[i] = ToolOutput{
				ToolCallID: call.ID,
				Output:     s.dispatcher.Dispatch(ctx, call.Name, call.Arguments),
			}
		}(i, call)
	}
	wg.Wait()
	return outputs
}

func (s *Service) latestAssistantReply(ctx context.Context, threadID string) (Reply, error) {
	msgs, err := s.engine.ListMessages(ctx, threadID)
	if err != nil {
		return Reply{}, err
	}
	var latest *Message
	for i := range msgs {
		m := &msgs[i]
		if m.Role != RoleAssistant {
			continue
		}
		if latest == nil || m.CreatedAt > latest.CreatedAt {
			latest = m
		}
	}
	if latest == nil {
		return Reply{}, ErrNoReply
	}
	return Reply{Text: latest.Content}, nil
}

// tagTimeout maps a deadline expiry onto ErrRunTimeout so callers can tell
// "the run took too long" apart from other transport failures.
func (s *Service) tagTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrRunTimeout, s.runTimeout, err)
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
