package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEngine implements Engine on top of the OpenAI Assistants API.
type OpenAIEngine struct {
	client      *openai.Client
	assistantID string
}

func NewOpenAIEngine(apiKey, baseURL, assistantID string) *OpenAIEngine {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIEngine{
		client:      openai.NewClientWithConfig(config),
		assistantID: assistantID,
	}
}

func (e *OpenAIEngine) CreateThread(ctx context.Context) (string, error) {
	thread, err := e.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return thread.ID, nil
}

func (e *OpenAIEngine) AddMessage(ctx context.Context, threadID, role, content string) error {
	_, err := e.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("failed to add message to thread %s: %w", threadID, err)
	}
	return nil
}

func (e *OpenAIEngine) CreateRun(ctx context.Context, threadID string) (Run, error) {
	run, err := e.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: e.assistantID})
	if err != nil {
		return Run{}, fmt.Errorf("failed to create run on thread %s: %w", threadID, err)
	}
	return fromOpenAIRun(run), nil
}

func (e *OpenAIEngine) RetrieveRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := e.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("failed to retrieve run %s: %w", runID, err)
	}
	return fromOpenAIRun(run), nil
}

func (e *OpenAIEngine) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error {
	oaOutputs := make([]openai.ToolOutput, 0, len(outputs))
	for _, o := range outputs {
		oaOutputs = append(oaOutputs, openai.ToolOutput{ToolCallID: o.ToolCallID, Output: o.Output})
	}
	_, err := e.client.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
		ToolOutputs: oaOutputs,
	})
	if err != nil {
		return fmt.Errorf("failed to submit tool outputs for run %s: %w", runID, err)
	}
	return nil
}

func (e *OpenAIEngine) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	list, err := e.client.ListMessage(ctx, threadID, nil, nil, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of thread %s: %w", threadID, err)
	}
	out := make([]Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		out = append(out, Message{
			Role:      m.Role,
			Content:   messageText(m),
			CreatedAt: int64(m.CreatedAt),
		})
	}
	return out, nil
}

// messageText flattens a message's content parts into plain text,
// skipping non-text parts such as images.
func messageText(m openai.Message) string {
	var parts []string
	for _, c := range m.Content {
		if c.Text != nil {
			parts = append(parts, c.Text.Value)
		}
	}
	return strings.Join(parts, "\n")
}

func fromOpenAIRun(run openai.Run) Run {
	out := Run{
		ID:       run.ID,
		ThreadID: run.ThreadID,
		Status:   RunStatus(run.Status),
	}
	if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
		for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}
	if run.LastError != nil {
		out.FailureReason = run.LastError.Message
	}
	return out
}
