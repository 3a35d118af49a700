// Package bridge is the single entry point front-end adapters call to
// relay a user message and obtain the assistant's reply.
package bridge

import (
	"context"

	"assistant-bot/internal/assistant"
	"assistant-bot/internal/session"
)

// MessageAppender appends one message to an engine thread.
type MessageAppender interface {
	AddMessage(ctx context.Context, threadID, role, content string) error
}

// Runner drives one assistant run over a thread to its final reply.
type Runner interface {
	RunConversation(ctx context.Context, threadID string) (assistant.Reply, error)
}

type Bridge struct {
	registry *session.Registry
	engine   MessageAppender
	runner   Runner
}

func New(registry *session.Registry, engine MessageAppender, runner Runner) *Bridge {
	return &Bridge{registry: registry, engine: engine, runner: runner}
}

// StartSession eagerly creates (or reuses) the conversation behind key.
func (b *Bridge) StartSession(ctx context.Context, key, displayNameHint string) (session.Session, error) {
	return b.registry.Resolve(ctx, key, displayNameHint)
}

// HandleInbound relays one user message to the assistant and returns the
// reply text. Messages for the same key queue behind the session's run
// lock so at most one run is active per conversation.
func (b *Bridge) HandleInbound(ctx context.Context, key, displayNameHint, text string) (string, error) {
	lock := b.registry.LockRun(key)
	defer lock.Unlock()

	sess, err := b.registry.Resolve(ctx, key, displayNameHint)
	if err != nil {
		return "", err
	}
	if err := b.engine.AddMessage(ctx, sess.ThreadID, assistant.RoleUser, text); err != nil {
		return "", err
	}
	reply, err := b.runner.RunConversation(ctx, sess.ThreadID)
	if err != nil {
		return "", err
	}
	b.registry.Touch(key)
	return reply.Text, nil
}
