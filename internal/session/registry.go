// Package session maps front-end conversation keys onto engine threads,
// which is what gives a user continuity of context across messages.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Session struct {
	Key             string
	ThreadID        string
	DisplayName     string
	LastInteraction time.Time
}

// ThreadCreator creates a new engine conversation.
type ThreadCreator interface {
	CreateThread(ctx context.Context) (string, error)
}

// Registry owns the key→session mapping and a per-key run lock used to
// serialize assistant runs on one conversation.
type Registry struct {
	mu       sync.Mutex
	engine   ThreadCreator
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
	now      func() time.Time
}

func NewRegistry(engine ThreadCreator) *Registry {
	return &Registry{
		engine:   engine,
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

// Resolve returns the session for key, creating a new engine thread on
// first contact. Re-resolving a known key reuses its thread and refreshes
// the last-interaction timestamp.
func (r *Registry) Resolve(ctx context.Context, key, displayName string) (Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[key]; ok {
		s.LastInteraction = r.now()
		out := *s
		r.mu.Unlock()
		return out, nil
	}
	r.mu.Unlock()

	// Thread creation is a network call; keep it outside the map lock.
	threadID, err := r.engine.CreateThread(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create conversation for %s: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		// Concurrent first contact for the same key; keep the earlier thread.
		return *s, nil
	}
	s := &Session{
		Key:             key,
		ThreadID:        threadID,
		DisplayName:     displayName,
		LastInteraction: r.now(),
	}
	r.sessions[key] = s
	return *s, nil
}

// Touch refreshes the last-interaction timestamp of a known key.
func (r *Registry) Touch(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		s.LastInteraction = r.now()
	}
}

// LockRun acquires the run lock for key and returns it held. Callers keep
// it for the whole append-and-run cycle so at most one run is active per
// conversation. Acquisition revalidates the mutex against the table after
// locking: a sweep may discard an entry between lookup and Lock, and
// handing out the discarded mutex would let two callers run concurrently.
func (r *Registry) LockRun(key string) *sync.Mutex {
	for {
		l := r.runLock(key)
		l.Lock()
		r.mu.Lock()
		current := r.locks[key]
		r.mu.Unlock()
		if current == l {
			return l
		}
		l.Unlock()
	}
}

func (r *Registry) runLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	return l
}

// Sweep drops sessions idle for longer than maxIdle and reports how many
// were removed. Sessions with a run in flight are skipped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxIdle)
	removed := 0
	for key, s := range r.sessions {
		if s.LastInteraction.After(cutoff) {
			continue
		}
		if l, ok := r.locks[key]; ok {
			if !l.TryLock() {
				continue
			}
			l.Unlock()
		}
		delete(r.sessions, key)
		removed++
	}
	// Lock entries without a session are unreachable through the loop
	// above: their session was just swept, or first contact failed before
	// one existed. Reclaim any not currently held.
	for key, l := range r.locks {
		if _, ok := r.sessions[key]; ok {
			continue
		}
		if l.TryLock() {
			l.Unlock()
			delete(r.locks, key)
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
