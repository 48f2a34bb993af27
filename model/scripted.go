package model

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ScriptedModel is a deterministic in-memory Model for tests and examples.
// It replays queued responses in order and records every request it
// receives, so tests can assert on exactly what crossed the model boundary.
// An optional per-call delay supports deadline tests.
type ScriptedModel struct {
	mu        sync.Mutex
	queue     []scriptStep
	requests  []Request
	delay     time.Duration
	exhausted *Response
}

type scriptStep struct {
	resp *Response
	err  error
}

// Compile-time interface assertion.
var _ Model = (*ScriptedModel)(nil)

// NewScriptedModel constructs an empty scripted model. Without queued
// responses every call answers with a canned acknowledgment.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{
		exhausted: &Response{Text: "ok", FinishReason: "stop"},
	}
}

// Enqueue appends a response to the replay queue.
func (m *ScriptedModel) Enqueue(resp Response) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, scriptStep{resp: &resp})
	return m
}

// EnqueueText is shorthand for a plain final text response.
func (m *ScriptedModel) EnqueueText(text string) *ScriptedModel {
	return m.Enqueue(Response{Text: text, FinishReason: "stop"})
}

// EnqueueError injects a provider failure at that queue position.
func (m *ScriptedModel) EnqueueError(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, scriptStep{err: err})
	return m
}

// SetDelay makes every Complete call block for d (or until the context is
// done), for exercising timeout paths.
func (m *ScriptedModel) SetDelay(d time.Duration) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// Requests returns a copy of all requests seen so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns how many times Complete was invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Complete implements Model, replaying the next queued step.
func (m *ScriptedModel) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	delay := m.delay
	var step scriptStep
	if len(m.queue) > 0 {
		step = m.queue[0]
		m.queue = m.queue[1:]
	} else {
		step = scriptStep{resp: m.exhausted}
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if step.err != nil {
		return nil, fmt.Errorf("scripted model: %w", step.err)
	}
	resp := *step.resp
	return &resp, nil
}

// Info implements Model.
func (m *ScriptedModel) Info() Info {
	return Info{Name: "scripted", Provider: "scripted", SupportsTools: true}
}
