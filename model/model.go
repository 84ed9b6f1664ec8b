// Package model defines the minimal text completion abstraction used to back
// externally supplied kernel primitives (attention, embedding, sampling and
// the like) with a real model provider. Concrete adapters for Anthropic and
// OpenAI live in subpackages; HandlerFromModel bridges any Model into a
// handler registrable with the kernel.
package model

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentkernel/core"
)

// Request captures the normalized model input built from primitive call
// arguments.
type Request struct {
	Instructions string `json:"instructions,omitempty"` // system-level guidance
	Prompt       string `json:"prompt"`
}

// Response is the final completion returned by a provider.
type Response struct {
	Text string `json:"text"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required to back a kernel primitive with
// text completion.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// PromptBuilder maps primitive call arguments to a model request. The
// default builder uses the "prompt" and "instructions" string arguments.
type PromptBuilder func(args core.Args) Request

// HandlerFromModel wraps a Model as a kernel handler. The optional builder
// controls how call arguments become a model request; the handler's result
// is the completion text.
func HandlerFromModel(m Model, builder PromptBuilder) core.Handler {
	if builder == nil {
		builder = func(args core.Args) Request {
			return Request{
				Instructions: args.String("instructions", ""),
				Prompt:       args.String("prompt", ""),
			}
		}
	}
	return func(ctx context.Context, args core.Args) (any, error) {
		resp, err := m.Complete(ctx, builder(args))
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.Info().Name, err)
		}
		return resp.Text, nil
	}
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
type MockModel struct {
	info      Info
	responses map[string]string
	fallback  string
}

// NewMockModel constructs a MockModel with a static fallback completion.
func NewMockModel(name, fallback string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
		fallback:  fallback,
	}
}

// AddResponse registers a deterministic canned completion for a prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.responses[prompt] = response
}

// Complete implements Model; returns the canned or fallback completion.
func (m *MockModel) Complete(_ context.Context, req Request) (*Response, error) {
	if resp, ok := m.responses[req.Prompt]; ok {
		return &Response{Text: resp}, nil
	}
	return &Response{Text: m.fallback}, nil
}

// Info returns metadata describing the mock.
func (m *MockModel) Info() Info { return m.info }
