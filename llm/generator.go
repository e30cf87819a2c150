// Package llm defines the text-generation boundary of the engine and a set
// of optional decorators (retry, cache, rate limit) around it. Model
// resolution and provider transport live behind the Generator interface and
// are not part of this module.
package llm

import (
	"context"

	"github.com/questhive/questhive/types"
)

// Request carries one generation call. SystemPrompt may be empty.
type Request struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float32 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
}

// Generator produces text for a prompt. Implementations may be slow and may
// fail transiently; the engine treats every failure uniformly as
// types.ErrGeneratorFailure and degrades to sentinel data.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req *Request) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req *Request) (string, error) {
	return f(ctx, req)
}

// WrapFailure normalizes any generator error into a types.Error with the
// GENERATOR_FAILURE code, preserving the cause for logging.
func WrapFailure(err error) error {
	if err == nil {
		return nil
	}
	if types.IsCode(err, types.ErrGeneratorFailure) {
		return err
	}
	return types.WrapError(types.ErrGeneratorFailure, "generation call failed", err)
}
