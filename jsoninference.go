// Package jsoninference provides a top-level convenience entry point for
// obtaining schema-conforming JSON from LLM inference backends.
//
// Usage:
//
//	import "github.com/BaSui01/jsoninference"
//
//	res, err := jsoninference.Generate(ctx, llm.InferenceClaude, params, "", apiKey)
//	person, err := jsoninference.GenerateObject[Person](ctx, llm.InferenceOllama, params, "qwen3:8b")
//
// Both use a process-wide registry holding every built-in backend with its
// default configuration. Replace it with [SetDefault] to use configured
// backends or decorated providers.
package jsoninference

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/factory"
)

var (
	defaultMu  sync.RWMutex
	defaultReg *llm.Registry
)

// Default returns the process-wide registry, building it on first use.
func Default() *llm.Registry {
	defaultMu.RLock()
	reg := defaultReg
	defaultMu.RUnlock()
	if reg != nil {
		return reg
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReg == nil {
		defaultReg = llm.NewRegistry()
		factory.RegisterBuiltins(defaultReg, nil)
	}
	return defaultReg
}

// SetDefault replaces the process-wide registry. A nil registry restores the
// built-in one on next use.
func SetDefault(reg *llm.Registry) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultReg = reg
}

// Generate obtains one JSON document satisfying params.Format from the named
// backend. An empty model selects the backend default; credentials rotate
// across attempts.
func Generate(ctx context.Context, name llm.InferenceName, params llm.OutlineParams, model string, credentials ...string) (*llm.Result, error) {
	return Default().Dispatch(ctx, name, params, model, credentials...)
}

// GenerateObject is Generate followed by decoding the result into T.
// Side-channel keys such as _context are ignored unless T declares them.
func GenerateObject[T any](ctx context.Context, name llm.InferenceName, params llm.OutlineParams, model string, credentials ...string) (T, error) {
	var out T
	res, err := Generate(ctx, name, params, model, credentials...)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		return out, fmt.Errorf("decode %s result: %w", name, err)
	}
	return out, nil
}
