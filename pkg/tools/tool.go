package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/majordomo-ai/majordomo/pkg/logger"
)

// Tool is one externally-callable capability with a text-in/text-out
// contract. Invoke never fails: network and provider errors come back as
// human-readable text, because the reasoning loop has no separate error
// channel for observations.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, input string) string
}

// Registry maps tool names to capabilities. The reasoning loop dispatches
// by exact name; unknown names are the caller's problem to recover from.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Invoke runs the named tool and returns its observation text. The second
// return reports whether the tool exists at all.
func (r *Registry) Invoke(ctx context.Context, name, input string) (string, bool) {
	tool, ok := r.Get(name)
	if !ok {
		return "", false
	}

	logger.InfoCF("tool", "Tool invocation started", map[string]interface{}{
		"tool":  name,
		"input": truncateLogString(input),
	})

	start := time.Now()
	observation := tool.Invoke(ctx, input)
	logger.InfoCF("tool", "Tool invocation completed", map[string]interface{}{
		"tool":        name,
		"duration_ms": time.Since(start).Milliseconds(),
		"result_len":  len(observation),
	})
	return observation, true
}

// Names returns the registered tool names, sorted for stable prompts.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CatalogLines renders "name: description" lines for the prompt's tool
// catalog, in Names() order.
func (r *Registry) CatalogLines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, r.tools[name].Description()))
	}
	return lines
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

func truncateLogString(value string) string {
	const maxLen = 256
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen] + "...(truncated)"
}

func trimInput(input string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(input), `"'`))
}
