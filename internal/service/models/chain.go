// Package models provides the per-task model fallback chain and the provider model catalog.
package models

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

// DefaultModels is the chain used for every task when nothing is configured.
var DefaultModels = []string{"gemini-flash-latest", "gemini-1.5-flash"}

// Chain maps each task kind to an ordered list of model ids, most preferred first.
// It never reorders at runtime.
type Chain struct {
	byTask map[domain.TaskKind][]string
}

// NewChain builds a chain from task name to model list. Every task must end up
// with at least one model; ids are trimmed and de-duplicated in order.
func NewChain(byTask map[string][]string) (*Chain, error) {
	c := &Chain{byTask: make(map[domain.TaskKind][]string, len(domain.TaskKinds))}
	for _, task := range domain.TaskKinds {
		models := dedup(byTask[string(task)])
		if len(models) == 0 {
			return nil, fmt.Errorf("op=models.NewChain: task %s has no models: %w", task, domain.ErrInvalidArgument)
		}
		c.byTask[task] = models
	}
	for name := range byTask {
		if !domain.TaskKind(name).Valid() {
			return nil, fmt.Errorf("op=models.NewChain: unknown task %q: %w", name, domain.ErrInvalidArgument)
		}
	}
	return c, nil
}

// DefaultChain uses DefaultModels for every task.
func DefaultChain() *Chain {
	byTask := make(map[string][]string, len(domain.TaskKinds))
	for _, task := range domain.TaskKinds {
		byTask[string(task)] = DefaultModels
	}
	c, _ := NewChain(byTask)
	return c
}

// Models returns a copy of the chain for task; unknown tasks yield nil.
func (c *Chain) Models(task domain.TaskKind) []string {
	m := c.byTask[task]
	out := make([]string, len(m))
	copy(out, m)
	return out
}

// All returns every configured model id once, in task then chain order.
func (c *Chain) All() []string {
	var all []string
	for _, task := range domain.TaskKinds {
		all = append(all, c.byTask[task]...)
	}
	return dedup(all)
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, m := range in {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
