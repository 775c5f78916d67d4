package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

func TestNewChain_OrderAndDedup(t *testing.T) {
	t.Parallel()

	c, err := NewChain(map[string][]string{
		"verify_component": {"a", " b ", "a", ""},
		"estimate_pricing": {"p"},
		"estimate_waste":   {"w", "a"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Models(domain.TaskVerifyComponent))
	assert.Equal(t, []string{"p"}, c.Models(domain.TaskEstimatePricing))
	assert.Equal(t, []string{"a", "b", "p", "w"}, c.All())
	assert.Nil(t, c.Models(domain.TaskKind("nope")))
}

func TestNewChain_Rejects(t *testing.T) {
	t.Parallel()

	_, err := NewChain(map[string][]string{
		"verify_component": {"a"},
		"estimate_pricing": {" "},
		"estimate_waste":   {"w"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = NewChain(map[string][]string{
		"verify_component": {"a"},
		"estimate_pricing": {"p"},
		"estimate_waste":   {"w"},
		"summarize":        {"s"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task")
}

func TestChain_ModelsReturnsCopy(t *testing.T) {
	t.Parallel()

	c := DefaultChain()
	m := c.Models(domain.TaskEstimateWaste)
	require.Equal(t, DefaultModels, m)
	m[0] = "mutated"
	assert.Equal(t, DefaultModels, c.Models(domain.TaskEstimateWaste))
}
