package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveIDDeterministic(t *testing.T) {
	id1 := DeriveID("x.md", 1)
	id2 := DeriveID("x.md", 1)
	assert.Equal(t, id1, id2, "expected deterministic id")
	assert.NotEqual(t, DeriveID("x.md", 1), DeriveID("x.md", 2), "expected different chunk indices to yield different ids")
	assert.NotEqual(t, DeriveID("x.md", 0), DeriveID("y.md", 0), "expected different paths to yield different ids")
}

func TestVisible(t *testing.T) {
	c := &Chunk{}
	assert.True(t, c.Visible(), "fresh chunk should be visible")
	c.SupersededBy = "other"
	assert.False(t, c.Visible(), "superseded chunk should not be visible")
	c.SupersededBy = ""
	c.DeletionEligible = true
	assert.False(t, c.Visible(), "deletion-eligible chunk should not be visible")
}

func TestHeadWalk(t *testing.T) {
	chain := map[string]string{
		"a": "b",
		"b": "c",
	}
	resolve := func(id string) (string, bool) {
		next, ok := chain[id]
		if !ok {
			if id == "c" {
				return "", true
			}
			return "", false
		}
		return next, true
	}

	head, err := Head("a", resolve)
	require.NoError(t, err)
	assert.Equal(t, "c", head)
}

func TestHeadWalkCycle(t *testing.T) {
	chain := map[string]string{
		"a": "b",
		"b": "a",
	}
	resolve := func(id string) (string, bool) {
		return chain[id], true
	}
	_, err := Head("a", resolve)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestHeadWalkBroken(t *testing.T) {
	resolve := func(id string) (string, bool) {
		return "", false
	}
	_, err := Head("missing", resolve)
	assert.ErrorIs(t, err, ErrBrokenChain)
}
