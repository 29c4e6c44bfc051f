package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ATLAS_QDRANT_URL", "")
	t.Setenv("ATLAS_QDRANT_COLLECTION", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "atlas", cfg.Store.Collection)
	assert.Equal(t, 14*24*time.Hour, cfg.Vacuum.GracePeriod)
	assert.Less(t, cfg.Tokenizer.SafeLimit, cfg.Tokenizer.ContextWindow)
}

func TestValidateRejectsBadConcurrency(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Concurrency.Min = 5
	cfg.Concurrency.Max = 1
	err = cfg.Validate()
	require.Error(t, err)
	kind, ok := atlaserrors.GetKind(err)
	assert.True(t, ok)
	assert.Equal(t, atlaserrors.KindConfigError, kind)
}

func TestValidateRejectsBadTokenizerLimits(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Tokenizer.SafeLimit = cfg.Tokenizer.ContextWindow
	assert.Error(t, cfg.Validate())
}

func TestParseSpecifier(t *testing.T) {
	provider, model, err := ParseSpecifier("openai:text-embedding-3-small")
	require.NoError(t, err)
	assert.Equal(t, "openai", provider)
	assert.Equal(t, "text-embedding-3-small", model)

	_, _, err = ParseSpecifier("bogus")
	assert.Error(t, err)
}
