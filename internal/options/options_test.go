package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type storeConfig struct {
	capacity int
	name     string
}

func withCapacity(n int) Option[*storeConfig] {
	return New(func(cfg *storeConfig) error {
		if n <= 0 {
			return errors.New("capacity must be positive")
		}
		cfg.capacity = n

		return nil
	})
}

func withName(name string) Option[*storeConfig] {
	return NoError(func(cfg *storeConfig) {
		cfg.name = name
	})
}

func TestApply(t *testing.T) {
	cfg := &storeConfig{}
	require.NoError(t, Apply(cfg, withCapacity(100), withName("primary")))
	require.Equal(t, 100, cfg.capacity)
	require.Equal(t, "primary", cfg.name)
}

func TestApply_StopsOnError(t *testing.T) {
	cfg := &storeConfig{}
	err := Apply(cfg, withCapacity(-1), withName("never"))
	require.Error(t, err)
	require.Empty(t, cfg.name, "options after a failing one must not apply")
}

func TestApply_NoOptions(t *testing.T) {
	cfg := &storeConfig{}
	require.NoError(t, Apply(cfg))
	require.Zero(t, cfg.capacity)
}
