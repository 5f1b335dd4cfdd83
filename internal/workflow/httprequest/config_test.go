package httprequest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10*time.Second, cfg.Timeout.Connect)
	assert.Equal(t, 600*time.Second, cfg.Timeout.Read)
	assert.Equal(t, 600*time.Second, cfg.Timeout.Write)
	assert.EqualValues(t, 10*1024*1024, cfg.MaxBinarySize)
	assert.EqualValues(t, 1*1024*1024, cfg.MaxTextSize)
	assert.True(t, cfg.SSLVerify)
	assert.Equal(t, 3, cfg.SSRFRetries)
}

func TestResolveTimeout(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("nil override keeps defaults", func(t *testing.T) {
		timeout, err := cfg.ResolveTimeout(nil)
		require.NoError(t, err)
		assert.Equal(t, cfg.Timeout, timeout)
	})

	t.Run("partial override keeps unset phases", func(t *testing.T) {
		timeout, err := cfg.ResolveTimeout(&Timeout{Read: 30 * time.Second})
		require.NoError(t, err)
		assert.Equal(t, 10*time.Second, timeout.Connect)
		assert.Equal(t, 30*time.Second, timeout.Read)
		assert.Equal(t, 600*time.Second, timeout.Write)
	})

	t.Run("negative values are rejected", func(t *testing.T) {
		_, err := cfg.ResolveTimeout(&Timeout{Connect: -time.Second})
		assert.Error(t, err)
	})
}

func TestResolveConfig(t *testing.T) {
	t.Run("nil settings are an error", func(t *testing.T) {
		_, err := ResolveConfig(nil)
		assert.Error(t, err)
	})

	t.Run("empty overrides resolve to defaults", func(t *testing.T) {
		cfg, err := ResolveConfig(&Overrides{})
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("overrides apply over defaults", func(t *testing.T) {
		binary := int64(512)
		sslOff := false
		retries := 0
		cfg, err := ResolveConfig(&Overrides{
			Timeout:       &Timeout{Connect: 2 * time.Second},
			MaxBinarySize: &binary,
			SSLVerify:     &sslOff,
			SSRFRetries:   &retries,
		})
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, cfg.Timeout.Connect)
		assert.Equal(t, 600*time.Second, cfg.Timeout.Read)
		assert.EqualValues(t, 512, cfg.MaxBinarySize)
		assert.EqualValues(t, DefaultMaxTextSize, cfg.MaxTextSize)
		assert.False(t, cfg.SSLVerify)
		assert.Zero(t, cfg.SSRFRetries)
	})

	t.Run("non-positive sizes are rejected", func(t *testing.T) {
		zero := int64(0)
		_, err := ResolveConfig(&Overrides{MaxBinarySize: &zero})
		assert.Error(t, err)
		_, err = ResolveConfig(&Overrides{MaxTextSize: &zero})
		assert.Error(t, err)
	})
}
