package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsFreshValue(t *testing.T) {
	c := New()
	c.Set(Key("matches", "league-1"), "payload")

	v, ok := c.Get(Key("matches", "league-1"))
	require.True(t, ok)
	assert.Equal(t, "payload", v)
}

func TestGetMissesAfterTTL(t *testing.T) {
	c := New()
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set(Key("live", "matches", "league-1"), "payload")

	// still fresh just under the live TTL
	c.now = func() time.Time { return base.Add(29 * time.Second) }
	_, ok := c.Get(Key("live", "matches", "league-1"))
	assert.True(t, ok)

	// stale once the live TTL elapses
	c.now = func() time.Time { return base.Add(31 * time.Second) }
	_, ok = c.Get(Key("live", "matches", "league-1"))
	assert.False(t, ok)

	// stale read still serves the last known value
	v, ok := c.GetStale(Key("live", "matches", "league-1"))
	require.True(t, ok)
	assert.Equal(t, "payload", v)
}

func TestNonLiveKeysUseLongerTTL(t *testing.T) {
	c := New()
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set(Key("conversations"), "inbox")

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok := c.Get(Key("conversations"))
	assert.True(t, ok)

	c.now = func() time.Time { return base.Add(6 * time.Minute) }
	_, ok = c.Get(Key("conversations"))
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	c := New()
	c.Set("k", "first")
	c.Set("k", "second")

	v, ok := c.GetStale("k")
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestMissIsNotAnError(t *testing.T) {
	c := New()
	_, ok := c.Get("absent")
	assert.False(t, ok)
	_, ok = c.GetStale("absent")
	assert.False(t, ok)
}
