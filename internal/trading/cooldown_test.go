package trading

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCooldownAllowsFreshKey(t *testing.T) {
	c := NewCooldown(DefaultCooldownWindow, discardLogger())
	assert.True(t, c.Allow("tok", 0.5))
}

func TestCooldownBlocksNonImprovedPrice(t *testing.T) {
	c := NewCooldown(DefaultCooldownWindow, discardLogger())
	c.Append("tok", 0.40)

	assert.False(t, c.Allow("tok", 0.40)) // equal price still blocks
	assert.False(t, c.Allow("tok", 0.45)) // worse price blocks
	assert.True(t, c.Allow("tok", 0.39))  // lower price releases
}

func TestCooldownKeysIndependent(t *testing.T) {
	c := NewCooldown(DefaultCooldownWindow, discardLogger())
	c.Append("a", 0.40)
	assert.True(t, c.Allow("b", 0.40))
}

func TestCooldownExpiresAfterWindow(t *testing.T) {
	c := NewCooldown(120*time.Second, discardLogger())

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Append("tok", 0.40)

	c.now = func() time.Time { return base.Add(119 * time.Second) }
	assert.False(t, c.Allow("tok", 0.40))

	c.now = func() time.Time { return base.Add(121 * time.Second) }
	assert.True(t, c.Allow("tok", 0.40))
}
