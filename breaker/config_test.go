package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyDefaults(t *testing.T) {
	var p Policy
	p.setDefaults()

	assert.Equal(t, 0.5, p.FailureThreshold)
	assert.Equal(t, 30*time.Second, p.RecoveryTimeout)
	assert.Equal(t, 60*time.Second, p.Window)
	assert.Equal(t, time.Second, p.Bucket)
	assert.Equal(t, 10, p.MinimumVolume)
	assert.Equal(t, 10*time.Second, p.ProbeTTL)
	require.NoError(t, p.validate())
}

func TestPolicyProbeTTLDerivedFromRecoveryTimeout(t *testing.T) {
	p := Policy{RecoveryTimeout: 4 * time.Second}
	p.setDefaults()

	assert.Equal(t, 2*time.Second, p.ProbeTTL)
}

func TestPolicyValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"threshold above one", func(p *Policy) { p.FailureThreshold = 1.5 }},
		{"negative threshold", func(p *Policy) { p.FailureThreshold = -0.1 }},
		{"probe ttl not below recovery timeout", func(p *Policy) { p.ProbeTTL = p.RecoveryTimeout }},
		{"bucket exceeds window", func(p *Policy) { p.Bucket = p.Window * 2 }},
		{"negative minimum volume", func(p *Policy) { p.MinimumVolume = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			p.setDefaults()
			tt.mutate(&p)

			err := p.validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	c := &Config{}
	c.setDefaults()

	assert.Equal(t, "fuse:", c.Prefix)
	assert.Equal(t, FailOpen, c.FailMode)
	assert.Equal(t, 200*time.Millisecond, c.OpTimeout)
	assert.Equal(t, "json", c.Codec)
	require.NoError(t, c.validate())
}

func TestConfigRejectsUnknownFailMode(t *testing.T) {
	c := DefaultConfig()
	c.setDefaults()
	c.FailMode = "explode"

	assert.ErrorIs(t, c.validate(), ErrInvalidConfig)
}

func TestConfigValidatesNamedPolicies(t *testing.T) {
	c := DefaultConfig()
	c.Breakers = map[string]Policy{
		"payment": {FailureThreshold: 2.0},
	}
	c.setDefaults()

	err := c.validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "payment")
}
