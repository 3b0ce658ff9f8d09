package clog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithNilConfig(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestNewInvalidFormat(t *testing.T) {
	_, err := New(&Config{Format: "xml"})
	assert.Error(t, err)
}

func TestWithAndNamespaceReturnNewLogger(t *testing.T) {
	logger, err := New(&Config{Level: "debug"})
	require.NoError(t, err)

	child := logger.With(String("component", "breaker"))
	assert.NotNil(t, child)

	namespaced := logger.WithNamespace("breaker", "lease")
	assert.NotNil(t, namespaced)

	// 子 Logger 不影响父 Logger
	logger.Debug("parent still works")
	child.Debug("child works")
	namespaced.Debug("namespaced works")
}

func TestDiscardIsSilent(t *testing.T) {
	logger := Discard()
	logger.Info("nothing happens", String("k", "v"))
	assert.Equal(t, logger, logger.With(String("k", "v")))
	assert.Equal(t, logger, logger.WithNamespace("x"))
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Equal(t, Default(), Default())
}

func TestErrorField(t *testing.T) {
	f := Error(assert.AnError)
	assert.Equal(t, "err_msg", f.Key)

	f = Error(nil)
	assert.Equal(t, "err_msg", f.Key)
}
