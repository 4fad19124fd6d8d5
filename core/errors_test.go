package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsShutdown(t *testing.T) {
	err := NewShutdownError("store unreachable")
	assert.Equal(t, "shutting down: store unreachable", err.Error())
	assert.True(t, IsShutdown(err))
	assert.True(t, IsShutdown(errors.Wrap(err, "querying activities")))
	assert.False(t, IsShutdown(errors.New("store unreachable")))
	assert.False(t, IsShutdown(nil))
}
