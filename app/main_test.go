package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDefaultPort(t *testing.T) {
	assert.Equal(t, "localhost:6969", withDefaultPort("localhost"))
	assert.Equal(t, "[::1]:6969", withDefaultPort("[::1]"))

	// Explicit ports are left alone.
	assert.Equal(t, "localhost:7000", withDefaultPort("localhost:7000"))
	assert.Equal(t, ":6969", withDefaultPort(":6969"))
}
