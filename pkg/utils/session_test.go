package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientSessionID(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC)

	id := clientSessionIDAt("127.0.0.1", "Mozilla", at)
	assert.True(t, IsSessionID(id))
	assert.Equal(t, id, clientSessionIDAt("127.0.0.1", "Mozilla", at.Add(50*time.Minute)))
	assert.NotEqual(t, id, clientSessionIDAt("127.0.0.1", "Mozilla", at.Add(time.Hour)))
	assert.NotEqual(t, id, clientSessionIDAt("127.0.0.2", "Mozilla", at))
	assert.True(t, IsSessionID(ClientSessionID("127.0.0.1", "Mozilla")))
}

func TestNewSessionID(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	assert.True(t, IsSessionID(a))
	assert.NotEqual(t, a, b)
}

func TestIsSessionID(t *testing.T) {
	assert.False(t, IsSessionID("short"))
	assert.False(t, IsSessionID("zzzzzzzzzzzzzzzz"))
	assert.True(t, IsSessionID("0123456789abcdef"))
}

func TestQueryKey_NormalizesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, QueryKey("Solve  x^2 = 4"), QueryKey("solve x^2 =   4 "))
	assert.NotEqual(t, QueryKey("solve x^2 = 4"), QueryKey("solve x^2 = 9"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", ParseLevel("debug").String())
	assert.Equal(t, "info", ParseLevel("").String())
	assert.Equal(t, "error", ParseLevel("error").String())
}
