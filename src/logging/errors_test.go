package logging

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimit(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"anthropic payload", errors.New(`claude api error: status 429: {"type":"rate_limit_error"}`), true},
		{"plain status", fmt.Errorf("langsmith runs: status 429"), true},
		{"prose", errors.New("Too Many Requests"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRateLimit(tc.err))
		})
	}
}

func TestIsOverloaded(t *testing.T) {
	assert.True(t, IsOverloaded(errors.New(`status 529: {"type":"overloaded_error"}`)))
	assert.True(t, IsOverloaded(errors.New("status 503 service unavailable")))
	assert.False(t, IsOverloaded(nil))
	assert.False(t, IsOverloaded(errors.New("status 500")))
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(errors.New("429")))
	assert.True(t, Transient(errors.New("overloaded")))
	assert.False(t, Transient(errors.New("invalid api key")))
	assert.False(t, Transient(nil))
}
