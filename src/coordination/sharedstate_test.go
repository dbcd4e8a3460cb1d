package coordination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreOf(t *testing.T) {
	cases := []struct {
		name   string
		active int
		total  int
		want   float64
	}{
		{"empty fleet is healthy", 0, 0, 100},
		{"all running", 4, 4, 100},
		{"half running", 2, 4, 50},
		{"one of three", 1, 3, 33.3},
		{"none running", 0, 4, 0},
		{"negative total treated as empty", 0, -1, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ScoreOf(tc.active, tc.total))
		})
	}
}
