package youtube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  time.Duration
		known bool
	}{
		{"empty", "", 0, false},
		{"seconds only", "PT45S", 45 * time.Second, true},
		{"minutes only", "PT2M", 2 * time.Minute, true},
		{"hours only", "PT1H", time.Hour, true},
		{"minutes and seconds", "PT4M59S", 4*time.Minute + 59*time.Second, true},
		{"full", "PT2H15M30S", 2*time.Hour + 15*time.Minute + 30*time.Second, true},
		{"days", "P1DT2H", 26 * time.Hour, true},
		{"live placeholder", "P0D", 0, true},
		{"no components", "PT", 0, false},
		{"invalid", "invalid", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := parseDuration(tt.in)
			assert.Equal(t, tt.known, known)
			assert.Equal(t, tt.want, got)
		})
	}
}
