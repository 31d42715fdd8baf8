package school

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseClassLabel(t *testing.T) {
	NowFunc = func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }
	defer func() { NowFunc = time.Now }()

	tests := []struct {
		label    string
		wantName string
		wantYear int
	}{
		{"AKIFT2025", "AKIFT", 2025},
		{"2025AKIFT", "AKIFT", 2025},
		{"1A", "1A", 2026},
		{"10B", "10B", 2026},
		{" BKIFT2024 ", "BKIFT", 2024},
		// no pattern matches: whole label, current year
		{"Mathe Leistungskurs", "Mathe Leistungskurs", 2026},
		{"", "", 2026},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			name, year := ParseClassLabel(tt.label)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantYear, year)
		})
	}
}
