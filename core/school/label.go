package school

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	NowFunc = time.Now // mockable

	nameThenYearRe = regexp.MustCompile(`^([A-Za-z]+)(\d{4})$`)
	yearThenNameRe = regexp.MustCompile(`^(\d{4})([A-Za-z]+)$`)
)

// ParseClassLabel decomposes a free-form class label into (name, cohort year):
//
//	"AKIFT2025" -> ("AKIFT", 2025)
//	"2025AKIFT" -> ("AKIFT", 2025)
//
// Any other label ("1A", "Mathe LK") is taken verbatim as the class name with
// the current calendar year. This is a best-effort heuristic, not a strict
// format.
func ParseClassLabel(label string) (string, int) {
	label = strings.TrimSpace(label)

	if m := nameThenYearRe.FindStringSubmatch(label); m != nil {
		year, _ := strconv.Atoi(m[2])
		return m[1], year
	}
	if m := yearThenNameRe.FindStringSubmatch(label); m != nil {
		year, _ := strconv.Atoi(m[1])
		return m[2], year
	}
	return label, NowFunc().Year()
}
