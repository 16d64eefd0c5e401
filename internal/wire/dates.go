package wire

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/nodetel/internal/domain"
)

// Year-first layouts are tried before the ambiguous slash/dash/dot ones, so
// "01/02/2024" reads as January 2nd and "01-02-2024" as February 1st.
var legacyDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"02-01-2006",
	"02.01.2006",
}

// ParseLegacyDate parses the companion date string legacy records carry.
func ParseLegacyDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range legacyDateLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", domain.ErrInconsistent, value)
}

// CalendarDaysApart counts whole UTC calendar days between a and b.
func CalendarDaysApart(a, b time.Time) int {
	da := utcDate(a)
	db := utcDate(b)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
