package human

import (
	"fmt"
	"math"
	"time"
)

func plural(n float64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%v %vs", n, unit)
}

// TimeFromBase describes t relative to base, like "5 mins ago" or "in 2 days". Times further
// than two weeks away are shown as dates.
func TimeFromBase(base, t time.Time) string {
	sgnDiff := t.Sub(base)
	neg := sgnDiff < 0
	diff := sgnDiff
	if neg {
		diff = -diff
	}

	if diff < time.Second {
		return "now"
	}

	agoIn := func(n float64, unit string) string {
		s := plural(n, unit)
		if neg {
			return s + " ago"
		}
		return "in " + s
	}

	switch {
	case diff <= 90*time.Second:
		return agoIn(math.Round(diff.Seconds()), "sec")
	case diff <= 90*time.Minute:
		return agoIn(math.Round(diff.Minutes()), "min")
	case diff <= 36*time.Hour:
		return agoIn(math.Round(diff.Hours()), "hr")
	case diff <= 14*24*time.Hour:
		return agoIn(math.Round(diff.Hours()/24), "day")
	}
	return t.Format(time.DateOnly)
}
