package youtube

import (
	"regexp"
	"strconv"
	"time"
)

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseDuration reads an ISO 8601 duration such as PT1H2M3S or P1DT2H.
// The second result is false when the value is empty or malformed.
func parseDuration(iso string) (time.Duration, bool) {
	if iso == "" || iso == "P" || iso == "PT" {
		return 0, false
	}
	m := isoDurationPattern.FindStringSubmatch(iso)
	if m == nil {
		return 0, false
	}

	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, false
		}
		total += time.Duration(n) * unit
	}
	return total, true
}
