package sources

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// isoDurationRe matches the YouTube contentDetails.duration form PT#H#M#S.
var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseDuration converts a PT[nH][nM][nS] code to seconds. Unparseable codes
// yield 0.
func ParseDuration(code string) int {
	m := isoDurationRe.FindStringSubmatch(code)
	if m == nil {
		return 0
	}
	total := 0
	for i, mult := range []int{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * mult
	}
	return total
}

// FormatDuration renders seconds as H:MM:SS, or MM:SS under an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// RecencyBonus scores how fresh a video is: 10 within a week, 5 within a
// month, 0 otherwise. Age is counted in whole days.
func RecencyBonus(publishedAt, now time.Time) float64 {
	days := int(now.Sub(publishedAt).Hours() / 24)
	switch {
	case days <= 7:
		return 10
	case days <= 30:
		return 5
	default:
		return 0
	}
}
