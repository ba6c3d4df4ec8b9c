package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/crex-scraper/internal/platform/logging"
)

const listDateLayout = "2 Jan 2006"

var clockTimePattern = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(AM|PM)`)

// Normalizer turns the loose date and time labels used on fixture pages into instants.
type Normalizer struct {
	location *time.Location
	logger   *logging.Logger
}

func NewNormalizer(location *time.Location, logger *logging.Logger) *Normalizer {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Normalizer{location: location, logger: logger}
}

func (n *Normalizer) Location() *time.Location {
	return n.location
}

// Normalize never fails: when the labels cannot be parsed the reference time is returned.
func (n *Normalizer) Normalize(dateText, timeText string, now time.Time) time.Time {
	at, err := n.Parse(dateText, timeText, now)
	if err != nil {
		n.logger.Error("normalize match date failed, using reference time",
			"date_text", dateText,
			"time_text", timeText,
			"error", err,
		)
		return now.UTC()
	}
	return at
}

// Parse combines a date label ("Today", "Tomorrow", "Wed, 16 Jul 2025") and a
// time label ("7:30 PM") in the normalizer location and returns the UTC instant.
func (n *Normalizer) Parse(dateText, timeText string, now time.Time) (time.Time, error) {
	year, month, day, err := n.parseDate(dateText, now)
	if err != nil {
		return time.Time{}, err
	}

	hour, minute, err := parseClock(timeText)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(year, month, day, hour, minute, 0, 0, n.location).UTC(), nil
}

func (n *Normalizer) parseDate(dateText string, now time.Time) (int, time.Month, int, error) {
	local := now.In(n.location)
	lower := strings.ToLower(dateText)

	switch {
	case strings.Contains(lower, "today"):
		y, m, d := local.Date()
		return y, m, d, nil
	case strings.Contains(lower, "tomorrow"):
		y, m, d := local.AddDate(0, 0, 1).Date()
		return y, m, d, nil
	}

	parts := strings.Split(dateText, ",")
	if len(parts) < 2 {
		y, m, d := local.Date()
		return y, m, d, nil
	}

	parsed, err := time.Parse(listDateLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parse date %q: %w", dateText, err)
	}
	y, m, d := parsed.Date()
	return y, m, d, nil
}

// parseClock returns midnight when text carries no clock time.
func parseClock(text string) (int, int, error) {
	groups := clockTimePattern.FindStringSubmatch(text)
	if groups == nil {
		return 0, 0, nil
	}

	hour, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse hour %q: %w", groups[1], err)
	}
	minute, err := strconv.Atoi(groups[2])
	if err != nil {
		return 0, 0, fmt.Errorf("parse minute %q: %w", groups[2], err)
	}

	switch strings.ToUpper(groups[3]) {
	case "PM":
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("clock time %q out of range", groups[0])
	}
	return hour, minute, nil
}
