package scraper

import (
	"testing"
	"time"
)

func TestNormalizer_RelativeDates(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(time.UTC, nil)
	now := time.Date(2025, 7, 16, 22, 45, 0, 0, time.UTC)

	cases := []struct {
		name     string
		dateText string
		timeText string
		want     time.Time
	}{
		{name: "today", dateText: "Today", timeText: "7:30 PM", want: time.Date(2025, 7, 16, 19, 30, 0, 0, time.UTC)},
		{name: "today upper", dateText: "TODAY, LIVE", timeText: "", want: time.Date(2025, 7, 16, 0, 0, 0, 0, time.UTC)},
		{name: "tomorrow", dateText: "tomorrow", timeText: "12:15 AM", want: time.Date(2025, 7, 17, 0, 15, 0, 0, time.UTC)},
		{name: "tomorrow mixed case", dateText: "ToMoRRoW", timeText: "12:00 PM", want: time.Date(2025, 7, 17, 12, 0, 0, 0, time.UTC)},
		{name: "absolute", dateText: "Wed, 16 Jul 2025", timeText: "9:05 am", want: time.Date(2025, 7, 16, 9, 5, 0, 0, time.UTC)},
		{name: "absolute single digit day", dateText: "Sat, 2 Aug 2025", timeText: "3:00PM", want: time.Date(2025, 8, 2, 15, 0, 0, 0, time.UTC)},
		{name: "no comma uses reference date", dateText: "16 Jul", timeText: "1:00 PM", want: time.Date(2025, 7, 16, 13, 0, 0, 0, time.UTC)},
		{name: "time embedded in text", dateText: "", timeText: "Starts 10:30 PM IST", want: time.Date(2025, 7, 16, 22, 30, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := n.Normalize(tc.dateText, tc.timeText, now)
			if !got.Equal(tc.want) {
				t.Fatalf("normalize(%q, %q) = %s, want %s", tc.dateText, tc.timeText, got, tc.want)
			}
		})
	}
}

func TestNormalizer_ClockConversion(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(time.UTC, nil)
	now := time.Date(2025, 7, 16, 8, 0, 0, 0, time.UTC)

	for text, wantHour := range map[string]int{
		"7:30 PM":  19,
		"12:15 AM": 0,
		"12:00 PM": 12,
		"11:59 AM": 11,
	} {
		got := n.Normalize("today", text, now)
		if got.Hour() != wantHour {
			t.Fatalf("time %q: got hour %d, want %d", text, got.Hour(), wantHour)
		}
	}
}

func TestNormalizer_FallsBackToReferenceNow(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(time.UTC, nil)
	now := time.Date(2025, 7, 16, 8, 12, 33, 0, time.UTC)

	for _, tc := range []struct{ date, clock string }{
		{date: "Wed, TBC", clock: "7:30 PM"},
		{date: "Wed, 31 Feb 2025", clock: ""},
		{date: "today", clock: "13:30 PM"},
	} {
		if _, err := n.Parse(tc.date, tc.clock, now); err == nil {
			t.Fatalf("expected parse error for %q %q", tc.date, tc.clock)
		}
		if got := n.Normalize(tc.date, tc.clock, now); !got.Equal(now) {
			t.Fatalf("expected reference now for %q %q, got %s", tc.date, tc.clock, got)
		}
	}
}

func TestNormalizer_UsesConfiguredLocation(t *testing.T) {
	t.Parallel()

	ist := time.FixedZone("IST", 5*3600+1800)
	n := NewNormalizer(ist, nil)

	// 20:00 UTC is already the 17th in IST.
	now := time.Date(2025, 7, 16, 20, 0, 0, 0, time.UTC)
	got := n.Normalize("Today", "7:30 PM", now)

	want := time.Date(2025, 7, 17, 19, 30, 0, 0, ist).UTC()
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected utc result, got %s", got.Location())
	}
}
