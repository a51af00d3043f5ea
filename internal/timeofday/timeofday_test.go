package timeofday

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"5:00 AM":  "05:00",
		"12:00 am": "00:00",
		"12:30 pm": "12:30",
		"11:45 PM": "23:45",
		"1:05 pm":  "13:05",
		"9:15 am":  "09:15",
		"17:05":    "17:05",
		"7:3":      "07:03",
		" 08:00 ":  "08:00",
		"noon":     "noon",
		"ab:cd pm": "ab:cd pm",
		"5:00 xm":  "5:00 xm",
		"":         "",
	}

	for input, want := range cases {
		if got := Normalize(input); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestMinute(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 10, 15, 5, 7, 42, 0, time.UTC)
	if got := Minute(at); got != "05:07" {
		t.Fatalf("Minute() = %q, want %q", got, "05:07")
	}
}
