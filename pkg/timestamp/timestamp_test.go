package timestamp

import (
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	ms := ToUnixMs(now)
	back := FromUnixMs(ms)

	if !back.Equal(now) {
		t.Errorf("round trip mismatch: %v != %v", back, now)
	}
}

func TestZeroValues(t *testing.T) {
	if ToUnixMs(time.Time{}) != 0 {
		t.Error("zero time should convert to 0")
	}
	if !FromUnixMs(0).IsZero() {
		t.Error("0 should convert to zero time")
	}
	if Format(0) != "" {
		t.Error("Format(0) should be empty")
	}
	if Since(0) != 0 {
		t.Error("Since(0) should be 0")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected int64
	}{
		{"nil", nil, 0},
		{"zero int64", int64(0), 0},
		{"milliseconds", int64(1700000000000), 1700000000000},
		{"seconds", int64(1700000000), 1700000000000},
		{"float seconds", float64(1700000000), 1700000000000},
		{"float millis", float64(1700000000000), 1700000000000},
		{"int seconds", 1700000000, 1700000000000},
		{"rfc3339", "2023-11-14T22:13:20Z", 1700000000000},
		{"numeric string seconds", "1700000000", 1700000000000},
		{"empty string", "", 0},
		{"garbage string", "not-a-time", 0},
		{"unsupported type", struct{}{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.input); got != tt.expected {
				t.Errorf("Parse(%v) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	now := time.Now()
	if got := Parse(now); got != now.UnixMilli() {
		t.Errorf("Parse(time.Time) = %d, want %d", got, now.UnixMilli())
	}
}

func TestFormat(t *testing.T) {
	if got := Format(1700000000000); got != "2023-11-14T22:13:20Z" {
		t.Errorf("Format = %q", got)
	}
}
