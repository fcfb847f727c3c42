package util

import (
	"testing"
	"time"
)

func TestReadersStopAtEnd(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02}
	pos := 0
	if got := ReadUint16(data, &pos); got != 0x0001 {
		t.Fatalf("ReadUint16=%#x want 0x0001", got)
	}
	if got := ReadUint32(data, &pos); got != 0 || pos != 2 {
		t.Fatalf("ReadUint32 past end = %#x pos=%d, want 0 pos=2", got, pos)
	}
	if got := ReadString(data, 8, &pos); got != "\x02" || pos != 3 {
		t.Fatalf("ReadString=%q pos=%d", got, pos)
	}
	if got := ReadByte(data, &pos); got != 0 {
		t.Fatalf("ReadByte past end = %d", got)
	}
}

func TestTickConversions(t *testing.T) {
	if got := TicksToMillis(600 * Ticks90kHz); got != 600000 {
		t.Fatalf("TicksToMillis=%d want 600000", got)
	}
	if got := MillisToTicks(1500); got != 135000 {
		t.Fatalf("MillisToTicks=%d want 135000", got)
	}
	if got := MillisToTicks(-5); got != 0 {
		t.Fatalf("MillisToTicks(-5)=%d want 0", got)
	}
}

func TestTicksToDuration(t *testing.T) {
	tests := []struct {
		name  string
		ticks uint64
		want  time.Duration
	}{
		{"zero", 0, 0},
		{"fraction", 45000, 500 * time.Millisecond},
		{"one tick", 1, time.Second / Ticks90kHz},
		{"two hours", 7200*Ticks90kHz + 9, 2*time.Hour + 100*time.Microsecond},
		{"forty hours", 40 * 3600 * Ticks90kHz, 40 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TicksToDuration(tt.ticks); got != tt.want {
				t.Fatalf("TicksToDuration(%d) = %v, want %v", tt.ticks, got, tt.want)
			}
		})
	}
}

func TestFormatTicks(t *testing.T) {
	tests := []struct {
		ticks  uint64
		millis bool
		want   string
	}{
		{0, false, "0:00:00"},
		{3723 * Ticks90kHz, false, "1:02:03"},
		{3723*Ticks90kHz + 45000, true, "1:02:03.500"},
		{30 * 3600 * Ticks90kHz, false, "30:00:00"},
	}
	for _, tt := range tests {
		if got := FormatTicks(tt.ticks, tt.millis); got != tt.want {
			t.Errorf("FormatTicks(%d,%v)=%q want %q", tt.ticks, tt.millis, got, tt.want)
		}
	}
}
