package util

import (
	"fmt"
	"time"
)

// Clock rates used by BD-ROM structures.
const (
	Ticks45kHz = 45000
	Ticks90kHz = 90000
)

func ReadString(data []byte, count int, pos *int) string {
	if *pos+count > len(data) {
		count = len(data) - *pos
		if count < 0 {
			count = 0
		}
	}
	val := string(data[*pos : *pos+count])
	*pos += count
	return val
}

func ReadUint16(data []byte, pos *int) uint16 {
	if *pos+2 > len(data) {
		return 0
	}
	val := uint16(data[*pos])<<8 | uint16(data[*pos+1])
	*pos += 2
	return val
}

func ReadUint32(data []byte, pos *int) uint32 {
	if *pos+4 > len(data) {
		return 0
	}
	val := uint32(data[*pos])<<24 | uint32(data[*pos+1])<<16 | uint32(data[*pos+2])<<8 | uint32(data[*pos+3])
	*pos += 4
	return val
}

func ReadByte(data []byte, pos *int) byte {
	if *pos >= len(data) {
		return 0
	}
	b := data[*pos]
	*pos += 1
	return b
}

// TicksToMillis converts 90 kHz ticks to milliseconds.
func TicksToMillis(ticks uint64) int64 {
	return int64(ticks / (Ticks90kHz / 1000))
}

// MillisToTicks converts milliseconds to 90 kHz ticks.
func MillisToTicks(ms int64) uint64 {
	if ms <= 0 {
		return 0
	}
	return uint64(ms) * (Ticks90kHz / 1000)
}

// TicksToDuration converts 90 kHz ticks to a duration. Whole seconds are
// split off first so long titles do not overflow.
func TicksToDuration(ticks uint64) time.Duration {
	return time.Duration(ticks/Ticks90kHz)*time.Second +
		time.Duration(ticks%Ticks90kHz)*time.Second/Ticks90kHz
}

// FormatTicks renders 90 kHz ticks as h:mm:ss(.mmm).
func FormatTicks(ticks uint64, withMillis bool) string {
	d := TicksToDuration(ticks)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	if withMillis {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
