package bdrom

import (
	"os"
	"testing"
)

func BenchmarkScan(b *testing.B) {
	path := os.Getenv("BDPLAY_BENCH_PATH")
	if path == "" {
		b.Skip("BDPLAY_BENCH_PATH not set")
	}
	b.ReportAllocs()
	for b.Loop() {
		rom, err := New(path)
		if err != nil {
			b.Fatal(err)
		}
		_ = rom.Scan()
	}
}
