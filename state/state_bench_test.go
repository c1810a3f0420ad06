package state

import (
	"fmt"
	"testing"
)

// BenchmarkFileTracker_MarkExported benchmarks the state tracker write performance
func BenchmarkFileTracker_MarkExported(b *testing.B) {
	tmpDir := b.TempDir()

	tracker, err := NewFileTracker(tmpDir, true)
	if err != nil {
		b.Fatal(err)
	}
	defer tracker.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := tracker.MarkExported(fmt.Sprintf("msg-%d", i)); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()

	if err := tracker.Close(); err != nil {
		b.Fatal(err)
	}
}

// BenchmarkFileTracker_AlreadyExported benchmarks lookup performance
func BenchmarkFileTracker_AlreadyExported(b *testing.B) {
	tmpDir := b.TempDir()

	tracker, err := NewFileTracker(tmpDir, true)
	if err != nil {
		b.Fatal(err)
	}
	defer tracker.Close()

	for i := 0; i < 1000; i++ {
		if err := tracker.MarkExported(fmt.Sprintf("msg-%d", i)); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tracker.AlreadyExported(fmt.Sprintf("msg-%d", i%1000))
	}
}
