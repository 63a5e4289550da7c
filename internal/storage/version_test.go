package storage

import "testing"

func TestVersionGeneratorMonotonic(t *testing.T) {
	var g VersionGenerator
	prev := g.Next()
	for i := 0; i < 1000; i++ {
		next := g.Next()
		if next <= prev {
			t.Fatalf("version did not strictly increase: prev=%d next=%d", prev, next)
		}
		prev = next
	}
}

func TestVersionGeneratorSeedRaisesFloor(t *testing.T) {
	var g VersionGenerator
	g.Seed(1_000_000)
	if g.Current() != 1_000_000 {
		t.Fatalf("got %d", g.Current())
	}
	next := g.Next()
	if next <= 1_000_000 {
		t.Fatalf("expected Next to exceed the seeded floor, got %d", next)
	}
}

func TestVersionGeneratorSeedNeverLowersFloor(t *testing.T) {
	var g VersionGenerator
	g.Seed(500)
	g.Seed(10)
	if g.Current() != 500 {
		t.Fatalf("expected Seed(10) to be a no-op below the existing floor, got %d", g.Current())
	}
}
