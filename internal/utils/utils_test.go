package utils

import (
	"math"
	"testing"
)

func TestHashKeySeparatesParts(t *testing.T) {
	if HashKey("ab", "c") == HashKey("a", "bc") {
		t.Fatalf("expected different keys for different splits")
	}
	if HashKey("42") != HashKey("42") {
		t.Fatalf("expected stable key")
	}
}

func TestDistanceKm(t *testing.T) {
	mainGhat := Point{Lat: 23.1828, Lng: 75.7681}
	if d := DistanceKm(mainGhat, mainGhat); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
	// Ujjain to Indore is roughly 51km as the crow flies.
	d := DistanceKm(mainGhat, Point{Lat: 22.7196, Lng: 75.8577})
	if math.Abs(d-52) > 3 {
		t.Fatalf("unexpected distance %f", d)
	}
}

func TestPointValid(t *testing.T) {
	cases := map[Point]bool{
		{}:                       false,
		{Lat: 23.18, Lng: 75.77}: true,
		{Lat: 91, Lng: 10}:       false,
		{Lat: 10, Lng: -181}:     false,
	}
	for p, want := range cases {
		if got := p.Valid(); got != want {
			t.Fatalf("%+v: expected %v, got %v", p, want, got)
		}
	}
}
