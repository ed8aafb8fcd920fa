// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package sphere

import (
	"math"
	"math/rand"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestScreenToSphere(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		x, y          float64
		width, height float64
		wantPitch     float64
		wantYaw       float64
	}{
		{"center", 400, 300, 800, 600, 0, 0},
		{"left edge", 0, 300, 800, 600, 0, -180},
		{"right edge wraps", 800, 300, 800, 600, 0, -180},
		{"quarter right", 600, 300, 800, 600, 0, 90},
		{"top edge", 400, 0, 800, 600, 90, 0},
		{"bottom edge", 400, 600, 800, 600, -90, 0},
		{"halfway up", 400, 150, 800, 600, 30, 0},
		{"above container clamps", 400, -300, 800, 600, 90, 0},
		{"below container clamps", 400, 1200, 800, 600, -90, 0},
		{"far left wraps", -400, 300, 800, 600, 0, 0},
		{"degenerate width", 10, 10, 0, 600, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ScreenToSphere(tt.x, tt.y, tt.width, tt.height)
			if !almostEqual(got.Pitch, tt.wantPitch, 1e-6) {
				t.Errorf("pitch = %v, want %v", got.Pitch, tt.wantPitch)
			}
			if !almostEqual(got.Yaw, tt.wantYaw, 1e-6) {
				t.Errorf("yaw = %v, want %v", got.Yaw, tt.wantYaw)
			}
		})
	}
}

func TestSphereToScreen(t *testing.T) {
	t.Parallel()

	got := SphereToScreen(0, 0, 800, 600)
	if !almostEqual(got.X, 400, epsilon) || !almostEqual(got.Y, 300, epsilon) {
		t.Errorf("origin maps to %+v, want (400,300)", got)
	}

	got = SphereToScreen(30, 90, 800, 600)
	if !almostEqual(got.X, 600, epsilon) || !almostEqual(got.Y, 150, 1e-6) {
		t.Errorf("(30,90) maps to %+v, want (600,150)", got)
	}

	// Out-of-range input is normalized before mapping
	got = SphereToScreen(120, 270, 800, 600)
	want := SphereToScreen(90, -90, 800, 600)
	if !almostEqual(got.X, want.X, epsilon) || !almostEqual(got.Y, want.Y, epsilon) {
		t.Errorf("SphereToScreen(120,270) = %+v, want %+v", got, want)
	}
}

func TestPercentConversions(t *testing.T) {
	t.Parallel()

	c := PercentToSphere(50, 50)
	if c.Pitch != 0 || c.Yaw != 0 {
		t.Errorf("PercentToSphere(50,50) = %+v, want origin", c)
	}

	c = PercentToSphere(75, 25)
	if !almostEqual(c.Yaw, 90, epsilon) || !almostEqual(c.Pitch, 30, 1e-6) {
		t.Errorf("PercentToSphere(75,25) = %+v, want pitch 30 yaw 90", c)
	}

	p := SphereToPercent(30, 90)
	if !almostEqual(p.X, 75, epsilon) || !almostEqual(p.Y, 25, 1e-6) {
		t.Errorf("SphereToPercent(30,90) = %+v, want (75,25)", p)
	}
}

func TestIsValidSphereCoords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pitch, yaw float64
		want       bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.0001, 0, false},
		{-90.0001, 0, false},
		{0, 180.0001, false},
		{0, -180.0001, false},
		{95, 0, false},
		{math.NaN(), 0, false},
		{0, math.NaN(), false},
		{math.Inf(1), 0, false},
	}

	for _, tt := range tests {
		if got := IsValidSphereCoords(tt.pitch, tt.yaw); got != tt.want {
			t.Errorf("IsValidSphereCoords(%v, %v) = %v, want %v", tt.pitch, tt.yaw, got, tt.want)
		}
	}
}

func TestNormalizeSphereCoords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                 string
		pitch, yaw           float64
		wantPitch, wantYaw   float64
	}{
		{"in range", 10, -45, 10, -45},
		{"pitch clamps high", 120, 0, 90, 0},
		{"pitch clamps low", -200, 0, -90, 0},
		{"yaw 180 wraps", 0, 180, 0, -180},
		{"yaw 190 wraps", 0, 190, 0, -170},
		{"yaw -190 wraps", 0, -190, 0, 170},
		{"yaw 540 wraps", 0, 540, 0, -180},
		{"yaw -720 wraps", 0, -720, 0, 0},
		{"NaN pitch", math.NaN(), 5, 0, 5},
		{"infinite yaw", 5, math.Inf(-1), 5, 0},
		{"infinite pitch", math.Inf(1), 5, 90, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NormalizeSphereCoords(tt.pitch, tt.yaw)
			if !almostEqual(got.Pitch, tt.wantPitch, epsilon) || !almostEqual(got.Yaw, tt.wantYaw, epsilon) {
				t.Errorf("NormalizeSphereCoords(%v, %v) = %+v, want (%v, %v)",
					tt.pitch, tt.yaw, got, tt.wantPitch, tt.wantYaw)
			}
		})
	}
}

func TestNormalizeSphereCoords_RangeAndIdempotence(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		pitch := (rng.Float64() - 0.5) * 2000
		yaw := (rng.Float64() - 0.5) * 20000

		once := NormalizeSphereCoords(pitch, yaw)
		if once.Pitch < -90 || once.Pitch > 90 {
			t.Fatalf("pitch %v out of range for input (%v, %v)", once.Pitch, pitch, yaw)
		}
		if once.Yaw < -180 || once.Yaw >= 180 {
			t.Fatalf("yaw %v out of range for input (%v, %v)", once.Yaw, pitch, yaw)
		}

		twice := once.Normalize()
		if twice != once {
			t.Fatalf("normalize not idempotent: %+v then %+v", once, twice)
		}
	}
}

func TestScreenSphereRoundTrip(t *testing.T) {
	t.Parallel()

	const width, height = 1280.0, 720.0
	rng := rand.New(rand.NewSource(7))
	limit := math.Sin(79 * math.Pi / 180)

	for i := 0; i < 5000; i++ {
		x := rng.Float64() * width
		ny := (rng.Float64()*2 - 1) * limit
		y := (ny + 1) / 2 * height

		c := ScreenToSphere(x, y, width, height)
		if c.Pitch <= -80 || c.Pitch >= 80 {
			t.Fatalf("sample produced polar pitch %v", c.Pitch)
		}

		p := SphereToScreen(c.Pitch, c.Yaw, width, height)
		if math.Abs(p.X-x) > 2 || math.Abs(p.Y-y) > 2 {
			t.Fatalf("round trip (%v,%v) -> %+v -> %+v exceeds 2px", x, y, c, p)
		}
	}
}

func TestScreenToSphere_NaNPropagates(t *testing.T) {
	t.Parallel()

	c := ScreenToSphere(math.NaN(), 10, 100, 100)
	if !math.IsNaN(c.Yaw) {
		t.Errorf("expected NaN yaw for NaN input, got %v", c.Yaw)
	}
	if c.Valid() {
		t.Error("NaN coordinates must not validate")
	}
}
