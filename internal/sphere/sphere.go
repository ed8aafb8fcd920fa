// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

// Package sphere converts between screen pixel coordinates, percentage-of-container
// coordinates and spherical (pitch/yaw) panorama coordinates.
//
// All functions are pure. Out-of-range inputs are clamped or wrapped rather than
// rejected, because drag handlers routinely produce transient positions outside the
// container while the pointer moves quickly. Callers that need strict validation use
// IsValidSphereCoords at the point where a coordinate becomes durable.
//
// The screen mapping is linear in yaw and arcsine in pitch. It approximates an
// equirectangular frame and is only a fallback: the panorama renderer's own projection
// (see package viewport) is authoritative for on-screen placement.
package sphere

import "math"

// Declared coordinate ranges in degrees.
const (
	MinPitch = -90.0
	MaxPitch = 90.0
	MinYaw   = -180.0
	MaxYaw   = 180.0
)

// Coords is a position on the panorama sphere in degrees.
type Coords struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Point is a position in screen or percentage space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScreenToSphere maps a pixel position inside a width x height container to sphere
// coordinates. A degenerate container maps every point to the origin.
func ScreenToSphere(x, y, width, height float64) Coords {
	if width <= 0 || height <= 0 {
		return Coords{}
	}

	nx := (x/width)*2 - 1
	ny := (y/height)*2 - 1

	yaw := nx * 180
	pitch := math.Asin(clampUnit(-ny)) * 180 / math.Pi

	return Coords{
		Pitch: clampPitch(pitch),
		Yaw:   wrapYaw(yaw),
	}
}

// SphereToScreen is the approximate inverse of ScreenToSphere. The asin/sin round trip
// loses precision near the poles, so results within a few degrees of ±90 pitch drift.
func SphereToScreen(pitch, yaw, width, height float64) Point {
	nx := wrapYaw(yaw) / 180
	ny := -math.Sin(clampPitch(pitch) * math.Pi / 180)

	return Point{
		X: (nx + 1) / 2 * width,
		Y: (ny + 1) / 2 * height,
	}
}

// PercentToSphere maps a position expressed as a percentage of the container
// (0-100 on both axes) to sphere coordinates.
func PercentToSphere(xPercent, yPercent float64) Coords {
	return ScreenToSphere(xPercent, yPercent, 100, 100)
}

// SphereToPercent maps sphere coordinates to a percentage-of-container position.
func SphereToPercent(pitch, yaw float64) Point {
	return SphereToScreen(pitch, yaw, 100, 100)
}

// IsValidSphereCoords reports whether pitch is in [-90,90] and yaw in [-180,180].
// NaN never validates.
func IsValidSphereCoords(pitch, yaw float64) bool {
	return pitch >= MinPitch && pitch <= MaxPitch && yaw >= MinYaw && yaw <= MaxYaw
}

// NormalizeSphereCoords clamps pitch into [-90,90] and wraps yaw into [-180,180).
// Non-finite components collapse to zero so the result is always in range.
func NormalizeSphereCoords(pitch, yaw float64) Coords {
	if math.IsNaN(pitch) {
		pitch = 0
	}
	if math.IsNaN(yaw) || math.IsInf(yaw, 0) {
		yaw = 0
	}

	return Coords{
		Pitch: clampPitch(pitch),
		Yaw:   wrapYaw(yaw),
	}
}

// Normalize is NormalizeSphereCoords on a Coords value.
func (c Coords) Normalize() Coords {
	return NormalizeSphereCoords(c.Pitch, c.Yaw)
}

// Valid is IsValidSphereCoords on a Coords value.
func (c Coords) Valid() bool {
	return IsValidSphereCoords(c.Pitch, c.Yaw)
}

// clampPitch limits pitch to the declared range. NaN passes through unchanged.
func clampPitch(pitch float64) float64 {
	switch {
	case pitch < MinPitch:
		return MinPitch
	case pitch > MaxPitch:
		return MaxPitch
	default:
		return pitch
	}
}

// wrapYaw folds yaw into [-180,180) with a double modulo so negative inputs wrap
// correctly. Values already in range are returned untouched, which keeps repeated
// normalization exact. NaN passes through unchanged.
func wrapYaw(yaw float64) float64 {
	if yaw >= MinYaw && yaw < MaxYaw {
		return yaw
	}
	if math.IsNaN(yaw) || math.IsInf(yaw, 0) {
		return math.NaN()
	}
	return math.Mod(math.Mod(yaw+180, 360)+360, 360) - 180
}

func clampUnit(v float64) float64 {
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	default:
		return v
	}
}
