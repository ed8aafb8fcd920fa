// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package viewport

import (
	"math"

	"github.com/tomtom215/vtour/internal/sphere"
)

// Camera is the renderer's current view direction and horizontal field of view, in degrees.
type Camera struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	HFOV  float64 `json:"hfov"`
}

// Field of view limits accepted from the renderer.
const (
	MinHFOV     = 10.0
	MaxHFOV     = 140.0
	DefaultHFOV = 100.0
)

const degToRad = math.Pi / 180

// focalLength returns the pinhole focal length in pixels for a container width and hfov.
func focalLength(width, hfov float64) float64 {
	if hfov < MinHFOV || hfov > MaxHFOV || math.IsNaN(hfov) {
		hfov = DefaultHFOV
	}
	return (width / 2) / math.Tan(hfov*degToRad/2)
}

// Project maps a sphere position to container pixels using the same rectilinear
// projection the panorama renderer draws with. ok is false for points behind the
// camera or when the container has no area.
func Project(cam Camera, width, height float64, c sphere.Coords) (sphere.Point, bool) {
	if width <= 0 || height <= 0 {
		return sphere.Point{}, false
	}

	phi, lambda := c.Pitch*degToRad, c.Yaw*degToRad
	phi0, lambda0 := cam.Pitch*degToRad, cam.Yaw*degToRad

	x := math.Cos(phi) * math.Sin(lambda)
	y := math.Sin(phi)
	z := math.Cos(phi) * math.Cos(lambda)

	// yaw, then pitch
	x1 := x*math.Cos(lambda0) - z*math.Sin(lambda0)
	z1 := x*math.Sin(lambda0) + z*math.Cos(lambda0)
	y2 := y*math.Cos(phi0) - z1*math.Sin(phi0)
	z2 := y*math.Sin(phi0) + z1*math.Cos(phi0)

	if z2 <= 1e-9 || math.IsNaN(z2) {
		return sphere.Point{}, false
	}

	f := focalLength(width, cam.HFOV)
	return sphere.Point{
		X: width/2 + f*x1/z2,
		Y: height/2 - f*y2/z2,
	}, true
}

// Unproject is the inverse of Project: it maps a container pixel back to the sphere.
func Unproject(cam Camera, width, height float64, p sphere.Point) (sphere.Coords, bool) {
	if width <= 0 || height <= 0 || math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return sphere.Coords{}, false
	}

	f := focalLength(width, cam.HFOV)
	x1 := (p.X - width/2) / f
	y2 := (height/2 - p.Y) / f
	z2 := 1.0

	phi0, lambda0 := cam.Pitch*degToRad, cam.Yaw*degToRad

	y := y2*math.Cos(phi0) + z2*math.Sin(phi0)
	z1 := -y2*math.Sin(phi0) + z2*math.Cos(phi0)
	x := x1*math.Cos(lambda0) + z1*math.Sin(lambda0)
	z := -x1*math.Sin(lambda0) + z1*math.Cos(lambda0)

	r := math.Sqrt(x*x + y*y + z*z)
	return sphere.NormalizeSphereCoords(
		math.Asin(y/r)/degToRad,
		math.Atan2(x, z)/degToRad,
	), true
}
