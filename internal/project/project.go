// Package project holds the pure coordinate math used to place tracks on a
// display surface.
//
// Conventions match the wire protocol: world coordinates are reported in a
// fixed logical space independent of view size; headings are degrees with
// 0° = up/north, 90° = right/east, increasing clockwise; screen Y grows
// downward.
package project

import "math"

// WrapHeading normalizes a heading in degrees to [0, 360).
func WrapHeading(deg float64) float64 {
	w := math.Mod(deg, 360.0)
	if w < 0 {
		w += 360.0
	}
	return w
}

// WorldToDisplay maps a world-space position onto a view of the given size.
// Each axis is scaled independently into [0, view-1]; no aspect-ratio
// correction is applied.
func WorldToDisplay(x, y, worldW, worldH, viewW, viewH float64) (rx, ry float64) {
	rx = (x / worldW) * (viewW - 1)
	ry = (y / worldH) * (viewH - 1)
	return rx, ry
}

// HeadingVector returns the display-space direction vector of the given
// length for a heading in degrees. With Y growing downward on screen, north
// points up, so the Y component carries a minus sign.
func HeadingVector(headingDeg, length float64) (vx, vy float64) {
	theta := headingDeg * math.Pi / 180.0
	vx = math.Sin(theta) * length
	vy = -math.Cos(theta) * length
	return vx, vy
}
