package app

import "math"

// ViewPreset is a fixed camera direction
type ViewPreset int

const (
	ViewFront ViewPreset = iota
	ViewBack
	ViewLeft
	ViewRight
	ViewTop
	ViewBottom
)

// Angles returns the orbit elevation and azimuth of the preset in radians
func (v ViewPreset) Angles() (elevation, azimuth float64) {
	switch v {
	case ViewTop:
		return math.Pi / 2, 0 // looking straight down
	case ViewBottom:
		return -math.Pi / 2, 0 // looking straight up
	case ViewBack:
		return 0, math.Pi
	case ViewLeft:
		return 0, -math.Pi / 2
	case ViewRight:
		return 0, math.Pi / 2
	default:
		return 0, 0
	}
}

func (v ViewPreset) String() string {
	return [...]string{"front", "back", "left", "right", "top", "bottom"}[v]
}

// setView moves the session camera to a preset
func (a *App) setView(v ViewPreset) {
	elevation, azimuth := v.Angles()
	a.session.SetView(elevation, azimuth)
}
