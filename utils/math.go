package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// ModAngDeg wraps the given angle into [0, 360).
func ModAngDeg(ang float64) float64 {
	return math.Mod(math.Mod((ang), 360)+360, 360)
}

// WrapLonDeg wraps a longitude into (-180, 180].
func WrapLonDeg(lon float64) float64 {
	lon = ModAngDeg(lon)
	if lon > 180 {
		lon -= 360
	}
	return lon
}
