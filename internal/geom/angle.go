package geom

import "math"

const fullCircle = 2 * math.Pi

// NormalizeAngle maps an angle in radians into (-Pi, Pi].
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, fullCircle)
	if angle <= -math.Pi {
		angle += fullCircle
	} else if angle > math.Pi {
		angle -= fullCircle
	}
	return angle
}

// ToHeading converts a physics rotation (radians, counter-clockwise from +X)
// into a compass heading in degrees: 0 is +Y, increasing clockwise, [0, 360).
func ToHeading(rotation float64) float64 {
	heading := math.Mod(90-rotation*180/math.Pi, 360)
	if heading < 0 {
		heading += 360
	}
	return heading
}

// FromHeading is the inverse of ToHeading.
func FromHeading(heading float64) float64 {
	return NormalizeAngle((90 - heading) * math.Pi / 180)
}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RelativeBearing is the signed angle in degrees from the facing direction
// towards target; positive values are to the left (counter-clockwise).
func RelativeBearing(origin Vector2, rotation float64, target Vector2) float64 {
	return Degrees(NormalizeAngle(target.Sub(origin).Angle() - rotation))
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampInt limits value to the range [min, max].
func ClampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// RoundTo rounds value to the nearest multiple of step.
func RoundTo(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Round(value/step) * step
}
