package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// ClampF64 returns num limited to [low, high].
func ClampF64(num, low, high float64) float64 {
	if num <= low {
		return low
	}
	if num >= high {
		return high
	}
	return num
}

// ClampInt returns num limited to [low, high].
func ClampInt(num, low, high int) int {
	if num <= low {
		return low
	}
	if num >= high {
		return high
	}
	return num
}

// Float64AlmostEqual reports whether a and b are within epsilon of each other.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// Square returns n * n. Math.pow( x, 2 ) is slow, this is faster.
func Square(n float64) float64 {
	return n * n
}
