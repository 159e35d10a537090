package control

import (
	"golang.org/x/exp/constraints"
)

// Constrain bounds value to [min, max].
func Constrain[T constraints.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// MapRange maps a value from one range to another.
func MapRange[T constraints.Integer | constraints.Float](value, fromMin, fromMax, toMin, toMax T) T {
	return (value-fromMin)*(toMax-toMin)/(fromMax-fromMin) + toMin
}
