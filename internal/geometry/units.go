package geometry

import (
	"fmt"
	"math"
)

const (
	// DefaultGridSize is one grid step in document units.
	DefaultGridSize = 12.0
	// MinShapeSize is the smallest width/height a resize may produce.
	MinShapeSize = 10.0
	// MinDrawSize is the size a drawn box must exceed on both axes.
	MinDrawSize = 5.0
)

func ToInches(feet float64) float64 { return feet * 12 }
func ToFeet(inches float64) float64 { return inches / 12 }

// FormatMeasurement renders inches as F' I", dropping the feet part when it
// is zero and the inch part when the remainder is zero.
func FormatMeasurement(inches float64) string {
	total := int(math.Round(inches))
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	feet, rem := total/12, total%12
	switch {
	case feet == 0:
		return fmt.Sprintf("%s%d\"", sign, rem)
	case rem == 0:
		return fmt.Sprintf("%s%d'", sign, feet)
	default:
		return fmt.Sprintf("%s%d' %d\"", sign, feet, rem)
	}
}
