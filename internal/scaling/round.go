package scaling

import (
	"math"
	"strconv"
	"strings"
)

// Round rounds value half-up to the given number of decimal places. Values
// below 1 asked for one place get two, so sub-unit rates keep some precision.
//
// The decimal shift is done on the shortest decimal representation of value
// rather than by multiplying, so 1.005 rounds to 1.01 and not 1.00.
func Round(value float64, places int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	if value < 1 && places == 1 {
		places = 2
	}
	shifted := shiftDecimal(value, places)
	return shiftDecimal(math.Floor(shifted+0.5), -places)
}

// RoundUnits rounds half-up to a whole capacity unit.
func RoundUnits(value float64) int64 {
	return int64(math.Floor(value + 0.5))
}

// shiftDecimal returns value * 10^places computed on the decimal exponent.
func shiftDecimal(value float64, places int) float64 {
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(value, 'e', -1, 64), "e")
	e, err := strconv.Atoi(exp)
	if err != nil {
		return value * math.Pow10(places)
	}
	shifted, err := strconv.ParseFloat(mantissa+"e"+strconv.Itoa(e+places), 64)
	if err != nil {
		return value * math.Pow10(places)
	}
	return shifted
}
