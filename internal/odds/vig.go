package odds

import (
	"fmt"
	"math"
)

// Method selects a vig-removal policy
type Method string

const (
	MethodProportional Method = "proportional"
	MethodAdditive     Method = "additive"
	MethodPower        Method = "power"
	MethodShin         Method = "shin"
)

// DefaultPowerExponent is the exponent used by the power method
const DefaultPowerExponent = 1.5

const (
	additiveFloor = 0.01
	additiveCeil  = 0.99

	// share of the overround removed from the favourite in the asymmetric method
	favouriteMarginShare = 0.45
)

// ParseMethod maps a configuration string to a Method
func ParseMethod(name string) (Method, error) {
	switch Method(name) {
	case MethodProportional, MethodAdditive, MethodPower, MethodShin:
		return Method(name), nil
	case "":
		return MethodProportional, nil
	default:
		return "", fmt.Errorf("unknown vig removal method: %s", name)
	}
}

// RemoveVig de-margins a pair of implied probabilities with the given method
func RemoveVig(method Method, pa, pb float64) (float64, float64) {
	switch method {
	case MethodAdditive:
		return Additive(pa, pb)
	case MethodPower:
		return Power(pa, pb, DefaultPowerExponent)
	case MethodShin:
		return Shin(pa, pb)
	default:
		return Proportional(pa, pb)
	}
}

// FairPair converts a two-sided American quote to fair probabilities
func FairPair(method Method, americanA, americanB float64) (float64, float64, error) {
	if err := Validate(americanA); err != nil {
		return 0, 0, err
	}
	if err := Validate(americanB); err != nil {
		return 0, 0, err
	}
	a, b := RemoveVig(method, ToProbability(americanA), ToProbability(americanB))
	return a, b, nil
}

// Proportional scales both probabilities by 1/(pa+pb)
func Proportional(pa, pb float64) (float64, float64) {
	total := pa + pb
	if total <= 0 {
		return 0.5, 0.5
	}
	return pa / total, pb / total
}

// Additive subtracts half the overround from each side, clamps, then renormalizes
func Additive(pa, pb float64) (float64, float64) {
	half := (pa + pb - 1) / 2
	a := clamp(pa-half, additiveFloor, additiveCeil)
	b := clamp(pb-half, additiveFloor, additiveCeil)
	return Proportional(a, b)
}

// Power raises both probabilities to k before normalizing, taking more margin from longshots
func Power(pa, pb, k float64) (float64, float64) {
	if k <= 0 {
		k = DefaultPowerExponent
	}
	return Proportional(math.Pow(math.Max(pa, 0), k), math.Pow(math.Max(pb, 0), k))
}

// Shin splits the overround unevenly: the favourite gives up 45%, the underdog 55%
func Shin(pa, pb float64) (float64, float64) {
	if pa == pb {
		return Proportional(pa, pb)
	}
	vig := pa + pb - 1
	var a, b float64
	if pa > pb {
		a = pa - vig*favouriteMarginShare
		b = pb - vig*(1-favouriteMarginShare)
	} else {
		a = pa - vig*(1-favouriteMarginShare)
		b = pb - vig*favouriteMarginShare
	}
	return Proportional(math.Max(a, 0), math.Max(b, 0))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
