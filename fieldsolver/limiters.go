package fieldsolver

import (
	"fmt"
	"math"
	"strings"
)

// LimiterKind selects the slope limiter used for reconstruction
type LimiterKind int

const (
	MC LimiterKind = iota
	VanLeer
)

func (lk LimiterKind) String() string {
	switch lk {
	case MC:
		return "mc"
	case VanLeer:
		return "vanleer"
	}
	return fmt.Sprintf("LimiterKind(%d)", int(lk))
}

func ParseLimiter(s string) (LimiterKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mc":
		return MC, nil
	case "vanleer", "van_leer", "van-leer":
		return VanLeer, nil
	}
	return 0, fmt.Errorf("unknown limiter %q", s)
}

// Limiter returns the undivided limited slope at cent
type Limiter func(left, cent, right float64) float64

func (lk LimiterKind) Func() Limiter {
	if lk == VanLeer {
		return VanLeerLimiter
	}
	return MCLimiter
}

// MCLimiter is the monotonized central limiter
func MCLimiter(left, cent, right float64) float64 {
	forw := right - cent
	back := cent - left
	if forw*back <= 0 {
		return 0
	}
	cntr := half * (right - left)
	slope := math.Min(math.Min(2*math.Abs(forw), 2*math.Abs(back)), math.Abs(cntr))
	if forw < 0 {
		return -slope
	}
	return slope
}

func VanLeerLimiter(left, cent, right float64) float64 {
	num := (right - cent) * (cent - left)
	if num <= 0 {
		return 0
	}
	return 2 * num / (right - left)
}
