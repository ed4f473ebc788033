// Package leveling holds the experience curve math. It is pure: no state, no
// I/O, and both directions of the curve are kept mutually consistent.
package leveling

import "math"

// Literal thresholds for levels 0 through 5. Past level 5 the curve switches
// to a closed form: each level costs 100 XP more than the one before it,
// starting at 600 for level 6.
var baseThresholds = [...]int64{0, 100, 300, 600, 1000, 1500}

const (
	curveBaseLevel = 5
	curveBaseXP    = 1500
	curveStep      = 600
	curveRamp      = 100
)

// XPForLevel returns the cumulative XP needed to reach level. Negative levels
// clamp to level 0.
func XPForLevel(level int) int64 {
	if level <= 0 {
		return 0
	}
	if level <= curveBaseLevel {
		return baseThresholds[level]
	}
	d := int64(level - curveBaseLevel)
	return curveBaseXP + curveStep*d + curveRamp*d*(d-1)/2
}

// LevelForXP returns the highest level whose threshold does not exceed xp.
// For the region past level 5 it inverts the closed form directly instead of
// walking the per-level marginal costs, then corrects for float rounding at
// the boundaries.
func LevelForXP(xp int64) int {
	if xp < curveBaseXP {
		level := 0
		for l := 1; l <= curveBaseLevel; l++ {
			if xp < baseThresholds[l] {
				break
			}
			level = l
		}
		return level
	}

	// Threshold past the base is 50d^2 + 550d + 1500 with d = level - 5;
	// solve the quadratic for d.
	d := int((-550 + math.Sqrt(302500+200*float64(xp-curveBaseXP))) / 100)
	if d < 0 {
		d = 0
	}
	for XPForLevel(curveBaseLevel+d+1) <= xp {
		d++
	}
	for d > 0 && XPForLevel(curveBaseLevel+d) > xp {
		d--
	}
	return curveBaseLevel + d
}

// XPToNext returns how much XP is missing until the next level.
func XPToNext(xp int64) int64 {
	return XPForLevel(LevelForXP(xp)+1) - xp
}
