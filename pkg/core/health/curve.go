package health

import (
	"fmt"
	"sort"
)

// CurvePoint is one breakpoint of a scoring curve.
type CurvePoint struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Curve maps an input statistic to a 0-100 score by linear interpolation
// between breakpoints. Inputs outside the breakpoints clamp to the end
// points.
type Curve []CurvePoint

// Eval returns the score for x.
func (c Curve) Eval(x float64) float64 {
	if len(c) == 0 {
		return 0
	}
	if x <= c[0].X {
		return c[0].Y
	}
	last := c[len(c)-1]
	if x >= last.X {
		return last.Y
	}

	// first breakpoint strictly greater than x
	i := sort.Search(len(c), func(i int) bool { return c[i].X > x })
	lo, hi := c[i-1], c[i]
	return lo.Y + (x-lo.X)*(hi.Y-lo.Y)/(hi.X-lo.X)
}

func (c Curve) validate() error {
	if len(c) < 2 {
		return fmt.Errorf("curve needs at least 2 points, has %d", len(c))
	}
	for i, p := range c {
		if p.Y < 0 || p.Y > 100 {
			return fmt.Errorf("point %d: score %.4g outside [0,100]", i, p.Y)
		}
		if i == 0 {
			continue
		}
		prev := c[i-1]
		if p.X <= prev.X {
			return fmt.Errorf("point %d: x %.4g not greater than %.4g", i, p.X, prev.X)
		}
		if p.Y < prev.Y {
			return fmt.Errorf("point %d: score %.4g decreases from %.4g", i, p.Y, prev.Y)
		}
	}
	return nil
}

func (c Curve) clone() Curve {
	out := make(Curve, len(c))
	copy(out, c)
	return out
}
