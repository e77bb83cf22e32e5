package cls

import (
	"errors"
	"math"
)

// Root finding defaults
const (
	DefaultRelTol   = 4 * 2.220446049250313e-16
	DefaultMaxIters = 100
)

var (
	// ErrNoSignChange means f has the same sign at both ends of the bracket
	ErrNoSignChange = errors.New("f(a) and f(b) must have different signs")
	// ErrNotConverged means the iteration budget ran out
	ErrNotConverged = errors.New("root finder did not converge")
)

// RootFunc is a scalar function whose evaluation may fail
type RootFunc func(x float64) (float64, error)

// Brent finds a root of f in [a, b] with Brent's method (inverse quadratic
// interpolation guarded by bisection). f(a) and f(b) must differ in sign.
// The result is within xtol + rtol*|x| of the root.
func Brent(f RootFunc, a, b, xtol, rtol float64, maxIters int) (float64, error) {
	xpre, xcur := a, b
	var xblk, fblk, spre, scur float64

	fpre, err := f(xpre)
	if err != nil {
		return 0, err
	}
	fcur, err := f(xcur)
	if err != nil {
		return 0, err
	}
	if fpre == 0 {
		return xpre, nil
	}
	if fcur == 0 {
		return xcur, nil
	}
	if math.Signbit(fpre) == math.Signbit(fcur) {
		return 0, ErrNoSignChange
	}

	for i := 0; i < maxIters; i++ {
		if fpre != 0 && fcur != 0 && math.Signbit(fpre) != math.Signbit(fcur) {
			xblk = xpre
			fblk = fpre
			spre = xcur - xpre
			scur = spre
		}
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
		}

		delta := (xtol + rtol*math.Abs(xcur)) / 2
		sbis := (xblk - xcur) / 2
		if fcur == 0 || math.Abs(sbis) < delta {
			return xcur, nil
		}

		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				// secant interpolation
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				// inverse quadratic extrapolation
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = -fcur * (fblk*dblk - fpre*dpre) / (dblk * dpre * (fblk - fpre))
			}
			if 2*math.Abs(stry) < math.Min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre = scur
				scur = stry
			} else {
				spre = sbis
				scur = sbis
			}
		} else {
			spre = sbis
			scur = sbis
		}

		xpre = xcur
		fpre = fcur
		if math.Abs(scur) > delta {
			xcur += scur
		} else if sbis > 0 {
			xcur += delta
		} else {
			xcur -= delta
		}

		if fcur, err = f(xcur); err != nil {
			return 0, err
		}
	}
	return xcur, ErrNotConverged
}
