// Package lsq implements a box-bounded Levenberg-Marquardt solver for small
// nonlinear least-squares problems.
//
// The solver minimises 0.5*||r(x)||^2 subject to lower <= x <= upper. Each
// iteration freezes the parameters that rest on a bound with the gradient
// pointing outward and solves the damped normal equations over the free ones.
// Trial points are projected onto the box.
package lsq

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Errors returned by Solve.
var (
	ErrInput         = errors.New("lsq: invalid problem definition")
	ErrNonFinite     = errors.New("lsq: residuals are not finite")
	ErrMaxIterations = errors.New("lsq: iteration limit reached before convergence")
	ErrStalled       = errors.New("lsq: no step reduced the cost")
)

const (
	initialDamping = 1e-3
	minDamping     = 1e-15
	maxDamping     = 1e16
)

// Func writes the residual vector r(x) into dst.
type Func func(dst, x []float64)

// JacobianFunc writes dr_i/dx_j at x into jac (M rows, len(x) columns).
type JacobianFunc func(jac *mat.Dense, x []float64)

// Problem describes a least-squares problem with M residuals.
type Problem struct {
	M         int
	Residuals Func
	// Jacobian is optional. Forward differences are used when nil.
	Jacobian JacobianFunc
	// Lower and Upper are optional. When set they must have the same length
	// as the parameter vector; use ±Inf for unbounded components.
	Lower []float64
	Upper []float64
}

// Settings controls termination.
type Settings struct {
	MaxIterations int
	FTol          float64 // relative cost reduction
	XTol          float64 // relative step size
	GTol          float64 // projected gradient infinity norm
}

// DefaultSettings returns tolerances suitable for double precision curve fits.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations: 5000,
		FTol:          1e-12,
		XTol:          1e-12,
		GTol:          1e-12,
	}
}

// Status reports which criterion terminated a successful solve.
type Status int

const (
	StatusGradient Status = iota
	StatusCost
	StatusStep
	StatusStalled
)

func (s Status) String() string {
	switch s {
	case StatusGradient:
		return "gradient"
	case StatusCost:
		return "cost"
	case StatusStep:
		return "step"
	case StatusStalled:
		return "stalled"
	default:
		return "unknown"
	}
}

// Result holds the solution of a least-squares problem.
type Result struct {
	X           []float64
	Cost        float64 // 0.5 * sum of squared residuals at X
	Iterations  int
	Evaluations int
	Status      Status
}

// Solve minimises the problem starting from x0.
//
// x0 is not modified. The returned Result is valid whenever err is nil,
// ErrMaxIterations or ErrStalled; in the latter cases it holds the best point
// reached. ErrStalled means the damping saturated before any step was
// accepted.
//
//nolint:cyclop,funlen
func Solve(p Problem, x0 []float64, s Settings) (Result, error) {
	n := len(x0)
	if n == 0 || p.Residuals == nil || p.M < n {
		return Result{}, ErrInput
	}

	if (p.Lower != nil && len(p.Lower) != n) || (p.Upper != nil && len(p.Upper) != n) {
		return Result{}, ErrInput
	}

	for i := 0; i < n; i++ {
		if lowerAt(p.Lower, i) > upperAt(p.Upper, i) {
			return Result{}, ErrInput
		}
	}

	if s.MaxIterations <= 0 {
		s.MaxIterations = DefaultSettings().MaxIterations
	}

	x := append([]float64(nil), x0...)
	project(x, p.Lower, p.Upper)

	r := make([]float64, p.M)
	rTrial := make([]float64, p.M)
	work := make([]float64, p.M)
	xTrial := make([]float64, n)

	p.Residuals(r, x)
	res := Result{Evaluations: 1}

	cost := halfSumSquares(r)
	if !isFinite(cost) {
		return Result{}, ErrNonFinite
	}

	jac := mat.NewDense(p.M, n, nil)
	rv := mat.NewVecDense(p.M, r)
	grad := mat.NewVecDense(n, nil)
	jtj := mat.NewSymDense(n, nil)
	free := make([]int, 0, n)

	var chol mat.Cholesky

	lambda := initialDamping
	improved := false

	finish := func(status Status) (Result, error) {
		res.X = x
		res.Cost = cost
		res.Status = status
		if status == StatusStalled && !improved {
			return res, ErrStalled
		}
		return res, nil
	}

	for iter := 1; iter <= s.MaxIterations; iter++ {
		res.Iterations = iter

		if p.Jacobian != nil {
			p.Jacobian(jac, x)
		} else {
			res.Evaluations += forwardJacobian(p, jac, x, r, work)
		}

		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), rv)

		// Parameters held at a bound by the gradient are frozen for this
		// iteration; the step is solved over the remaining ones.
		free = free[:0]
		for i := 0; i < n; i++ {
			if !pinned(grad.AtVec(i), x[i], p.Lower, p.Upper, i) {
				free = append(free, i)
			}
		}

		nf := len(free)
		if nf == 0 {
			return finish(StatusGradient)
		}

		gNorm := 0.0
		for _, i := range free {
			gNorm = math.Max(gNorm, math.Abs(grad.AtVec(i)))
		}
		if gNorm <= s.GTol {
			return finish(StatusGradient)
		}

		damped := mat.NewSymDense(nf, nil)
		gFree := mat.NewVecDense(nf, nil)
		step := mat.NewVecDense(nf, nil)
		for a, i := range free {
			gFree.SetVec(a, grad.AtVec(i))
		}

		accepted := false
		for !accepted {
			if lambda > maxDamping {
				return finish(StatusStalled)
			}

			for a, i := range free {
				for b := a; b < nf; b++ {
					damped.SetSym(a, b, jtj.At(i, free[b]))
				}
				d := jtj.At(i, i)
				if d <= 0 {
					d = 1
				}
				damped.SetSym(a, a, jtj.At(i, i)+lambda*d)
			}

			if ok := chol.Factorize(damped); !ok {
				lambda *= 10
				continue
			}

			if err := chol.SolveVecTo(step, gFree); err != nil {
				lambda *= 10
				continue
			}

			copy(xTrial, x)
			for a, i := range free {
				xTrial[i] = x[i] - step.AtVec(a)
			}
			project(xTrial, p.Lower, p.Upper)

			var stepNorm, xNorm float64
			for i := 0; i < n; i++ {
				d := xTrial[i] - x[i]
				stepNorm += d * d
				xNorm += x[i] * x[i]
			}
			stepNorm = math.Sqrt(stepNorm)
			xNorm = math.Sqrt(xNorm)

			if stepNorm <= s.XTol*(xNorm+s.XTol) {
				return finish(StatusStep)
			}

			p.Residuals(rTrial, xTrial)
			res.Evaluations++

			trialCost := halfSumSquares(rTrial)
			if !isFinite(trialCost) || trialCost >= cost {
				lambda *= 10
				continue
			}

			reduction := cost - trialCost
			copy(x, xTrial)
			copy(r, rTrial)
			cost = trialCost
			lambda = math.Max(lambda/10, minDamping)
			accepted = true
			improved = true

			if reduction <= s.FTol*cost {
				return finish(StatusCost)
			}
		}
	}

	res.X = x
	res.Cost = cost
	res.Status = StatusStalled
	return res, ErrMaxIterations
}

// forwardJacobian approximates the Jacobian by forward differences, stepping
// backwards where a forward step would leave the feasible box.
func forwardJacobian(p Problem, jac *mat.Dense, x, r, work []float64) int {
	h0 := math.Sqrt(2.220446049250313e-16)
	for j := range x {
		xj := x[j]
		h := h0 * math.Max(1, math.Abs(xj))
		if xj+h > upperAt(p.Upper, j) {
			h = -h
		}

		x[j] = xj + h
		p.Residuals(work, x)
		x[j] = xj

		for i := range work {
			jac.Set(i, j, (work[i]-r[i])/h)
		}
	}
	return len(x)
}

// pinned reports whether x[i] sits on a bound that the descent direction
// -g points out of.
func pinned(g, xi float64, lower, upper []float64, i int) bool {
	return (g > 0 && xi <= lowerAt(lower, i)) || (g < 0 && xi >= upperAt(upper, i))
}

func project(x, lower, upper []float64) {
	for i := range x {
		if lo := lowerAt(lower, i); x[i] < lo {
			x[i] = lo
		}
		if hi := upperAt(upper, i); x[i] > hi {
			x[i] = hi
		}
	}
}

func lowerAt(lower []float64, i int) float64 {
	if lower == nil {
		return math.Inf(-1)
	}
	return lower[i]
}

func upperAt(upper []float64, i int) float64 {
	if upper == nil {
		return math.Inf(1)
	}
	return upper[i]
}

func halfSumSquares(r []float64) float64 {
	sum := 0.0
	for _, v := range r {
		sum += v * v
	}
	return 0.5 * sum
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
