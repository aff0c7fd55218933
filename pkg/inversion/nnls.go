package inversion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NNLS solves the non-negative least-squares problem
//
//	minimize ||a*x - b||  subject to  x >= 0
//
// using the Lawson-Hanson active-set method. The matrix a is never
// mutated, so one cached operator can serve many right-hand sides.
// The iteration cap is 3 times the number of unknowns; exceeding it
// returns a SingularSystemError.
func NNLS(a mat.Matrix, b []float64) ([]float64, error) {
	m, n := a.Dims()
	if len(b) != m {
		return nil, fmt.Errorf("inversion: right-hand side length %d, want %d", len(b), m)
	}

	maxIter := 3 * n
	x := make([]float64, n)
	passive := make([]bool, n)

	bVec := mat.NewVecDense(m, b)
	xVec := mat.NewVecDense(n, x)
	pred := mat.NewVecDense(m, nil)
	resid := mat.NewVecDense(m, nil)
	grad := mat.NewVecDense(n, nil)
	colBuf := make([]float64, m)

	gradient := func() {
		pred.MulVec(a, xVec)
		resid.SubVec(bVec, pred)
		grad.MulVec(a.T(), resid)
	}

	// Tolerance on the dual feasibility test, scaled to the gradient
	// magnitude at the all-zero starting point
	gradient()
	scale := 0.0
	for i := 0; i < n; i++ {
		if v := math.Abs(grad.AtVec(i)); v > scale {
			scale = v
		}
	}
	tol := 10 * math.Max(float64(m), float64(n)) * machEps * scale

	iter := 0
	for {
		// Select the active coordinate with the steepest descent
		// direction; ties stay at the lowest index
		j := -1
		best := tol
		for i := 0; i < n; i++ {
			if passive[i] {
				continue
			}
			if g := grad.AtVec(i); g > best {
				best = g
				j = i
			}
		}
		if j < 0 {
			// Dual feasible: current x is optimal
			return x, nil
		}
		passive[j] = true

		for {
			iter++
			if iter > maxIter {
				return nil, &SingularSystemError{Iterations: maxIter}
			}

			cols := passiveIndices(passive)
			if len(cols) > m {
				// More passive unknowns than equations cannot be
				// factorized; the system is degenerate
				return nil, &SingularSystemError{Iterations: iter}
			}
			s, err := solvePassive(a, cols, bVec, colBuf)
			if err != nil {
				return nil, &SingularSystemError{Iterations: iter}
			}

			feasible := true
			for k := range cols {
				if s.AtVec(k) <= 0 {
					feasible = false
					break
				}
			}
			if feasible {
				for i := range x {
					x[i] = 0
				}
				for k, c := range cols {
					x[c] = s.AtVec(k)
				}
				break
			}

			// Step from x toward s just far enough to zero the first
			// coordinate that would turn negative, then return that
			// coordinate to the active set
			alpha := math.Inf(1)
			drop := -1
			for k, c := range cols {
				sv := s.AtVec(k)
				if sv > 0 {
					continue
				}
				if r := x[c] / (x[c] - sv); r < alpha {
					alpha = r
					drop = k
				}
			}
			if drop < 0 {
				// Every offending coordinate sits exactly at zero:
				// accept the clipped solution and demote them
				for i := range x {
					x[i] = 0
				}
				for k, c := range cols {
					if v := s.AtVec(k); v > 0 {
						x[c] = v
					} else {
						passive[c] = false
					}
				}
				break
			}
			for k, c := range cols {
				x[c] += alpha * (s.AtVec(k) - x[c])
			}
			x[cols[drop]] = 0
			passive[cols[drop]] = false
			for k, c := range cols {
				if k != drop && x[c] <= 0 {
					x[c] = 0
					passive[c] = false
				}
			}
		}

		gradient()
	}
}

const machEps = 2.220446049250313e-16

func passiveIndices(passive []bool) []int {
	var cols []int
	for i, p := range passive {
		if p {
			cols = append(cols, i)
		}
	}
	return cols
}

// solvePassive solves the unconstrained least-squares subproblem
// restricted to the passive columns of a via QR decomposition. A
// mat.Condition error reports ill-conditioning but still carries a
// usable solution.
func solvePassive(a mat.Matrix, cols []int, b *mat.VecDense, colBuf []float64) (*mat.VecDense, error) {
	m, _ := a.Dims()
	sub := mat.NewDense(m, len(cols), nil)
	for k, c := range cols {
		mat.Col(colBuf, c, a)
		sub.SetCol(k, colBuf)
	}

	var qr mat.QR
	qr.Factorize(sub)
	s := mat.NewVecDense(len(cols), nil)
	if err := qr.SolveVecTo(s, false, b); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, err
		}
	}
	return s, nil
}
