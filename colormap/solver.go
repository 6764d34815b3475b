package colormap

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/colormap/utils"
)

// normalEquations accumulates the Gauss-Newton system JᵀJ δ = -Jᵀr one residual at a time.
type normalEquations struct {
	n   int
	jtj []float64
	jtr []float64

	sumSquares float64
	count      int
}

func newNormalEquations(n int) *normalEquations {
	return &normalEquations{n: n, jtj: make([]float64, n*n), jtr: make([]float64, n)}
}

// addSparse adds a residual whose Jacobian row is zero except at the given columns.
func (ne *normalEquations) addSparse(cols []int, jac []float64, r float64) {
	for a, ca := range cols {
		ja := jac[a]
		ne.jtr[ca] += ja * r
		row := ca * ne.n
		for b, cb := range cols {
			ne.jtj[row+cb] += ja * jac[b]
		}
	}
	ne.sumSquares += utils.Square(r)
	ne.count++
}

// addDiagonal adds w to JᵀJ[i][i] and w*r to Jᵀr[i], the contribution of a residual sqrt(w)*r
// on a single unknown.
func (ne *normalEquations) addDiagonal(i int, w, r float64) {
	ne.jtj[i*ne.n+i] += w
	ne.jtr[i] += w * r
}

// solve returns the Gauss-Newton step. It fails with ErrSingularSystem when JᵀJ is not positive
// definite or its condition number exceeds maxCond.
func (ne *normalEquations) solve(maxCond float64) ([]float64, error) {
	if ne.count == 0 {
		return nil, errors.Wrap(ErrSingularSystem, "no residuals")
	}
	sym := mat.NewSymDense(ne.n, append([]float64(nil), ne.jtj...))
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, errors.Wrap(ErrSingularSystem, "matrix is not positive definite")
	}
	if cond := chol.Cond(); math.IsNaN(cond) || cond > maxCond {
		return nil, errors.Wrapf(ErrSingularSystem, "condition number %g exceeds %g", cond, maxCond)
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(ne.n, append([]float64(nil), ne.jtr...))); err != nil {
		return nil, errors.Wrap(ErrSingularSystem, err.Error())
	}
	delta := make([]float64, ne.n)
	for i := range delta {
		delta[i] = x.AtVec(i)
	}
	floats.Scale(-1, delta)
	if floats.HasNaN(delta) {
		return nil, errors.Wrap(ErrSingularSystem, "step is not finite")
	}
	return delta, nil
}
