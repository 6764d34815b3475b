package colormap

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

func TestNormalEquationsSolve(t *testing.T) {
	// residuals r = a·x - b at x = 0 give the least squares step x* = argmin |a·x - b|^2
	ne := newNormalEquations(2)
	rows := [][3]float64{{1, 0, 1}, {0, 1, 2}, {1, 1, 3}, {1, -1, -1}}
	for _, row := range rows {
		ne.addSparse([]int{0, 1}, []float64{row[0], row[1]}, -row[2])
	}
	test.That(t, ne.count, test.ShouldEqual, 4)
	test.That(t, ne.sumSquares, test.ShouldAlmostEqual, 1+4+9+1)
	delta, err := ne.solve(1e12)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, delta[0], test.ShouldAlmostEqual, 1)
	test.That(t, delta[1], test.ShouldAlmostEqual, 2)
}

func TestNormalEquationsSparseColumns(t *testing.T) {
	ne := newNormalEquations(4)
	ne.addSparse([]int{3, 1}, []float64{2, 1}, 1)
	test.That(t, ne.jtj[3*4+3], test.ShouldEqual, 4.)
	test.That(t, ne.jtj[3*4+1], test.ShouldEqual, 2.)
	test.That(t, ne.jtj[1*4+3], test.ShouldEqual, 2.)
	test.That(t, ne.jtj[1*4+1], test.ShouldEqual, 1.)
	test.That(t, ne.jtr[3], test.ShouldEqual, 2.)
	test.That(t, ne.jtr[0], test.ShouldEqual, 0.)

	ne.addDiagonal(0, 0.5, 2)
	test.That(t, ne.jtj[0], test.ShouldEqual, 0.5)
	test.That(t, ne.jtr[0], test.ShouldEqual, 1.)
}

func TestNormalEquationsSingular(t *testing.T) {
	_, err := newNormalEquations(3).solve(1e12)
	test.That(t, errors.Is(err, ErrSingularSystem), test.ShouldBeTrue)

	// the second unknown is never observed
	ne := newNormalEquations(2)
	ne.addSparse([]int{0}, []float64{1}, 1)
	_, err = ne.solve(1e12)
	test.That(t, errors.Is(err, ErrSingularSystem), test.ShouldBeTrue)

	// observed, but far too weakly for the condition limit
	ne.addDiagonal(1, 1e-8, 0)
	_, err = ne.solve(1e6)
	test.That(t, errors.Is(err, ErrSingularSystem), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "condition number")
	delta, err := ne.solve(1e12)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, delta[0], test.ShouldAlmostEqual, -1)
	test.That(t, delta[1], test.ShouldAlmostEqual, 0)
}
