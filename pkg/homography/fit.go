package homography

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

// rankTol is the relative singular value below which the DLT system is
// considered rank deficient.
const rankTol = 1e-9

// Fit estimates the transform mapping src[i] to dst[i] from at least four
// correspondences. It uses the normalized direct linear transform solved by
// SVD, which gives the exact solution for four points and the algebraic
// least-squares solution for more. The result is scaled so that m[8] == 1.
func Fit(src, dst []geom.Point) (Matrix, error) {
	if len(src) != len(dst) {
		return Matrix{}, fmt.Errorf("homography: %d source points but %d destination points", len(src), len(dst))
	}
	n := len(src)
	if n < 4 {
		return Matrix{}, fmt.Errorf("%w: got %d", ErrTooFewPoints, n)
	}
	for i := range src {
		if !src[i].Finite() || !dst[i].Finite() {
			return Matrix{}, fmt.Errorf("%w: input pair %d", ErrNonFinite, i)
		}
	}

	ts, ns, err := normalize(src)
	if err != nil {
		return Matrix{}, fmt.Errorf("source: %w", err)
	}
	td, nd, err := normalize(dst)
	if err != nil {
		return Matrix{}, fmt.Errorf("destination: %w", err)
	}

	a := mat.NewDense(2*n, 9, nil)
	for i := range n {
		x, y := ns[i].X, ns[i].Y
		u, v := nd[i].X, nd[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return Matrix{}, fmt.Errorf("%w: SVD did not converge", ErrDegenerate)
	}
	sv := svd.Values(nil)
	// Eight independent constraints are required for the eight degrees of freedom.
	if len(sv) < 8 || sv[0] == 0 || sv[7] <= rankTol*sv[0] {
		return Matrix{}, ErrDegenerate
	}

	var v mat.Dense
	svd.VTo(&v)
	hn := mat.NewDense(3, 3, nil)
	for i := range 9 {
		hn.Set(i/3, i%3, v.At(i, 8))
	}

	// Denormalize: H = Td^-1 * Hn * Ts.
	var tmp, h mat.Dense
	tmp.Mul(inverseSimilarity(td), hn)
	h.Mul(&tmp, ts)

	scale := h.At(2, 2)
	if math.Abs(scale) < 1e-12 {
		return Matrix{}, fmt.Errorf("%w: h22 vanishes", ErrDegenerate)
	}
	var m Matrix
	for i := range 9 {
		m[i] = h.At(i/3, i%3) / scale
	}
	if !m.Finite() {
		return Matrix{}, ErrNonFinite
	}
	return m, nil
}

// ReprojectionRMS is the root mean square distance between m(src[i]) and dst[i].
func ReprojectionRMS(m Matrix, src, dst []geom.Point) (float64, error) {
	if len(src) != len(dst) || len(src) == 0 {
		return 0, fmt.Errorf("homography: mismatched point sets")
	}
	var sum float64
	for i := range src {
		p, err := m.Apply(src[i])
		if err != nil {
			return 0, err
		}
		d := geom.Dist(p, dst[i])
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(src))), nil
}

// normalize translates points to their centroid and scales them to a mean
// distance of sqrt(2), returning the similarity used and the moved points.
// It fails when the points are coincident or collinear.
func normalize(points []geom.Point) (*mat.Dense, []geom.Point, error) {
	c, _ := geom.Mean(points)

	var meanDist float64
	for _, p := range points {
		meanDist += geom.Dist(p, c)
	}
	meanDist /= float64(len(points))
	if meanDist < 1e-12 {
		return nil, nil, fmt.Errorf("%w: coincident points", ErrDegenerate)
	}
	s := math.Sqrt2 / meanDist

	out := make([]geom.Point, len(points))
	var sxx, sxy, syy float64
	for i, p := range points {
		q := geom.Point{X: (p.X - c.X) * s, Y: (p.Y - c.Y) * s}
		out[i] = q
		sxx += q.X * q.X
		sxy += q.X * q.Y
		syy += q.Y * q.Y
	}

	// Smallest eigenvalue of the scatter matrix is zero for collinear points.
	k := float64(len(points))
	sxx, sxy, syy = sxx/k, sxy/k, syy/k
	half := (sxx - syy) / 2
	minEig := (sxx+syy)/2 - math.Sqrt(half*half+sxy*sxy)
	if minEig < 1e-9 {
		return nil, nil, fmt.Errorf("%w: collinear points", ErrDegenerate)
	}

	t := mat.NewDense(3, 3, []float64{
		s, 0, -s * c.X,
		0, s, -s * c.Y,
		0, 0, 1,
	})
	return t, out, nil
}

// inverseSimilarity inverts a matrix produced by normalize.
func inverseSimilarity(t *mat.Dense) *mat.Dense {
	s := t.At(0, 0)
	cx := -t.At(0, 2) / s
	cy := -t.At(1, 2) / s
	return mat.NewDense(3, 3, []float64{
		1 / s, 0, cx,
		0, 1 / s, cy,
		0, 0, 1,
	})
}
