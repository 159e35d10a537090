package estimator

import (
	"errors"
)

// ErrSingular is returned when inverting a matrix with a zero determinant.
var ErrSingular = errors.New("matrix is singular")

// Matrix is a small dense row-major matrix, enough for per-axis filter covariances.
type Matrix struct {
	rows, cols int
	data       []float64
}

// NewMatrix creates a zero matrix of the given size.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{
		rows: rows,
		cols: cols,
		data: make([]float64, rows*cols),
	}
}

// FromRows builds a matrix from row slices of equal length.
func FromRows(rows ...[]float64) *Matrix {
	m := NewMatrix(len(rows), len(rows[0]))
	for r, row := range rows {
		copy(m.data[r*m.cols:(r+1)*m.cols], row)
	}
	return m
}

// Identity returns a new n x n identity matrix.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1.0)
	}
	return m
}

func (m *Matrix) At(r, c int) float64 {
	return m.data[r*m.cols+c]
}

func (m *Matrix) Set(r, c int, val float64) {
	m.data[r*m.cols+c] = val
}

// Add returns m + other.
func (m *Matrix) Add(other *Matrix) *Matrix {
	res := NewMatrix(m.rows, m.cols)
	for i := range m.data {
		res.data[i] = m.data[i] + other.data[i]
	}
	return res
}

// Subtract returns m - other.
func (m *Matrix) Subtract(other *Matrix) *Matrix {
	res := NewMatrix(m.rows, m.cols)
	for i := range m.data {
		res.data[i] = m.data[i] - other.data[i]
	}
	return res
}

// Scale returns m * k.
func (m *Matrix) Scale(k float64) *Matrix {
	res := NewMatrix(m.rows, m.cols)
	for i := range m.data {
		res.data[i] = m.data[i] * k
	}
	return res
}

// Multiply returns m * other. The dimensions are fixed by the caller, a mismatch is a bug.
func (m *Matrix) Multiply(other *Matrix) *Matrix {
	if m.cols != other.rows {
		panic("estimator: matrix dimensions for multiplication are incompatible")
	}
	res := NewMatrix(m.rows, other.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < other.cols; j++ {
			sum := 0.0
			for k := 0; k < m.cols; k++ {
				sum += m.At(i, k) * other.At(k, j)
			}
			res.Set(i, j, sum)
		}
	}
	return res
}

// Transpose returns the transpose of m.
func (m *Matrix) Transpose() *Matrix {
	res := NewMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			res.Set(j, i, m.At(i, j))
		}
	}
	return res
}

// Inverse returns the inverse of a 1x1 or 2x2 matrix.
func (m *Matrix) Inverse() (*Matrix, error) {
	switch {
	case m.rows == 1 && m.cols == 1:
		if m.data[0] == 0 {
			return nil, ErrSingular
		}
		return FromRows([]float64{1 / m.data[0]}), nil

	case m.rows == 2 && m.cols == 2:
		a, b := m.At(0, 0), m.At(0, 1)
		c, d := m.At(1, 0), m.At(1, 1)

		det := a*d - b*c
		if det == 0 {
			return nil, ErrSingular
		}
		invDet := 1.0 / det
		return FromRows(
			[]float64{d * invDet, -b * invDet},
			[]float64{-c * invDet, a * invDet},
		), nil

	default:
		return nil, errors.New("inverse is only implemented for 1x1 and 2x2 matrices")
	}
}
