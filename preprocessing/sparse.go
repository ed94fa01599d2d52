package preprocessing

import (
	"sort"
	"strconv"

	"github.com/approachingml/aamlp/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	float64Bytes = 8
	intBytes     = strconv.IntSize / 8
)

// SparseMatrix is a compressed sparse row matrix. Row i owns the entries
// Data[Indptr[i]:Indptr[i+1]] whose columns are the matching Indices, kept
// in increasing order. It implements mat.Matrix so it can be passed to
// estimators and decompositions that only read through At.
type SparseMatrix struct {
	Data    []float64
	Indices []int
	Indptr  []int
	rows    int
	cols    int
}

var _ mat.Matrix = (*SparseMatrix)(nil)

// NewSparseMatrix creates an empty CSR matrix of the given shape.
func NewSparseMatrix(rows, cols int) *SparseMatrix {
	return &SparseMatrix{Indptr: make([]int, rows+1), rows: rows, cols: cols}
}

// NewSparseFromDense keeps the non-zero entries of m.
func NewSparseFromDense(m mat.Matrix) *SparseMatrix {
	r, c := m.Dims()
	s := &SparseMatrix{Indptr: make([]int, 1, r+1), rows: r, cols: c}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 {
				s.Data = append(s.Data, v)
				s.Indices = append(s.Indices, j)
			}
		}
		s.Indptr = append(s.Indptr, len(s.Data))
	}
	return s
}

// Dims returns the matrix shape.
func (s *SparseMatrix) Dims() (r, c int) { return s.rows, s.cols }

// At returns the element at row i, column j.
func (s *SparseMatrix) At(i, j int) float64 {
	if i < 0 || i >= s.rows || j < 0 || j >= s.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	lo, hi := s.Indptr[i], s.Indptr[i+1]
	k := lo + sort.SearchInts(s.Indices[lo:hi], j)
	if k < hi && s.Indices[k] == j {
		return s.Data[k]
	}
	return 0
}

// T returns the implicit transpose.
func (s *SparseMatrix) T() mat.Matrix { return mat.Transpose{Matrix: s} }

// NNZ is the number of stored entries.
func (s *SparseMatrix) NNZ() int { return len(s.Data) }

// ToDense materializes the matrix.
func (s *SparseMatrix) ToDense() *mat.Dense {
	d := mat.NewDense(s.rows, s.cols, nil)
	for i := 0; i < s.rows; i++ {
		for k := s.Indptr[i]; k < s.Indptr[i+1]; k++ {
			d.Set(i, s.Indices[k], s.Data[k])
		}
	}
	return d
}

// NBytes is the memory held by the three CSR arrays.
func (s *SparseMatrix) NBytes() int {
	return len(s.Data)*float64Bytes + (len(s.Indices)+len(s.Indptr))*intBytes
}

// DenseNBytes is the memory of a rows × cols float64 dense matrix.
func DenseNBytes(rows, cols int) int {
	return rows * cols * float64Bytes
}

// appendRow adds a row whose entries are given by column → value. Columns
// must be unique.
func (s *SparseMatrix) appendRow(cols []int, values []float64) error {
	if len(s.Indptr)-1 >= s.rows {
		return errors.NewValueError("SparseMatrix", "row capacity exceeded")
	}
	order := make([]int, len(cols))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return cols[order[a]] < cols[order[b]] })
	for _, k := range order {
		if cols[k] < 0 || cols[k] >= s.cols {
			return errors.NewDimensionError("SparseMatrix", s.cols, cols[k], 1)
		}
		s.Indices = append(s.Indices, cols[k])
		s.Data = append(s.Data, values[k])
	}
	s.Indptr = append(s.Indptr, len(s.Data))
	return nil
}

// newSparseBuilder prepares a matrix that is filled row by row.
func newSparseBuilder(rows, cols int) *SparseMatrix {
	return &SparseMatrix{Indptr: make([]int, 1, rows+1), rows: rows, cols: cols}
}
