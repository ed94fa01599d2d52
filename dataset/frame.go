// Package dataset holds tabular data as ordered string columns, the
// in-memory equivalent of the CSV files every recipe reads and writes.
// Numeric views are parsed on demand so categorical and numeric columns
// can live in the same frame.
package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// Frame is an ordered set of equally long string columns.
type Frame struct {
	names []string
	cols  map[string][]string
	rows  int
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{cols: make(map[string][]string)}
}

// FromColumns builds a frame from parallel name and value slices.
func FromColumns(names []string, values [][]string) (*Frame, error) {
	if len(names) != len(values) {
		return nil, errors.NewDimensionError("FromColumns", len(names), len(values), 1)
	}
	f := NewFrame()
	for i, name := range names {
		if err := f.SetColumn(name, values[i]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ReadCSV parses a CSV with a header row.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.NewValueError("ReadCSV", "missing header row")
		}
		return nil, errors.Wrap(err, "ReadCSV")
	}

	f := NewFrame()
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return nil, errors.NewValueError("ReadCSV", "duplicate column "+strconv.Quote(name))
		}
		seen[name] = true
		f.names = append(f.names, name)
		f.cols[name] = nil
	}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "ReadCSV")
		}
		for j, name := range f.names {
			f.cols[name] = append(f.cols[name], rec[j])
		}
		f.rows++
	}
	return f, nil
}

// LoadCSV reads a CSV file.
func LoadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()
	return ReadCSV(file)
}

// WriteCSV writes the header and every row.
func (f *Frame) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.names); err != nil {
		return errors.Wrap(err, "WriteCSV")
	}
	row := make([]string, len(f.names))
	for i := 0; i < f.rows; i++ {
		for j, name := range f.names {
			row[j] = f.cols[name][i]
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrap(err, "WriteCSV")
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "WriteCSV")
}

// SaveCSV writes the frame to path, creating parent directories.
func (f *Frame) SaveCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := f.WriteCSV(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Columns returns the column names in order.
func (f *Frame) Columns() []string { return append([]string(nil), f.names...) }

// HasColumn reports whether name exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]string, error) {
	col, ok := f.cols[name]
	if !ok {
		return nil, errors.NewValueError("Frame.Column", "unknown column "+strconv.Quote(name))
	}
	return append([]string(nil), col...), nil
}

// SetColumn adds or replaces a column. Its length must match Len unless
// the frame has no columns yet.
func (f *Frame) SetColumn(name string, values []string) error {
	others := len(f.names)
	if f.HasColumn(name) {
		others--
	}
	if others > 0 && len(values) != f.rows {
		return errors.NewDimensionError("Frame.SetColumn", f.rows, len(values), 0)
	}
	if !f.HasColumn(name) {
		f.names = append(f.names, name)
	}
	f.cols[name] = append([]string(nil), values...)
	f.rows = len(values)
	return nil
}

// SetFloatColumn stores numbers using the shortest representation.
func (f *Frame) SetFloatColumn(name string, values []float64) error {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return f.SetColumn(name, s)
}

// SetIntColumn stores integers, e.g. fold indices.
func (f *Frame) SetIntColumn(name string, values []int) error {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = strconv.Itoa(v)
	}
	return f.SetColumn(name, s)
}

// DropColumns returns a copy without the named columns. Unknown names
// are ignored.
func (f *Frame) DropColumns(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := NewFrame()
	out.rows = f.rows
	for _, name := range f.names {
		if !drop[name] {
			out.names = append(out.names, name)
			out.cols[name] = append([]string(nil), f.cols[name]...)
		}
	}
	return out
}

// Select returns a copy holding only the named columns, in that order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := NewFrame()
	out.rows = f.rows
	for _, name := range names {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		out.names = append(out.names, name)
		out.cols[name] = col
	}
	return out, nil
}

// Take returns the rows at idx, in that order.
func (f *Frame) Take(idx []int) *Frame {
	out := NewFrame()
	out.rows = len(idx)
	for _, name := range f.names {
		src := f.cols[name]
		col := make([]string, len(idx))
		for k, i := range idx {
			col[k] = src[i]
		}
		out.names = append(out.names, name)
		out.cols[name] = col
	}
	return out
}

// Shuffle returns the rows in a random order determined by seed, like
// df.sample(frac=1).reset_index(drop=True).
func (f *Frame) Shuffle(seed uint64) *Frame {
	idx := make([]int, f.rows)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return f.Take(idx)
}

// Row is a read-only view of one row.
type Row struct {
	f *Frame
	i int
}

// Index returns the row's position in its frame.
func (r Row) Index() int { return r.i }

// Get returns the cell of column name, or "" when the column is unknown.
func (r Row) Get(name string) string {
	col, ok := r.f.cols[name]
	if !ok {
		return ""
	}
	return col[r.i]
}

// Filter returns the rows for which keep reports true.
func (f *Frame) Filter(keep func(Row) bool) *Frame {
	var idx []int
	for i := 0; i < f.rows; i++ {
		if keep(Row{f: f, i: i}) {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	n = max(0, min(n, f.rows))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return f.Take(idx)
}

// FloatColumn parses the named column; missing cells (see
// preprocessing.IsMissing) become NaN.
func (f *Frame) FloatColumn(name string) ([]float64, error) {
	col, ok := f.cols[name]
	if !ok {
		return nil, errors.NewValueError("Frame.FloatColumn", "unknown column "+strconv.Quote(name))
	}
	out := make([]float64, len(col))
	for i, cell := range col {
		if preprocessing.IsMissing(cell) {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return nil, errors.NewValueError("Frame.FloatColumn",
				"column "+strconv.Quote(name)+" row "+strconv.Itoa(i)+": "+strconv.Quote(cell)+" is not numeric")
		}
		out[i] = v
	}
	return out, nil
}

// IntColumn parses the named column as integers.
func (f *Frame) IntColumn(name string) ([]int, error) {
	values, err := f.FloatColumn(name)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(values))
	for i, v := range values {
		if math.IsNaN(v) || v != math.Trunc(v) {
			return nil, errors.NewValueError("Frame.IntColumn",
				"column "+strconv.Quote(name)+" row "+strconv.Itoa(i)+" is not an integer")
		}
		out[i] = int(v)
	}
	return out, nil
}

// Vector returns the named column as a vector.
func (f *Frame) Vector(name string) (*mat.VecDense, error) {
	values, err := f.FloatColumn(name)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.NewModelError("Frame.Vector", "empty data", errors.ErrEmptyData)
	}
	return mat.NewVecDense(len(values), values), nil
}

// Matrix returns the named columns as a Len × len(names) matrix. With no
// names every column is used.
func (f *Frame) Matrix(names ...string) (*mat.Dense, error) {
	if len(names) == 0 {
		names = f.names
	}
	if f.rows == 0 || len(names) == 0 {
		return nil, errors.NewModelError("Frame.Matrix", "empty data", errors.ErrEmptyData)
	}
	out := mat.NewDense(f.rows, len(names), nil)
	for j, name := range names {
		values, err := f.FloatColumn(name)
		if err != nil {
			return nil, err
		}
		out.SetCol(j, values)
	}
	return out, nil
}

// ValueCount is one entry of ValueCounts.
type ValueCount struct {
	Value string
	Count int
}

// ValueCounts counts distinct cells, most frequent first with ties in
// value order.
func (f *Frame) ValueCounts(name string) ([]ValueCount, error) {
	col, ok := f.cols[name]
	if !ok {
		return nil, errors.NewValueError("Frame.ValueCounts", "unknown column "+strconv.Quote(name))
	}
	counts := make(map[string]int)
	for _, cell := range col {
		counts[cell]++
	}
	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Value < out[b].Value
	})
	return out, nil
}

// Concat stacks frames row-wise. Every frame must have the same column
// set; the first frame's order is kept.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, errors.NewValueError("Concat", "no frames")
	}
	out := NewFrame()
	out.names = append(out.names, frames[0].names...)
	for _, name := range out.names {
		out.cols[name] = nil
	}
	for k, f := range frames {
		if len(f.names) != len(out.names) {
			return nil, errors.NewDimensionError("Concat", len(out.names), len(f.names), 1)
		}
		for _, name := range out.names {
			col, ok := f.cols[name]
			if !ok {
				return nil, errors.NewValueError("Concat",
					"frame "+strconv.Itoa(k)+" lacks column "+strconv.Quote(name))
			}
			out.cols[name] = append(out.cols[name], col...)
		}
		out.rows += f.rows
	}
	return out, nil
}
