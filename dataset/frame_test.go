package dataset

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trainCSV = `id,ord_2,target,price
0,Hot,1,1.5
1,Cold,0,
2,Hot,1,2.5
3,Lava Hot,0,NaN
4,Hot,1,4
`

func load(t *testing.T) *Frame {
	t.Helper()
	f, err := ReadCSV(strings.NewReader(trainCSV))
	require.NoError(t, err)
	return f
}

func TestReadWriteCSV(t *testing.T) {
	f := load(t)
	assert.Equal(t, 5, f.Len())
	assert.Equal(t, []string{"id", "ord_2", "target", "price"}, f.Columns())

	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))
	assert.Equal(t, trainCSV, buf.String())

	path := filepath.Join(t.TempDir(), "out", "train_folds.csv")
	require.NoError(t, f.SaveCSV(path))
	again, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, f.Columns(), again.Columns())
	assert.Equal(t, f.Len(), again.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("a,a\n1,2\n"))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("a,b\n1\n"))
	assert.Error(t, err)
}

func TestNumericViews(t *testing.T) {
	f := load(t)

	price, err := f.FloatColumn("price")
	require.NoError(t, err)
	assert.Equal(t, 1.5, price[0])
	assert.True(t, math.IsNaN(price[1]))
	assert.True(t, math.IsNaN(price[3]))

	target, err := f.IntColumn("target")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1, 0, 1}, target)

	_, err = f.FloatColumn("ord_2")
	assert.Error(t, err)
	_, err = f.IntColumn("price")
	assert.Error(t, err)
	_, err = f.FloatColumn("nope")
	assert.Error(t, err)

	X, err := f.Matrix("id", "target")
	require.NoError(t, err)
	r, c := X.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 4.0, X.At(4, 0))

	v, err := f.Vector("target")
	require.NoError(t, err)
	assert.Equal(t, 5, v.Len())

	_, err = NewFrame().Matrix()
	assert.Error(t, err)
}

func TestRowOperationsKeepAlignment(t *testing.T) {
	f := load(t)

	tests := []struct {
		name string
		op   func(*Frame) *Frame
		want int
	}{
		{name: "shuffle", op: func(f *Frame) *Frame { return f.Shuffle(42) }, want: 5},
		{name: "filter", op: func(f *Frame) *Frame {
			return f.Filter(func(r Row) bool { return r.Get("ord_2") == "Hot" })
		}, want: 3},
		{name: "head", op: func(f *Frame) *Frame { return f.Head(2) }, want: 2},
		{name: "head beyond length", op: func(f *Frame) *Frame { return f.Head(10) }, want: 5},
		{name: "take", op: func(f *Frame) *Frame { return f.Take([]int{4, 0}) }, want: 2},
	}
	pairs := map[string]string{"0": "Hot", "1": "Cold", "2": "Hot", "3": "Lava Hot", "4": "Hot"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.op(f)
			require.Equal(t, tt.want, out.Len())
			ids, err := out.Column("id")
			require.NoError(t, err)
			ords, err := out.Column("ord_2")
			require.NoError(t, err)
			for i := range ids {
				assert.Equal(t, pairs[ids[i]], ords[i], "row %d misaligned", i)
			}
		})
	}

	a := f.Shuffle(7)
	b := f.Shuffle(7)
	idA, _ := a.Column("id")
	idB, _ := b.Column("id")
	assert.Equal(t, idA, idB)
	assert.ElementsMatch(t, []string{"0", "1", "2", "3", "4"}, idA)
}

func TestColumnEditing(t *testing.T) {
	f := load(t)

	require.NoError(t, f.SetIntColumn("kfold", []int{0, 1, 2, 0, 1}))
	assert.Equal(t, "kfold", f.Columns()[4])
	require.NoError(t, f.SetFloatColumn("price", []float64{1, 2, 3, 4, 0.5}))
	price, _ := f.Column("price")
	assert.Equal(t, "0.5", price[4])
	assert.Error(t, f.SetColumn("short", []string{"a"}))

	dropped := f.DropColumns("id", "kfold", "unknown")
	assert.Equal(t, []string{"ord_2", "target", "price"}, dropped.Columns())
	assert.True(t, f.HasColumn("id"), "original frame untouched")

	sel, err := f.Select("target", "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"target", "id"}, sel.Columns())
	_, err = f.Select("nope")
	assert.Error(t, err)

	g, err := FromColumns([]string{"a", "b"}, [][]string{{"1", "2"}, {"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	_, err = FromColumns([]string{"a", "b"}, [][]string{{"1", "2"}, {"x"}})
	assert.Error(t, err)
}

func TestValueCountsAndConcat(t *testing.T) {
	f := load(t)
	counts, err := f.ValueCounts("ord_2")
	require.NoError(t, err)
	assert.Equal(t, []ValueCount{{"Hot", 3}, {"Cold", 1}, {"Lava Hot", 1}}, counts)
	_, err = f.ValueCounts("nope")
	assert.Error(t, err)

	both, err := Concat(f.Head(2), f.Take([]int{3}))
	require.NoError(t, err)
	assert.Equal(t, 3, both.Len())
	ids, _ := both.Column("id")
	assert.Equal(t, []string{"0", "1", "3"}, ids)

	_, err = Concat(f, f.DropColumns("id"))
	assert.Error(t, err)
	_, err = Concat()
	assert.Error(t, err)
}
