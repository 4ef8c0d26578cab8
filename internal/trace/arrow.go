package trace

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Activity matrices are persisted as Arrow IPC files: one record batch
// with a fibre index column and a list<float64> activity column. The
// format survives round-trips bit-exactly, which matters for seeded
// reproducibility checks.

func activitySchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "fibre", Type: arrow.PrimitiveTypes.Int64},
		{Name: "activity", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	}, nil)
}

// WriteArrow writes the matrix to path as a single-batch Arrow IPC file.
func WriteArrow(path string, m Matrix) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("write activity: %w", err)
	}

	schema := activitySchema()
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()

	fibres := bldr.Field(0).(*array.Int64Builder)
	lists := bldr.Field(1).(*array.ListBuilder)
	values := lists.ValueBuilder().(*array.Float64Builder)

	for i, row := range m {
		fibres.Append(int64(i))
		lists.Append(true)
		values.AppendValues(row, nil)
	}

	rec := bldr.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write activity: %w", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema))
	if err != nil {
		return fmt.Errorf("write activity: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("write activity: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write activity: %w", err)
	}
	return nil
}

// ReadArrow loads a matrix previously written by WriteArrow. Fibre rows
// are returned in ascending fibre-index order regardless of how batches
// were laid out on disk.
func ReadArrow(path string) (Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read activity: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("read activity: %w", err)
	}
	defer r.Close()

	var rows []struct {
		fibre int64
		data  []float64
	}
	for n := 0; n < r.NumRecords(); n++ {
		rec, err := r.RecordAt(n)
		if err != nil {
			return nil, fmt.Errorf("read activity: batch %d: %w", n, err)
		}
		fibres, ok := rec.Column(0).(*array.Int64)
		if !ok {
			rec.Release()
			return nil, fmt.Errorf("read activity: batch %d: fibre column is not int64", n)
		}
		lists, ok := rec.Column(1).(*array.List)
		if !ok {
			rec.Release()
			return nil, fmt.Errorf("read activity: batch %d: activity column is not list", n)
		}
		values, ok := lists.ListValues().(*array.Float64)
		if !ok {
			rec.Release()
			return nil, fmt.Errorf("read activity: batch %d: activity values are not float64", n)
		}
		raw := values.Float64Values()
		for i := 0; i < int(rec.NumRows()); i++ {
			start, end := lists.ValueOffsets(i)
			rows = append(rows, struct {
				fibre int64
				data  []float64
			}{fibres.Value(i), append([]float64(nil), raw[start:end]...)})
		}
		rec.Release()
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("read activity: %s contains no fibres", path)
	}

	m := make(Matrix, len(rows))
	for _, row := range rows {
		if row.fibre < 0 || int(row.fibre) >= len(rows) {
			return nil, fmt.Errorf("read activity: fibre index %d out of range", row.fibre)
		}
		if m[row.fibre] != nil {
			return nil, fmt.Errorf("read activity: duplicate fibre index %d", row.fibre)
		}
		m[row.fibre] = row.data
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("read activity: %w", err)
	}
	return m, nil
}
