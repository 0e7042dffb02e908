package dataset

import (
	"fmt"
	"math"
	"strings"
)

type ColumnKind int

const (
	Numeric ColumnKind = iota
	String
)

// Column is one named, typed column. Numeric columns mark missing cells with
// NaN; string columns with "".
type Column struct {
	Name    string
	Kind    ColumnKind
	Floats  []float64
	Strings []string
}

// Frame is an ordered collection of equal-length columns. Stages never mutate
// a frame they received; join and filter return new frames.
type Frame struct {
	cols  []Column
	index map[string]int
	rows  int
	// rows is meaningful even with zero columns so that an empty source still
	// produces a type-stable frame once key columns are added.
	sized bool
}

func NewFrame() *Frame {
	return &Frame{index: map[string]int{}}
}

func (f *Frame) NumRows() int {
	return f.rows
}

func (f *Frame) NumCols() int {
	return len(f.cols)
}

func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

func (f *Frame) Kind(name string) (ColumnKind, bool) {
	i, ok := f.index[name]
	if !ok {
		return 0, false
	}
	return f.cols[i].Kind, true
}

func (f *Frame) checkLen(name string, n int) error {
	if f.sized && n != f.rows {
		return fmt.Errorf("column %q has %d values, frame has %d rows", name, n, f.rows)
	}
	return nil
}

func (f *Frame) AddNumeric(name string, vals []float64) error {
	if f.HasColumn(name) {
		return fmt.Errorf("duplicate column %q", name)
	}
	if err := f.checkLen(name, len(vals)); err != nil {
		return err
	}
	f.rows = len(vals)
	f.sized = true
	f.index[name] = len(f.cols)
	f.cols = append(f.cols, Column{Name: name, Kind: Numeric, Floats: vals})
	return nil
}

func (f *Frame) AddString(name string, vals []string) error {
	if f.HasColumn(name) {
		return fmt.Errorf("duplicate column %q", name)
	}
	if err := f.checkLen(name, len(vals)); err != nil {
		return err
	}
	f.rows = len(vals)
	f.sized = true
	f.index[name] = len(f.cols)
	f.cols = append(f.cols, Column{Name: name, Kind: String, Strings: vals})
	return nil
}

// Numeric returns the backing slice for a numeric column. Callers must treat
// it as read-only.
func (f *Frame) Numeric(name string) ([]float64, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: column %q", ErrMissingColumn, name)
	}
	if f.cols[i].Kind != Numeric {
		return nil, fmt.Errorf("column %q is not numeric", name)
	}
	return f.cols[i].Floats, nil
}

func (f *Frame) Strings(name string) ([]string, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: column %q", ErrMissingColumn, name)
	}
	if f.cols[i].Kind != String {
		return nil, fmt.Errorf("column %q is not a string column", name)
	}
	return f.cols[i].Strings, nil
}

// SetNumeric replaces the values of an existing numeric column, returning a
// new frame. The receiver is left untouched.
func (f *Frame) SetNumeric(name string, vals []float64) (*Frame, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: column %q", ErrMissingColumn, name)
	}
	if f.cols[i].Kind != Numeric {
		return nil, fmt.Errorf("column %q is not numeric", name)
	}
	if len(vals) != f.rows {
		return nil, fmt.Errorf("column %q has %d values, frame has %d rows", name, len(vals), f.rows)
	}
	out := f.Copy()
	out.cols[i].Floats = vals
	return out, nil
}

func (f *Frame) Copy() *Frame {
	out := &Frame{
		cols:  make([]Column, len(f.cols)),
		index: make(map[string]int, len(f.index)),
		rows:  f.rows,
		sized: f.sized,
	}
	for i, c := range f.cols {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Numeric {
			nc.Floats = append([]float64(nil), c.Floats...)
		} else {
			nc.Strings = append([]string(nil), c.Strings...)
		}
		out.cols[i] = nc
		out.index[c.Name] = i
	}
	return out
}

// FilterRows keeps only rows whose keep flag is true.
func (f *Frame) FilterRows(keep []bool) (*Frame, error) {
	if len(keep) != f.rows {
		return nil, fmt.Errorf("keep mask has %d entries, frame has %d rows", len(keep), f.rows)
	}
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	out := &Frame{
		cols:  make([]Column, len(f.cols)),
		index: make(map[string]int, len(f.index)),
		rows:  n,
		sized: true,
	}
	for i, c := range f.cols {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Numeric {
			nc.Floats = make([]float64, 0, n)
			for j, k := range keep {
				if k {
					nc.Floats = append(nc.Floats, c.Floats[j])
				}
			}
		} else {
			nc.Strings = make([]string, 0, n)
			for j, k := range keep {
				if k {
					nc.Strings = append(nc.Strings, c.Strings[j])
				}
			}
		}
		out.cols[i] = nc
		out.index[c.Name] = i
	}
	return out, nil
}

const keySep = "\x1f"

func (f *Frame) rowKey(row int, on []string) (string, error) {
	parts := make([]string, len(on))
	for i, name := range on {
		col, ok := f.index[name]
		if !ok {
			return "", fmt.Errorf("%w: join key %q", ErrMissingColumn, name)
		}
		if f.cols[col].Kind != String {
			return "", fmt.Errorf("join key %q must be a string column", name)
		}
		parts[i] = f.cols[col].Strings[row]
	}
	return strings.Join(parts, keySep), nil
}

// LeftJoin joins other onto f by the named key columns. Every row of f is
// retained; unmatched cells become NaN (numeric) or "" (string). Matching is
// first-occurrence in other, which is deterministic because builders emit
// rows in sorted key order.
func (f *Frame) LeftJoin(other *Frame, on []string) (*Frame, error) {
	if other == nil {
		return nil, fmt.Errorf("left join: nil right frame")
	}
	lookup := make(map[string]int, other.rows)
	for r := 0; r < other.rows; r++ {
		key, err := other.rowKey(r, on)
		if err != nil {
			return nil, err
		}
		if _, exists := lookup[key]; !exists {
			lookup[key] = r
		}
	}

	out := f.Copy()
	onSet := map[string]bool{}
	for _, k := range on {
		onSet[k] = true
	}
	for _, c := range other.cols {
		if onSet[c.Name] {
			continue
		}
		if out.HasColumn(c.Name) {
			return nil, fmt.Errorf("left join: duplicate column %q", c.Name)
		}
		var floats []float64
		var strs []string
		if c.Kind == Numeric {
			floats = make([]float64, f.rows)
		} else {
			strs = make([]string, f.rows)
		}
		for r := 0; r < f.rows; r++ {
			key, err := f.rowKey(r, on)
			if err != nil {
				return nil, err
			}
			src, ok := lookup[key]
			if c.Kind == Numeric {
				if ok {
					floats[r] = c.Floats[src]
				} else {
					floats[r] = math.NaN()
				}
			} else {
				if ok {
					strs[r] = c.Strings[src]
				}
			}
		}
		if c.Kind == Numeric {
			if err := out.AddNumeric(c.Name, floats); err != nil {
				return nil, err
			}
		} else {
			if err := out.AddString(c.Name, strs); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// NonNullCount returns how many cells in a numeric column are not NaN.
func (f *Frame) NonNullCount(name string) (int, error) {
	vals, err := f.Numeric(name)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range vals {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n, nil
}
