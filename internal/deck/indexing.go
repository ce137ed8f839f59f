package deck

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/me/abiflow/internal/variable"
)

// Indexing describes how the datasets of a deck are numbered. It is one of
// Contiguous, Explicit or Product; a nil Indexing means a single dataset.
type Indexing interface {
	// Count is the number of datasets (ndtset).
	Count() int
	// Indices lists the dataset indices in declaration order.
	Indices() []int
	// Declarations are the variables written to the unconditioned block.
	Declarations() []variable.Variable
}

// Contiguous numbers datasets 1..Count and declares ndtset only.
type Contiguous struct {
	N int
}

func (c Contiguous) Count() int { return c.N }

func (c Contiguous) Indices() []int {
	idx := make([]int, 0, c.N)
	for i := 1; i <= c.N; i++ {
		idx = append(idx, i)
	}
	return idx
}

func (c Contiguous) Declarations() []variable.Variable {
	if c.N <= 0 {
		return nil
	}
	return []variable.Variable{variable.New("ndtset", c.N, 0)}
}

// Explicit lists the dataset indices (jdtset).
type Explicit struct {
	List []int
}

func (e Explicit) Count() int { return len(e.List) }

func (e Explicit) Indices() []int { return slices.Clone(e.List) }

func (e Explicit) Declarations() []variable.Variable {
	if len(e.List) == 0 {
		return nil
	}
	return []variable.Variable{
		variable.New("ndtset", len(e.List), 0),
		variable.New("jdtset", slices.Clone(e.List), 0),
	}
}

// Product numbers datasets on a grid (udtset). Each index is the
// concatenation of one digit per dimension, the last dimension varying
// fastest: udtset 2 3 gives 11 12 13 21 22 23.
type Product struct {
	Dims []int
}

func (p Product) Count() int {
	if len(p.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range p.Dims {
		n *= d
	}
	return n
}

func (p Product) Indices() []int {
	n := p.Count()
	if n <= 0 {
		return nil
	}
	idx := make([]int, 0, n)
	digits := make([]int, len(p.Dims))
	for i := range digits {
		digits[i] = 1
	}
	for range n {
		v := 0
		for _, d := range digits {
			v = v*10 + d
		}
		idx = append(idx, v)
		for k := len(digits) - 1; k >= 0; k-- {
			if digits[k] < p.Dims[k] {
				digits[k]++
				break
			}
			digits[k] = 1
		}
	}
	return idx
}

func (p Product) Declarations() []variable.Variable {
	if len(p.Dims) == 0 {
		return nil
	}
	return []variable.Variable{
		variable.New("ndtset", p.Count(), 0),
		variable.New("udtset", slices.Clone(p.Dims), 0),
	}
}

// toInts converts an int, a string of ints, or a sequence of numbers.
func toInts(value any) ([]int, error) {
	rv := reflect.ValueOf(value)
	for rv.IsValid() && (rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer) {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, nil
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]int, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			n, err := toInt(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case reflect.String:
		var out []int
		for _, f := range strings.Fields(rv.String()) {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	}
	n, err := toInt(value)
	if err != nil {
		return nil, err
	}
	return []int{n}, nil
}

func toInt(value any) (int, error) {
	rv := reflect.ValueOf(value)
	for rv.IsValid() && (rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer) {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return 0, fmt.Errorf("nil is not an integer")
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != float64(int(f)) {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		return int(f), nil
	case reflect.String:
		return strconv.Atoi(strings.TrimSpace(rv.String()))
	}
	return 0, fmt.Errorf("%v (%T) is not an integer", value, value)
}
