// Package variable parses and formats single input variables.
package variable

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Special is the dataset tag of names that do not follow the
// basename+digits pattern, such as ecut1x or tolvrs1?.
const Special = "*"

// Variable is one named entry of an input deck.
type Variable struct {
	Name     string // raw name, possibly with a dataset suffix
	Basename string
	Dataset  string // "" for all datasets, digits, or Special
	Value    any
	Decimals int // fixed decimals for floats; 0 means shortest form
}

// New creates a Variable, resolving basename and dataset from name.
func New(name string, value any, decimals int) Variable {
	base, ds := ParseName(name)
	return Variable{
		Name:     name,
		Basename: base,
		Dataset:  ds,
		Value:    value,
		Decimals: decimals,
	}
}

// ParseName splits name into its leading non-digit run and trailing digit
// run. Names that do not have that shape return (name, Special).
func ParseName(name string) (basename, dataset string) {
	i := strings.IndexFunc(name, isDigit)
	if i < 0 {
		return name, ""
	}
	if i == 0 {
		return name, Special
	}
	for _, r := range name[i:] {
		if !isDigit(r) {
			return name, Special
		}
	}
	return name[:i], name[i:]
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// IsSpecial reports whether the name did not parse as basename+digits.
func (v Variable) IsSpecial() bool {
	return v.Dataset == Special
}

// DatasetIndex returns the numeric dataset tag, if any.
func (v Variable) DatasetIndex() (int, bool) {
	if v.Dataset == "" || v.IsSpecial() {
		return 0, false
	}
	n, err := strconv.Atoi(v.Dataset)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Less orders variables by basename, then by dataset tag.
// Numeric tags compare by value.
func Less(a, b Variable) bool {
	if a.Basename != b.Basename {
		return a.Basename < b.Basename
	}
	ai, aok := a.DatasetIndex()
	bi, bok := b.DatasetIndex()
	if aok && bok {
		return ai < bi
	}
	return a.Dataset < b.Dataset
}

// Compare is the three-way form of Less, for slices.SortStableFunc.
func Compare(a, b Variable) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	}
	return 0
}

// String renders the variable as deck text.
func (v Variable) String() string {
	return v.Render()
}

// Render formats the variable: "name value" for scalars, space-joined
// tokens for vectors (compressed to N*value when all equal), and one
// indented row per line for matrices. A nil value renders as "".
func (v Variable) Render() string {
	if v.Value == nil {
		return ""
	}
	rv := reflect.ValueOf(v.Value)
	if !isSequence(rv) {
		return v.Basename + " " + v.token(rv)
	}
	if rv.Len() == 0 {
		return ""
	}
	if isMatrix(rv) {
		var sb strings.Builder
		sb.WriteString(v.Basename)
		for i := 0; i < rv.Len(); i++ {
			sb.WriteString("\n    ")
			sb.WriteString(v.row(indirect(rv.Index(i)), false))
		}
		return sb.String()
	}
	return v.Basename + " " + v.row(rv, true)
}

// row formats a 1-D sequence.
func (v Variable) row(rv reflect.Value, compress bool) string {
	if !isSequence(rv) {
		return v.token(rv)
	}
	tokens := make([]string, rv.Len())
	for i := range tokens {
		tokens[i] = v.token(indirect(rv.Index(i)))
	}
	if compress && len(tokens) > 1 && allEqual(tokens) {
		return strconv.Itoa(len(tokens)) + "*" + tokens[0]
	}
	return strings.Join(tokens, " ")
}

// token formats one scalar.
func (v Variable) token(rv reflect.Value) string {
	rv = indirect(rv)
	if !rv.IsValid() {
		return ""
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return FormatFloat(rv.Float(), v.Decimals)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Bool:
		if rv.Bool() {
			return "1"
		}
		return "0"
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprintf("%v", rv.Interface())
}

// FormatFloat renders f with a fixed number of decimals, or in its
// shortest round-trip form when decimals is not positive.
func FormatFloat(f float64, decimals int) string {
	if decimals > 0 {
		return strconv.FormatFloat(f, 'f', decimals, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func isSequence(rv reflect.Value) bool {
	rv = indirect(rv)
	if !rv.IsValid() {
		return false
	}
	k := rv.Kind()
	return k == reflect.Slice || k == reflect.Array
}

// isMatrix reports whether rv is a sequence whose first element is itself
// a sequence.
func isMatrix(rv reflect.Value) bool {
	rv = indirect(rv)
	return isSequence(rv) && rv.Len() > 0 && isSequence(rv.Index(0))
}

func allEqual(tokens []string) bool {
	for _, t := range tokens[1:] {
		if t != tokens[0] {
			return false
		}
	}
	return true
}
