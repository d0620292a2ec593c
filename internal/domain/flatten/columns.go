package flatten

import (
	"reflect"
	"strconv"
	"sync"
)

var columnCache sync.Map // reflect.Type -> []int (field indexes)

func fieldIndexes(t reflect.Type) []int {
	if v, ok := columnCache.Load(t); ok {
		return v.([]int)
	}
	var idx []int
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("db") != "" {
			idx = append(idx, i)
		}
	}
	columnCache.Store(t, idx)
	return idx
}

// Columns returns the column names of dataset d in field order.
func Columns(d Dataset) []string {
	rt := RowType(d)
	if rt == nil {
		return nil
	}
	t := reflect.TypeOf(rt).Elem()
	idx := fieldIndexes(t)
	out := make([]string, len(idx))
	for i, f := range idx {
		out[i] = t.Field(f).Tag.Get("db")
	}
	return out
}

// Values returns the column values of one row in Columns order. Nil
// pointers become nil.
func Values(row any) []any {
	v := reflect.Indirect(reflect.ValueOf(row))
	idx := fieldIndexes(v.Type())
	out := make([]any, len(idx))
	for i, f := range idx {
		fv := v.Field(f)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				out[i] = nil
				continue
			}
			fv = fv.Elem()
		}
		out[i] = fv.Interface()
	}
	return out
}

// Strings renders one row as text in Columns order. Nil values render as
// the empty string.
func Strings(row any) []string {
	vals := Values(row)
	out := make([]string, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case nil:
		case string:
			out[i] = x
		case int:
			out[i] = strconv.Itoa(x)
		case bool:
			out[i] = strconv.FormatBool(x)
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		}
	}
	return out
}

// Schema exposes the datasets to export sinks.
type Schema struct{}

func (Schema) Columns(table string) []string { return Columns(Dataset(table)) }
func (Schema) Prototype(table string) any    { return RowType(Dataset(table)) }
func (Schema) Strings(row any) []string      { return Strings(row) }
