package tracer

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"unicode/utf8"
)

const (
	// reprBudget bounds rendered bytes; enough for MaxReprLen runes of any width.
	reprBudget = MaxReprLen * utf8.UTFMax
	// reprMaxDepth stops descent into nested and self-referencing containers.
	reprMaxDepth = 6
	// reprMaxMapKeys is how many map entries are sorted and shown.
	reprMaxMapKeys = 32
)

// reprFull aborts rendering once the budget is spent.
type reprFull struct{}

// reprWriter renders values in fmt's %v layout into a fixed budget. It
// walks values itself so the cost of a RETURN event is bounded by the
// budget and the depth limit rather than by the size of the value.
type reprWriter struct {
	buf []byte
}

func (w *reprWriter) write(s string) {
	room := reprBudget - len(w.buf)
	if len(s) >= room {
		w.buf = append(w.buf, s[:room]...)
		panic(reprFull{})
	}
	w.buf = append(w.buf, s...)
}

// Repr renders v for a RETURN message. It never panics and never exceeds MaxReprLen runes.
func Repr(v any) (s string) {
	w := &reprWriter{}
	defer func() {
		if r := recover(); r != nil {
			if _, full := r.(reprFull); full {
				s = truncate(string(w.buf), MaxReprLen)
				return
			}
			s = UnrepresentableValue
		}
	}()

	if v == nil {
		return "None"
	}
	if r, ok := v.(Reprer); ok {
		out, err := r.Repr()
		if err != nil {
			return UnrepresentableValue
		}
		return truncate(out, MaxReprLen)
	}
	w.value(reflect.ValueOf(v), 0)
	return truncate(string(w.buf), MaxReprLen)
}

func (w *reprWriter) value(v reflect.Value, depth int) {
	if !v.IsValid() {
		w.write("<nil>")
		return
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			w.write("<nil>")
			return
		}
	}

	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case Reprer:
			out, err := x.Repr()
			if err != nil {
				panic(err)
			}
			w.write(out)
			return
		case error:
			w.write(x.Error())
			return
		case fmt.Stringer:
			w.write(x.String())
			return
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		w.write(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		w.write(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		w.write(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		w.write(strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits()))
	case reflect.Complex64, reflect.Complex128:
		w.write(strconv.FormatComplex(v.Complex(), 'g', -1, v.Type().Bits()))
	case reflect.String:
		w.write(v.String())
	case reflect.Interface:
		w.value(v.Elem(), depth)
	case reflect.Pointer:
		if depth == 0 {
			switch v.Elem().Kind() {
			case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
				w.write("&")
				w.value(v.Elem(), depth+1)
				return
			}
		}
		w.pointer(v)
	case reflect.Slice, reflect.Array:
		if depth >= reprMaxDepth {
			w.write("[...]")
			return
		}
		w.write("[")
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				w.write(" ")
			}
			w.value(v.Index(i), depth+1)
		}
		w.write("]")
	case reflect.Struct:
		if depth >= reprMaxDepth {
			w.write("{...}")
			return
		}
		w.write("{")
		for i := 0; i < v.NumField(); i++ {
			if i > 0 {
				w.write(" ")
			}
			w.value(v.Field(i), depth+1)
		}
		w.write("}")
	case reflect.Map:
		w.mapValue(v, depth)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		w.pointer(v)
	default:
		w.write(v.Type().String())
	}
}

func (w *reprWriter) pointer(v reflect.Value) {
	w.write("0x" + strconv.FormatUint(uint64(v.Pointer()), 16))
}

// mapValue shows up to reprMaxMapKeys entries in key order. Larger maps
// show an arbitrary subset followed by "...".
func (w *reprWriter) mapValue(v reflect.Value, depth int) {
	if depth >= reprMaxDepth {
		w.write("map[...]")
		return
	}

	type entry struct {
		key   string
		value reflect.Value
	}
	entries := make([]entry, 0, min(v.Len(), reprMaxMapKeys))
	more := false
	iter := v.MapRange()
	for iter.Next() {
		if len(entries) == reprMaxMapKeys {
			more = true
			break
		}
		entries = append(entries, entry{key: renderNested(iter.Key(), depth+1), value: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	w.write("map[")
	for i, e := range entries {
		if i > 0 {
			w.write(" ")
		}
		w.write(e.key)
		w.write(":")
		w.value(e.value, depth+1)
	}
	if more {
		w.write(" ...")
	}
	w.write("]")
}

// renderNested renders v into its own budget, keeping the truncated prefix.
func renderNested(v reflect.Value, depth int) (s string) {
	sub := &reprWriter{}
	defer func() {
		if r := recover(); r != nil {
			if _, full := r.(reprFull); !full {
				panic(r)
			}
			s = string(sub.buf)
		}
	}()
	sub.value(v, depth)
	return string(sub.buf)
}
