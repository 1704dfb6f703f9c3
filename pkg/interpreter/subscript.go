package interpreter

import (
	"math/big"

	"serpent/interpreter-go/pkg/runtime"
)

const maxSliceBound = 1 << 40

func indexError(format string, args ...any) error {
	return runtime.NewException(runtime.IndexErrorClass, format, args...)
}

func keyError(key runtime.Value) error {
	exc := runtime.NewException(runtime.KeyErrorClass, "%s", runtime.Repr(key))
	exc.Args = []runtime.Value{key}
	return exc
}

// seqIndex normalizes a (possibly negative) index against length n.
func seqIndex(key runtime.Value, n int, what, rangeMsg string) (int, error) {
	k, ok := runtime.IntValue(key)
	if !ok {
		return 0, typeError("%s indices must be integers or slices, not %s", what, runtime.TypeName(key))
	}
	if !k.IsInt64() {
		return 0, indexError("%s", rangeMsg)
	}
	i := k.Int64()
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, indexError("%s", rangeMsg)
	}
	return int(i), nil
}

func sliceBound(v runtime.Value) (int, error) {
	k, ok := runtime.IntValue(v)
	if !ok {
		return 0, typeError("slice indices must be integers or None or have an __index__ method")
	}
	switch {
	case k.Cmp(big.NewInt(maxSliceBound)) > 0:
		return maxSliceBound, nil
	case k.Cmp(big.NewInt(-maxSliceBound)) < 0:
		return -maxSliceBound, nil
	}
	return int(k.Int64()), nil
}

// indices resolves the slice against a sequence of length n.
func (s *Slice) indices(n int) (start, stop, step int, err error) {
	step = 1
	if s.Step != runtime.None {
		if step, err = sliceBound(s.Step); err != nil {
			return
		}
		if step == 0 {
			return 0, 0, 0, valueError("slice step cannot be zero")
		}
	}
	lower, upper := 0, n
	if step < 0 {
		lower, upper = -1, n-1
	}
	adjust := func(v runtime.Value, dflt int) (int, error) {
		if v == runtime.None {
			return dflt, nil
		}
		b, err := sliceBound(v)
		if err != nil {
			return 0, err
		}
		if b < 0 {
			b += n
			if b < lower {
				b = lower
			}
		} else if b > upper {
			b = upper
		}
		return b, nil
	}
	if step < 0 {
		start, err = adjust(s.Start, upper)
		if err == nil {
			stop, err = adjust(s.Stop, lower)
		}
	} else {
		start, err = adjust(s.Start, lower)
		if err == nil {
			stop, err = adjust(s.Stop, upper)
		}
	}
	return
}

// positions lists the indices a slice selects from a sequence of length n.
func (s *Slice) positions(n int) ([]int, error) {
	start, stop, step, err := s.indices(n)
	if err != nil {
		return nil, err
	}
	var out []int
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, i)
	}
	return out, nil
}

func selectSlice[T any](elems []T, s *Slice) ([]T, error) {
	pos, err := s.positions(len(elems))
	if err != nil {
		return nil, err
	}
	out := make([]T, len(pos))
	for n, p := range pos {
		out[n] = elems[p]
	}
	return out, nil
}

func getItem(container, key runtime.Value) (runtime.Value, error) {
	s, isSlice := key.(*Slice)
	switch c := container.(type) {
	case runtime.Tuple:
		if isSlice {
			out, err := selectSlice(c, s)
			return runtime.Tuple(out), err
		}
		i, err := seqIndex(key, len(c), "tuple", "tuple index out of range")
		if err != nil {
			return nil, err
		}
		return c[i], nil
	case *runtime.List:
		elems := c.Snapshot()
		if isSlice {
			out, err := selectSlice(elems, s)
			if err != nil {
				return nil, err
			}
			return runtime.NewList(out...), nil
		}
		i, err := seqIndex(key, len(elems), "list", "list index out of range")
		if err != nil {
			return nil, err
		}
		return elems[i], nil
	case runtime.Str:
		runes := []rune(string(c))
		if isSlice {
			out, err := selectSlice(runes, s)
			return runtime.Str(string(out)), err
		}
		i, err := seqIndex(key, len(runes), "string", "string index out of range")
		if err != nil {
			return nil, err
		}
		return runtime.Str(string(runes[i])), nil
	case runtime.Bytes:
		if isSlice {
			out, err := selectSlice([]byte(c), s)
			return runtime.Bytes(out), err
		}
		i, err := seqIndex(key, len(c), "byte", "index out of range")
		if err != nil {
			return nil, err
		}
		return runtime.NewInt(int64(c[i])), nil
	case Range:
		return rangeItem(c, key)
	case *runtime.Dict:
		v, ok, err := c.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, keyError(key)
		}
		return v, nil
	}
	return nil, typeError("'%s' object is not subscriptable", runtime.TypeName(container))
}

func rangeItem(r Range, key runtime.Value) (runtime.Value, error) {
	n, err := length(r)
	if err != nil {
		return nil, err
	}
	if s, ok := key.(*Slice); ok {
		start, stop, step, err := s.indices(n)
		if err != nil {
			return nil, err
		}
		at := func(i int) *big.Int {
			v := new(big.Int).Mul(big.NewInt(int64(i)), r.Step)
			return v.Add(v, r.Start)
		}
		return Range{
			Start: at(start),
			Stop:  at(stop),
			Step:  new(big.Int).Mul(r.Step, big.NewInt(int64(step))),
		}, nil
	}
	i, err := seqIndex(key, n, "range", "range object index out of range")
	if err != nil {
		return nil, err
	}
	return r.At(big.NewInt(int64(i))), nil
}

func setItem(container, key, value runtime.Value) error {
	switch c := container.(type) {
	case *runtime.List:
		if s, ok := key.(*Slice); ok {
			items, err := sequence(value)
			if err != nil {
				return typeError("can only assign an iterable")
			}
			return c.Update(func(elems []runtime.Value) ([]runtime.Value, error) {
				return assignSlice(elems, s, items)
			})
		}
		return c.Update(func(elems []runtime.Value) ([]runtime.Value, error) {
			i, err := seqIndex(key, len(elems), "list", "list assignment index out of range")
			if err != nil {
				return nil, err
			}
			elems[i] = value
			return elems, nil
		})
	case *runtime.Dict:
		return c.Set(key, value)
	}
	return typeError("'%s' object does not support item assignment", runtime.TypeName(container))
}

func assignSlice(elems []runtime.Value, s *Slice, items []runtime.Value) ([]runtime.Value, error) {
	start, stop, step, err := s.indices(len(elems))
	if err != nil {
		return nil, err
	}
	if step == 1 {
		if stop < start {
			stop = start
		}
		out := make([]runtime.Value, 0, len(elems)-(stop-start)+len(items))
		out = append(out, elems[:start]...)
		out = append(out, items...)
		return append(out, elems[stop:]...), nil
	}
	pos, err := s.positions(len(elems))
	if err != nil {
		return nil, err
	}
	if len(pos) != len(items) {
		return nil, valueError("attempt to assign sequence of size %d to extended slice of size %d", len(items), len(pos))
	}
	for n, p := range pos {
		elems[p] = items[n]
	}
	return elems, nil
}

func delItem(container, key runtime.Value) error {
	switch c := container.(type) {
	case *runtime.List:
		if s, ok := key.(*Slice); ok {
			return c.Update(func(elems []runtime.Value) ([]runtime.Value, error) {
				pos, err := s.positions(len(elems))
				if err != nil {
					return nil, err
				}
				drop := make(map[int]bool, len(pos))
				for _, p := range pos {
					drop[p] = true
				}
				out := elems[:0:0]
				for n, v := range elems {
					if !drop[n] {
						out = append(out, v)
					}
				}
				return out, nil
			})
		}
		return c.Update(func(elems []runtime.Value) ([]runtime.Value, error) {
			i, err := seqIndex(key, len(elems), "list", "list assignment index out of range")
			if err != nil {
				return nil, err
			}
			return append(elems[:i:i], elems[i+1:]...), nil
		})
	case *runtime.Dict:
		ok, err := c.Delete(key)
		if err != nil {
			return err
		}
		if !ok {
			return keyError(key)
		}
		return nil
	}
	return typeError("'%s' object doesn't support item deletion", runtime.TypeName(container))
}
