package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keysOf(t *testing.T, d *Dict) []string {
	t.Helper()
	keys, err := d.Keys()
	require.NoError(t, err)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = ToStr(k)
	}
	return out
}

func TestDictKeepsInsertionOrder(t *testing.T) {
	d := NewDict()
	for _, k := range []string{"lineno", "value", "col_offset", "ctx"} {
		require.NoError(t, d.SetStr(k, None))
	}
	require.NoError(t, d.SetStr("value", NewInt(3)))
	assert.Equal(t, []string{"lineno", "value", "col_offset", "ctx"}, keysOf(t, d))

	got, ok, err := d.GetStr("value")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, Equal(got, NewInt(3)))

	removed, err := d.Delete(Str("value"))
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"lineno", "col_offset", "ctx"}, keysOf(t, d))
	assert.Equal(t, 3, d.Len())

	removed, err = d.Delete(Str("value"))
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDictCompactionPreservesOrder(t *testing.T) {
	d := NewDict()
	for i := 0; i < 20; i++ {
		require.NoError(t, d.Set(NewInt(int64(i)), NewInt(int64(i*i))))
	}
	for i := 0; i < 15; i++ {
		_, err := d.Delete(NewInt(int64(i)))
		require.NoError(t, err)
	}
	require.Equal(t, 5, d.Len())
	items, err := d.Items()
	require.NoError(t, err)
	require.Len(t, items, 5)
	for i, it := range items {
		want := int64(15 + i)
		assert.True(t, Equal(it.Key, NewInt(want)), "key %d = %s", i, Repr(it.Key))
		assert.True(t, Equal(it.Value, NewInt(want*want)))
	}
	got, ok, err := d.Get(NewInt(19))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "361", Repr(got))

	require.NoError(t, d.Set(NewInt(0), None))
	keys, err := d.Keys()
	require.NoError(t, err)
	assert.Equal(t, "[15, 16, 17, 18, 19, 0]", Repr(NewList(keys...)))
}

func TestDictNumericKeysCollapse(t *testing.T) {
	d := NewDict()
	require.NoError(t, d.Set(NewInt(1), Str("int")))
	require.NoError(t, d.Set(Float(1.0), Str("float")))
	require.NoError(t, d.Set(True, Str("bool")))
	assert.Equal(t, 1, d.Len())
	got, _, err := d.Get(Complex{Real: 1})
	require.NoError(t, err)
	assert.Equal(t, Str("bool"), got)
	// the original key object is kept
	keys, err := d.Keys()
	require.NoError(t, err)
	assert.Equal(t, IntClass, keys[0].Class())
}

func TestDictConstructors(t *testing.T) {
	src, err := DictFromPairs([]Item{{Key: Str("a"), Value: NewInt(1)}, {Key: Str("b"), Value: NewInt(2)}})
	require.NoError(t, err)

	copied, err := DictFrom(src, []KeywordArg{{Name: "c", Value: NewInt(3)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keysOf(t, copied))

	pairs := NewList(Tuple{Str("x"), NewInt(1)}, NewList(Str("y"), NewInt(2)))
	fromPairs, err := DictFrom(pairs, nil)
	require.NoError(t, err)
	assert.Equal(t, "{'x': 1, 'y': 2}", Repr(fromPairs))

	_, err = DictFrom(NewList(Tuple{Str("x")}), nil)
	var exc *Exception
	require.ErrorAs(t, err, &exc)
	assert.Equal(t, ValueErrorClass, exc.Class())
}

func TestDictIsUnhashable(t *testing.T) {
	d := NewDict()
	_, err := Hash(d)
	var unhashable *UnhashableError
	require.ErrorAs(t, err, &unhashable)
	assert.Equal(t, "unhashable type: 'dict'", err.Error())

	outer := NewDict()
	err = outer.Set(d, None)
	require.ErrorAs(t, err, &unhashable)
	assert.Equal(t, 0, outer.Len())
}

func TestDictBorrowConflictFailsFast(t *testing.T) {
	d := NewDict()
	require.NoError(t, d.SetStr("a", NewInt(1)))

	release, err := d.Hold()
	require.NoError(t, err)

	err = d.SetStr("b", NewInt(2))
	assert.True(t, errors.Is(err, ErrAlreadyInUse), "got %v", err)
	_, _, err = d.GetStr("a")
	assert.ErrorIs(t, err, ErrAlreadyInUse)
	_, err = d.Hold()
	assert.ErrorIs(t, err, ErrAlreadyInUse)
	assert.Equal(t, 1, d.Len())

	release()
	require.NoError(t, d.SetStr("b", NewInt(2)))
	assert.Equal(t, 2, d.Len())

	exc := AsException(ErrAlreadyInUse)
	assert.Equal(t, RuntimeErrorClass, exc.Class())
}

func TestDictAttributesRejectNonStringKeys(t *testing.T) {
	d := NewDict()
	require.NoError(t, d.Set(NewInt(1), None))
	_, err := d.Attributes()
	require.Error(t, err)
}
