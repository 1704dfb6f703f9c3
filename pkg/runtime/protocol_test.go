package runtime

import (
	"context"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericEqualityAndHash(t *testing.T) {
	big70 := Int{V: new(big.Int).Lsh(big.NewInt(1), 70)}
	pairs := [][2]Value{
		{NewInt(1), True},
		{NewInt(1), Float(1)},
		{Float(2), Complex{Real: 2}},
		{NewInt(0), False},
		{big70, Float(math.Ldexp(1, 70))},
	}
	for _, p := range pairs {
		assert.True(t, Equal(p[0], p[1]), "%s == %s", Repr(p[0]), Repr(p[1]))
		h0, err := Hash(p[0])
		require.NoError(t, err)
		h1, err := Hash(p[1])
		require.NoError(t, err)
		assert.Equal(t, h0, h1, "hash(%s) != hash(%s)", Repr(p[0]), Repr(p[1]))
	}
	assert.False(t, Equal(Float(math.NaN()), Float(math.NaN())))
	assert.False(t, Equal(NewInt(1), Str("1")))
	assert.False(t, Equal(Tuple{NewInt(1)}, NewList(NewInt(1))))
	assert.True(t, Equal(Tuple{NewInt(1), Str("a")}, Tuple{Float(1), Str("a")}))
}

func TestTruthy(t *testing.T) {
	falsy := []Value{None, False, NewInt(0), Float(0), Str(""), Tuple{}, NewList(), NewDict(), Bytes(nil)}
	for _, v := range falsy {
		assert.False(t, Truthy(v), "%s should be falsy", Repr(v))
	}
	truthy := []Value{True, NewInt(-1), Str("x"), Tuple{None}, NewObject(ObjectClass), Ellipsis}
	for _, v := range truthy {
		assert.True(t, Truthy(v), "%s should be truthy", Repr(v))
	}
}

func TestReprPlaceholdersForCycles(t *testing.T) {
	l := NewList(NewInt(1))
	l.Append(l)
	assert.Equal(t, "[1, [...]]", Repr(l))

	d := NewDict()
	require.NoError(t, d.SetStr("self", d))
	assert.Equal(t, "{'self': {...}}", Repr(d))

	cls := NewClass("Name", "_ast", ObjectClass)
	cls.HasDict = true
	obj := NewObject(cls)
	require.NoError(t, SetAttr(obj, "id", Str("x")))
	require.NoError(t, SetAttr(obj, "parent", obj))
	assert.Equal(t, "Name(id='x', parent=Name(...))", Repr(obj))

	// the same child under two parents is not a cycle
	shared := NewList()
	pair := Tuple{shared, shared}
	assert.Equal(t, "([], [])", Repr(pair))
}

func TestReprScalars(t *testing.T) {
	cases := map[string]Value{
		"None":            None,
		"True":            True,
		"3.0":             Float(3),
		"(1+2j)":          Complex{Real: 1, Imag: 2},
		"'a\\'b\"'":       Str("a'b\""),
		"b'\\x00'":        Bytes{0},
		"(1,)":            Tuple{NewInt(1)},
		"<class 'int'>":   IntClass,
		"ValueError('x')": NewException(ValueErrorClass, "x"),
	}
	for want, v := range cases {
		assert.Equal(t, want, Repr(v))
	}
}

func TestAttributes(t *testing.T) {
	base := NewClass("AST", "_ast", ObjectClass)
	base.HasDict = true
	cls := NewClass("Name", "_ast", base)
	cls.Fields = []string{"id", "ctx"}
	obj := NewObject(cls)

	_, err := GetAttr(obj, "id")
	var exc *Exception
	require.ErrorAs(t, err, &exc)
	assert.Equal(t, AttributeErrorClass, exc.Class())

	require.NoError(t, SetAttr(obj, "id", Str("x")))
	got, err := GetAttr(obj, "id")
	require.NoError(t, err)
	assert.Equal(t, Str("x"), got)

	fields, err := GetAttr(cls, "_fields")
	require.NoError(t, err)
	assert.Equal(t, Tuple{Str("id"), Str("ctx")}, fields)
	baseFields, err := GetAttr(base, "_fields")
	require.NoError(t, err)
	assert.Equal(t, Tuple{}, baseFields)

	ok, err := HasAttr(obj, "ctx")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, DelAttr(obj, "id"))
	require.Error(t, DelAttr(obj, "id"))

	plain := NewObject(ObjectClass)
	require.Error(t, SetAttr(plain, "x", None))
	assert.True(t, IsInstance(True, IntClass))
	assert.False(t, IsInstance(NewInt(1), BoolClass))
}

func TestBuiltinConstructors(t *testing.T) {
	ctx := context.Background()
	v, err := Call(ctx, IntClass, []Value{Str(" 1_000 ")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1000", Repr(v))

	v, err = Call(ctx, BoolClass, []Value{NewList()}, nil)
	require.NoError(t, err)
	assert.Equal(t, False, v)

	v, err = Call(ctx, DictClass, nil, []KeywordArg{{Name: "a", Value: NewInt(1)}})
	require.NoError(t, err)
	assert.Equal(t, "{'a': 1}", Repr(v))

	v, err = Call(ctx, ValueErrorClass, []Value{Str("bad")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ValueError: bad", v.(*Exception).Error())

	_, err = Call(ctx, NewInt(1), nil, nil)
	require.Error(t, err)
	_, err = Call(ctx, ModuleClass, nil, nil)
	require.Error(t, err)
}
