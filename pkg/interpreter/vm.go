package interpreter

import (
	"context"
	"fmt"
	"strings"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/runtime"
)

// frame is the execution state of one code object. Module and exec frames
// resolve names through locals; function frames use fast slots.
type frame struct {
	code    *compiler.CodeObject
	ip      int
	stack   []runtime.Value
	fast    []runtime.Value
	globals *runtime.Dict
	locals  *runtime.Dict
	consts  []runtime.Value
}

func (fr *frame) push(v runtime.Value) {
	fr.stack = append(fr.stack, v)
}

func (fr *frame) pop() (runtime.Value, error) {
	if len(fr.stack) == 0 {
		return nil, fmt.Errorf("bytecode stack underflow")
	}
	last := fr.stack[len(fr.stack)-1]
	fr.stack = fr.stack[:len(fr.stack)-1]
	return last, nil
}

// popN removes the top n values, oldest first.
func (fr *frame) popN(n int) ([]runtime.Value, error) {
	if n > len(fr.stack) {
		return nil, fmt.Errorf("bytecode stack underflow")
	}
	out := make([]runtime.Value, n)
	copy(out, fr.stack[len(fr.stack)-n:])
	fr.stack = fr.stack[:len(fr.stack)-n]
	return out, nil
}

func (fr *frame) top() (runtime.Value, error) {
	if len(fr.stack) == 0 {
		return nil, fmt.Errorf("bytecode stack underflow")
	}
	return fr.stack[len(fr.stack)-1], nil
}

func (fr *frame) u8() int {
	v := fr.code.Code[fr.ip]
	fr.ip++
	return int(v)
}

func (fr *frame) u16() int {
	v := fr.code.ReadU16(fr.ip)
	fr.ip += 2
	return int(v)
}

func (fr *frame) name(idx int) string {
	return fr.code.Names[idx]
}

// runFrame executes fr to completion.
func (i *Interpreter) runFrame(ctx context.Context, fr *frame) (runtime.Value, error) {
	if len(i.frames) >= i.limit {
		return nil, runtime.NewException(runtime.RecursionErrorClass, "maximum recursion depth exceeded")
	}
	consts, err := i.constants(fr.code)
	if err != nil {
		return nil, err
	}
	fr.consts = consts
	if fr.fast == nil && len(fr.code.VarNames) > 0 {
		fr.fast = make([]runtime.Value, len(fr.code.VarNames))
	}
	i.frames = append(i.frames, fr)
	defer func() { i.frames = i.frames[:len(i.frames)-1] }()

	steps := 0
	for fr.ip < len(fr.code.Code) {
		offset := fr.ip
		if steps++; steps&0x3FF == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		result, done, err := i.step(ctx, fr)
		if err != nil {
			return nil, unwind(fr, offset, err)
		}
		if done {
			return result, nil
		}
	}
	return runtime.None, nil
}

// step executes one instruction. done is set by RETURN_VALUE.
func (i *Interpreter) step(ctx context.Context, fr *frame) (result runtime.Value, done bool, err error) {
	op := compiler.Opcode(fr.code.Code[fr.ip])
	fr.ip++
	switch op {
	case compiler.OpNop:
	case compiler.OpPop:
		_, err = fr.pop()
	case compiler.OpDup:
		var v runtime.Value
		if v, err = fr.top(); err == nil {
			fr.push(v)
		}
	case compiler.OpDup2:
		if len(fr.stack) < 2 {
			return nil, false, fmt.Errorf("bytecode stack underflow")
		}
		n := len(fr.stack)
		fr.stack = append(fr.stack, fr.stack[n-2], fr.stack[n-1])
	case compiler.OpRot2:
		if len(fr.stack) < 2 {
			return nil, false, fmt.Errorf("bytecode stack underflow")
		}
		n := len(fr.stack)
		fr.stack[n-1], fr.stack[n-2] = fr.stack[n-2], fr.stack[n-1]
	case compiler.OpRot3:
		if len(fr.stack) < 3 {
			return nil, false, fmt.Errorf("bytecode stack underflow")
		}
		n := len(fr.stack)
		fr.stack[n-3], fr.stack[n-2], fr.stack[n-1] = fr.stack[n-1], fr.stack[n-3], fr.stack[n-2]

	case compiler.OpLoadConst:
		idx := fr.u16()
		if idx >= len(fr.consts) {
			return nil, false, fmt.Errorf("constant index %d out of range", idx)
		}
		fr.push(fr.consts[idx])
	case compiler.OpLoadNone:
		fr.push(runtime.None)

	case compiler.OpLoadName:
		err = i.loadName(fr, fr.name(fr.u16()), true)
	case compiler.OpStoreName:
		err = i.storeName(fr, fr.name(fr.u16()), true)
	case compiler.OpDeleteName:
		err = i.deleteName(fr, fr.name(fr.u16()), true)
	case compiler.OpLoadGlobal:
		err = i.loadName(fr, fr.name(fr.u16()), false)
	case compiler.OpStoreGlobal:
		err = i.storeName(fr, fr.name(fr.u16()), false)
	case compiler.OpDeleteGlobal:
		err = i.deleteName(fr, fr.name(fr.u16()), false)
	case compiler.OpLoadFast:
		slot := fr.u16()
		v := fr.fast[slot]
		if v == nil {
			return nil, false, runtime.NewException(UnboundLocalErrorClass,
				"cannot access local variable '%s' where it is not associated with a value", fr.code.VarNames[slot])
		}
		fr.push(v)
	case compiler.OpStoreFast:
		slot := fr.u16()
		fr.fast[slot], err = fr.pop()
	case compiler.OpDeleteFast:
		slot := fr.u16()
		if fr.fast[slot] == nil {
			return nil, false, runtime.NewException(UnboundLocalErrorClass,
				"cannot access local variable '%s' where it is not associated with a value", fr.code.VarNames[slot])
		}
		fr.fast[slot] = nil

	case compiler.OpLoadAttr:
		name := fr.name(fr.u16())
		var obj, v runtime.Value
		if obj, err = fr.pop(); err != nil {
			break
		}
		if v, err = i.getAttr(obj, name); err == nil {
			fr.push(v)
		}
	case compiler.OpStoreAttr:
		name := fr.name(fr.u16())
		var vals []runtime.Value
		if vals, err = fr.popN(2); err == nil {
			err = runtime.SetAttr(vals[1], name, vals[0])
		}
	case compiler.OpDeleteAttr:
		name := fr.name(fr.u16())
		var obj runtime.Value
		if obj, err = fr.pop(); err == nil {
			err = runtime.DelAttr(obj, name)
		}
	case compiler.OpLoadSubscr:
		var vals []runtime.Value
		if vals, err = fr.popN(2); err != nil {
			break
		}
		var v runtime.Value
		if v, err = getItem(vals[0], vals[1]); err == nil {
			fr.push(v)
		}
	case compiler.OpStoreSubscr:
		var vals []runtime.Value
		if vals, err = fr.popN(3); err == nil {
			err = setItem(vals[1], vals[2], vals[0])
		}
	case compiler.OpDeleteSubscr:
		var vals []runtime.Value
		if vals, err = fr.popN(2); err == nil {
			err = delItem(vals[0], vals[1])
		}

	case compiler.OpBinary:
		operator := ast.Operator(fr.u8())
		var vals []runtime.Value
		if vals, err = fr.popN(2); err != nil {
			break
		}
		var v runtime.Value
		if v, err = binaryOp(operator, vals[0], vals[1]); err == nil {
			fr.push(v)
		}
	case compiler.OpUnary:
		operator := ast.UnaryOperator(fr.u8())
		var operand, v runtime.Value
		if operand, err = fr.pop(); err != nil {
			break
		}
		if v, err = unaryOp(operator, operand); err == nil {
			fr.push(v)
		}
	case compiler.OpCompare:
		operator := ast.CmpOperator(fr.u8())
		var vals []runtime.Value
		if vals, err = fr.popN(2); err != nil {
			break
		}
		var v runtime.Value
		if v, err = compareOp(operator, vals[0], vals[1]); err == nil {
			fr.push(v)
		}

	case compiler.OpBuildTuple:
		var vals []runtime.Value
		if vals, err = fr.popN(fr.u16()); err == nil {
			fr.push(runtime.Tuple(vals))
		}
	case compiler.OpBuildList:
		var vals []runtime.Value
		if vals, err = fr.popN(fr.u16()); err == nil {
			fr.push(runtime.NewList(vals...))
		}
	case compiler.OpBuildMap:
		var vals []runtime.Value
		if vals, err = fr.popN(2 * fr.u16()); err != nil {
			break
		}
		d := runtime.NewDict()
		for n := 0; n < len(vals); n += 2 {
			if err = d.Set(vals[n], vals[n+1]); err != nil {
				break
			}
		}
		if err == nil {
			fr.push(d)
		}
	case compiler.OpBuildSlice:
		var vals []runtime.Value
		if vals, err = fr.popN(fr.u8()); err != nil {
			break
		}
		s := &Slice{Start: vals[0], Stop: vals[1], Step: runtime.None}
		if len(vals) == 3 {
			s.Step = vals[2]
		}
		fr.push(s)
	case compiler.OpBuildString:
		var vals []runtime.Value
		if vals, err = fr.popN(fr.u16()); err != nil {
			break
		}
		var b strings.Builder
		for _, v := range vals {
			b.WriteString(runtime.ToStr(v))
		}
		fr.push(runtime.Str(b.String()))
	case compiler.OpFormatValue:
		err = formatValue(fr, byte(fr.u8()))
	case compiler.OpUnpackSequence:
		err = unpack(fr, fr.u16())

	case compiler.OpJump:
		fr.ip = fr.u16()
	case compiler.OpPopJumpIfFalse, compiler.OpPopJumpIfTrue:
		target := fr.u16()
		var cond runtime.Value
		if cond, err = fr.pop(); err != nil {
			break
		}
		if truthy(cond) == (op == compiler.OpPopJumpIfTrue) {
			fr.ip = target
		}
	case compiler.OpJumpIfFalseOrPop, compiler.OpJumpIfTrueOrPop:
		target := fr.u16()
		var cond runtime.Value
		if cond, err = fr.top(); err != nil {
			break
		}
		if truthy(cond) == (op == compiler.OpJumpIfTrueOrPop) {
			fr.ip = target
		} else {
			_, err = fr.pop()
		}
	case compiler.OpGetIter:
		var v runtime.Value
		if v, err = fr.pop(); err != nil {
			break
		}
		var it *iterator
		if it, err = iterate(v); err == nil {
			fr.push(it)
		}
	case compiler.OpForIter:
		target := fr.u16()
		var top runtime.Value
		if top, err = fr.top(); err != nil {
			break
		}
		it, ok := top.(*iterator)
		if !ok {
			return nil, false, fmt.Errorf("FOR_ITER on %s", runtime.TypeName(top))
		}
		if v, ok := it.next(); ok {
			fr.push(v)
		} else {
			_, err = fr.pop()
			fr.ip = target
		}

	case compiler.OpCall:
		var vals []runtime.Value
		if vals, err = fr.popN(fr.u16() + 1); err != nil {
			break
		}
		var v runtime.Value
		if v, err = runtime.Call(ctx, vals[0], vals[1:], nil); err == nil {
			fr.push(v)
		}
	case compiler.OpCallKw:
		err = i.callKw(ctx, fr, fr.u16())
	case compiler.OpMakeFunction:
		err = i.makeFunction(fr, fr.u16(), byte(fr.u8()))
	case compiler.OpReturnValue:
		var v runtime.Value
		if v, err = fr.pop(); err != nil {
			return nil, false, err
		}
		return v, true, nil

	case compiler.OpRaise:
		err = i.raise(ctx, fr, fr.u8())
	case compiler.OpLoadAssertionError:
		fr.push(runtime.AssertionErrorClass)
	case compiler.OpPrintExpr:
		var v runtime.Value
		if v, err = fr.pop(); err != nil {
			break
		}
		if v == runtime.None {
			break
		}
		_ = i.builtins.SetStr("_", v)
		_, err = fmt.Fprintln(i.stdout, runtime.Repr(v))
	case compiler.OpImportName:
		name := fr.name(fr.u16())
		fr.u8()
		var m *runtime.Module
		if m, err = i.Import(name); err == nil {
			fr.push(m)
		}
	case compiler.OpImportFrom:
		name := fr.name(fr.u16())
		var top, v runtime.Value
		if top, err = fr.top(); err != nil {
			break
		}
		if v, err = runtime.GetAttr(top, name); err != nil {
			if isException(err, runtime.AttributeErrorClass) {
				err = runtime.NewException(runtime.ImportErrorClass,
					"cannot import name '%s' from '%s'", name, moduleName(top))
			}
			break
		}
		fr.push(v)
	case compiler.OpImportStar:
		var m runtime.Value
		if m, err = fr.pop(); err == nil {
			err = i.importStar(fr, m)
		}

	default:
		return nil, false, fmt.Errorf("unknown opcode 0x%02X at offset %d", byte(op), fr.ip-1)
	}
	return nil, false, err
}

func (i *Interpreter) loadName(fr *frame, name string, useLocals bool) error {
	scopes := []*runtime.Dict{fr.globals, i.builtins}
	if useLocals && fr.locals != nil && fr.locals != fr.globals {
		scopes = append([]*runtime.Dict{fr.locals}, scopes...)
	}
	for _, d := range scopes {
		v, ok, err := d.GetStr(name)
		if err != nil {
			return err
		}
		if ok {
			fr.push(v)
			return nil
		}
	}
	return runtime.NewException(runtime.NameErrorClass, "name '%s' is not defined", name)
}

func (i *Interpreter) scopeFor(fr *frame, useLocals bool) *runtime.Dict {
	if useLocals && fr.locals != nil {
		return fr.locals
	}
	return fr.globals
}

func (i *Interpreter) storeName(fr *frame, name string, useLocals bool) error {
	v, err := fr.pop()
	if err != nil {
		return err
	}
	return i.scopeFor(fr, useLocals).SetStr(name, v)
}

func (i *Interpreter) deleteName(fr *frame, name string, useLocals bool) error {
	ok, err := i.scopeFor(fr, useLocals).Delete(runtime.Str(name))
	if err != nil {
		return err
	}
	if !ok {
		return runtime.NewException(runtime.NameErrorClass, "name '%s' is not defined", name)
	}
	return nil
}

func (i *Interpreter) callKw(ctx context.Context, fr *frame, argc int) error {
	namesVal, err := fr.pop()
	if err != nil {
		return err
	}
	names, ok := namesVal.(runtime.Tuple)
	if !ok || len(names) > argc {
		return fmt.Errorf("CALL_KW without a names tuple")
	}
	vals, err := fr.popN(argc + 1)
	if err != nil {
		return err
	}
	callee, args := vals[0], vals[1:]
	positional := argc - len(names)
	kwargs := make([]runtime.KeywordArg, len(names))
	for n, name := range names {
		kwargs[n] = runtime.KeywordArg{Name: runtime.ToStr(name), Value: args[positional+n]}
	}
	v, err := runtime.Call(ctx, callee, args[:positional], kwargs)
	if err != nil {
		return err
	}
	fr.push(v)
	return nil
}

func (i *Interpreter) makeFunction(fr *frame, idx int, flags byte) error {
	if idx >= len(fr.code.Codes) {
		return fmt.Errorf("code index %d out of range", idx)
	}
	code := fr.code.Codes[idx]
	fn := &Function{Name: code.Name, Code: code, Globals: fr.globals, interp: i}
	if flags&compiler.MakeFunctionKwDefaults != 0 {
		v, err := fr.pop()
		if err != nil {
			return err
		}
		d, ok := v.(*runtime.Dict)
		if !ok {
			return fmt.Errorf("MAKE_FUNCTION keyword defaults is %s", runtime.TypeName(v))
		}
		fn.KwDefaults = d
	}
	if flags&compiler.MakeFunctionDefaults != 0 {
		v, err := fr.pop()
		if err != nil {
			return err
		}
		t, ok := v.(runtime.Tuple)
		if !ok {
			return fmt.Errorf("MAKE_FUNCTION defaults is %s", runtime.TypeName(v))
		}
		fn.Defaults = t
	}
	fr.push(fn)
	return nil
}

func (i *Interpreter) raise(ctx context.Context, fr *frame, n int) error {
	vals, err := fr.popN(n)
	if err != nil {
		return err
	}
	if n == 0 {
		return runtime.NewException(runtime.RuntimeErrorClass, "No active exception to reraise")
	}
	exc, err := i.exceptionFrom(ctx, vals[0])
	if err != nil {
		return err
	}
	if n == 2 && vals[1] != runtime.None {
		cause, err := i.exceptionFrom(ctx, vals[1])
		if err != nil {
			return typeError("exception causes must derive from BaseException")
		}
		exc.Cause = cause
	}
	return exc
}

// exceptionFrom accepts an exception instance or class, instantiating the
// latter.
func (i *Interpreter) exceptionFrom(ctx context.Context, v runtime.Value) (*runtime.Exception, error) {
	if cls, ok := v.(*runtime.Class); ok && cls.IsSubclass(runtime.BaseExceptionClass) {
		inst, err := runtime.Call(ctx, cls, nil, nil)
		if err != nil {
			return nil, err
		}
		v = inst
	}
	if exc, ok := v.(*runtime.Exception); ok {
		return exc, nil
	}
	return nil, typeError("exceptions must derive from BaseException")
}

func unpack(fr *frame, n int) error {
	v, err := fr.pop()
	if err != nil {
		return err
	}
	items, err := sequence(v)
	if err != nil {
		if isException(err, runtime.TypeErrorClass) {
			return typeError("cannot unpack non-iterable %s object", runtime.TypeName(v))
		}
		return err
	}
	switch {
	case len(items) < n:
		return valueError("not enough values to unpack (expected %d, got %d)", n, len(items))
	case len(items) > n:
		return valueError("too many values to unpack (expected %d)", n)
	}
	for k := len(items) - 1; k >= 0; k-- {
		fr.push(items[k])
	}
	return nil
}

func (i *Interpreter) importStar(fr *frame, v runtime.Value) error {
	m, ok := v.(*runtime.Module)
	if !ok {
		return typeError("import * from a non-module")
	}
	attrs, err := m.Dict.Attributes()
	if err != nil {
		return err
	}
	scope := i.scopeFor(fr, true)
	for _, kw := range attrs {
		if strings.HasPrefix(kw.Name, "_") {
			continue
		}
		if err := scope.SetStr(kw.Name, kw.Value); err != nil {
			return err
		}
	}
	return nil
}

func moduleName(v runtime.Value) string {
	if m, ok := v.(*runtime.Module); ok {
		return m.Name
	}
	return runtime.TypeName(v)
}
