package runtime

import (
	"fmt"
	"strings"

	"serpent/interpreter-go/pkg/ast"
)

// ReprContext tracks the containers currently being displayed so that a
// value reachable from itself prints a placeholder instead of recursing.
type ReprContext struct {
	active map[Value]struct{}
}

func NewReprContext() *ReprContext {
	return &ReprContext{active: make(map[Value]struct{})}
}

// Enter marks v as in progress. It returns false when v is already being
// displayed further up the stack.
func (rc *ReprContext) Enter(v Value) bool {
	if _, ok := rc.active[v]; ok {
		return false
	}
	rc.active[v] = struct{}{}
	return true
}

func (rc *ReprContext) Leave(v Value) {
	delete(rc.active, v)
}

// Repr renders v the way repr() does.
func Repr(v Value) string {
	return NewReprContext().Repr(v)
}

func (rc *ReprContext) Repr(v Value) string {
	switch x := v.(type) {
	case nil, NoneType:
		return "None"
	case EllipsisType:
		return "Ellipsis"
	case Bool:
		return ast.ConstBool(x).String()
	case Int:
		return x.Big().String()
	case Float:
		return ast.FormatFloat(float64(x))
	case Complex:
		return ast.ConstComplex{Real: x.Real, Imag: x.Imag}.String()
	case Str:
		return ast.ConstStr(x).String()
	case Bytes:
		return ast.ConstBytes(x).String()
	case Tuple:
		parts := rc.reprAll(x)
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *List:
		if !rc.Enter(x) {
			return "[...]"
		}
		defer rc.Leave(x)
		return "[" + strings.Join(rc.reprAll(x.Snapshot()), ", ") + "]"
	case *Dict:
		if !rc.Enter(x) {
			return "{...}"
		}
		defer rc.Leave(x)
		items, err := x.Items()
		if err != nil {
			return "<dict in use>"
		}
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = rc.Repr(it.Key) + ": " + rc.Repr(it.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Object:
		return rc.reprObject(x)
	case *Class:
		return fmt.Sprintf("<class '%s'>", x.QualName())
	case *Module:
		return fmt.Sprintf("<module '%s'>", x.Name)
	case *NativeFunction:
		return fmt.Sprintf("<built-in function %s>", x.Name)
	case *Exception:
		return x.class.Name + "(" + strings.Join(rc.reprAll(x.Args), ", ") + ")"
	case Reprer:
		return x.Repr()
	}
	return fmt.Sprintf("<%s object>", TypeName(v))
}

func (rc *ReprContext) reprAll(values []Value) []string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = rc.Repr(v)
	}
	return parts
}

// reprObject prints Name(attr=value, ...) over the instance attributes in
// insertion order.
func (rc *ReprContext) reprObject(o *Object) string {
	name := o.class.Name
	if !rc.Enter(o) {
		return name + "(...)"
	}
	defer rc.Leave(o)
	attrs, err := o.Dict.Attributes()
	if err != nil {
		return name + "(<in use>)"
	}
	parts := make([]string, len(attrs))
	for i, kw := range attrs {
		parts[i] = kw.Name + "=" + rc.Repr(kw.Value)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// ToStr implements str(v).
func ToStr(v Value) string {
	switch x := v.(type) {
	case Str:
		return string(x)
	case *Exception:
		return x.Message
	}
	return Repr(v)
}
