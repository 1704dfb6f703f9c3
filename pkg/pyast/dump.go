package pyast

import (
	"strings"

	"serpent/interpreter-go/pkg/runtime"
)

// Dump formats an object tree like ast.dump: node objects print as
// Kind(field=value, ...) in _fields order, lists element-wise, anything
// else by repr. Missing fields are skipped. A node reachable from itself
// prints as Kind(...).
func Dump(v runtime.Value, includeAttributes bool) string {
	d := dumper{attrs: includeAttributes, rc: runtime.NewReprContext()}
	var b strings.Builder
	d.write(&b, v)
	return b.String()
}

type dumper struct {
	attrs bool
	rc    *runtime.ReprContext
}

func (d dumper) write(b *strings.Builder, v runtime.Value) {
	switch x := v.(type) {
	case *runtime.List:
		if !d.rc.Enter(x) {
			b.WriteString("[...]")
			return
		}
		defer d.rc.Leave(x)
		b.WriteByte('[')
		for i, elt := range x.Snapshot() {
			if i > 0 {
				b.WriteString(", ")
			}
			d.write(b, elt)
		}
		b.WriteByte(']')
	case *runtime.Object:
		cls := x.Class()
		fields, attributes := nodeLayout(cls)
		if fields == nil {
			b.WriteString(d.rc.Repr(x))
			return
		}
		if !d.rc.Enter(x) {
			b.WriteString(cls.Name + "(...)")
			return
		}
		defer d.rc.Leave(x)
		b.WriteString(cls.Name)
		b.WriteByte('(')
		names := fields
		if d.attrs {
			names = append(append([]string(nil), fields...), attributes...)
		}
		first := true
		for _, name := range names {
			val, ok, err := x.Dict.GetStr(name)
			if err != nil || !ok {
				continue
			}
			if !first {
				b.WriteString(", ")
			}
			first = false
			b.WriteString(name)
			b.WriteByte('=')
			d.write(b, val)
		}
		b.WriteByte(')')
	default:
		b.WriteString(d.rc.Repr(v))
	}
}

// nodeLayout finds the nearest _fields/_attributes along the class chain.
// Non-node classes report nil fields.
func nodeLayout(cls *runtime.Class) (fields, attributes []string) {
	for cur := cls; cur != nil; cur = cur.Base {
		if cur.Module == ModuleName {
			if fields == nil && cur.Fields != nil {
				fields = cur.Fields
			}
			if attributes == nil && cur.Attributes != nil {
				attributes = cur.Attributes
			}
		}
	}
	if fields == nil && isASTClass(cls) {
		fields = []string{}
	}
	return fields, attributes
}

func isASTClass(cls *runtime.Class) bool {
	for cur := cls; cur != nil; cur = cur.Base {
		if cur.Name == "AST" && cur.Module == ModuleName {
			return true
		}
	}
	return false
}
