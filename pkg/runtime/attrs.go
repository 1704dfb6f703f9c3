package runtime

func attributeError(v Value, name string) *Exception {
	return NewException(AttributeErrorClass, "'%s' object has no attribute '%s'", TypeName(v), name)
}

func stringTuple(names []string) Tuple {
	out := make(Tuple, len(names))
	for i, n := range names {
		out[i] = Str(n)
	}
	return out
}

// GetAttr resolves name on v: instance attributes first, then the class
// chain.
func GetAttr(v Value, name string) (Value, error) {
	switch x := v.(type) {
	case *Object:
		if name == "__class__" {
			return x.class, nil
		}
		if got, ok, err := x.Dict.GetStr(name); err != nil || ok {
			return got, err
		}
		if got, ok, err := x.class.Lookup(name); err != nil || ok {
			return got, err
		}
		if name == "__dict__" && x.class.HasDict {
			return x.Dict, nil
		}
	case *Module:
		if name == "__name__" {
			return Str(x.Name), nil
		}
		if got, ok, err := x.Dict.GetStr(name); err != nil || ok {
			return got, err
		}
	case *Class:
		switch name {
		case "__name__":
			return Str(x.Name), nil
		case "__module__":
			return Str(x.Module), nil
		case "__base__":
			if x.Base == nil {
				return None, nil
			}
			return x.Base, nil
		}
		if got, ok, err := x.Lookup(name); err != nil || ok {
			return got, err
		}
		// Node classes inherit empty tuples from their abstract bases.
		switch name {
		case "_fields":
			if x.Fields != nil || x.Module == "_ast" {
				return stringTuple(x.Fields), nil
			}
		case "_attributes":
			if x.Attributes != nil || x.Module == "_ast" {
				return stringTuple(x.Attributes), nil
			}
		}
	case *Exception:
		if name == "args" {
			return Tuple(x.Args), nil
		}
	case Complex:
		switch name {
		case "real":
			return Float(x.Real), nil
		case "imag":
			return Float(x.Imag), nil
		}
	case *NativeFunction:
		if name == "__name__" {
			return Str(x.Name), nil
		}
	}
	if name == "__class__" && v != nil {
		return v.Class(), nil
	}
	return nil, attributeError(v, name)
}

// HasAttr reports whether GetAttr would succeed. Errors other than a
// missing attribute are returned.
func HasAttr(v Value, name string) (bool, error) {
	_, err := GetAttr(v, name)
	if err == nil {
		return true, nil
	}
	if exc, ok := err.(*Exception); ok && exc.class == AttributeErrorClass {
		return false, nil
	}
	return false, err
}

func SetAttr(v Value, name string, value Value) error {
	switch x := v.(type) {
	case *Object:
		if !x.class.HasDict {
			break
		}
		return x.Dict.SetStr(name, value)
	case *Module:
		return x.Dict.SetStr(name, value)
	case *Class:
		return x.Dict.SetStr(name, value)
	}
	return attributeError(v, name)
}

func DelAttr(v Value, name string) error {
	var d *Dict
	switch x := v.(type) {
	case *Object:
		d = x.Dict
	case *Module:
		d = x.Dict
	case *Class:
		d = x.Dict
	default:
		return attributeError(v, name)
	}
	ok, err := d.Delete(Str(name))
	if err != nil {
		return err
	}
	if !ok {
		return attributeError(v, name)
	}
	return nil
}
