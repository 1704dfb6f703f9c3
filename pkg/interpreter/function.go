package interpreter

import (
	"fmt"
	"strings"

	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/runtime"
)

// bind lays out call arguments in the fast slots: positional parameters,
// then *args, then keyword-only parameters, then **kwargs.
func (f *Function) bind(args []runtime.Value, kwargs []runtime.KeywordArg) ([]runtime.Value, error) {
	co := f.Code
	fast := make([]runtime.Value, len(co.VarNames))
	nPos := co.ArgCount
	hasVarArgs := co.Flags&compiler.FlagVarArgs != 0
	hasVarKw := co.Flags&compiler.FlagVarKeywords != 0

	for n := 0; n < len(args) && n < nPos; n++ {
		fast[n] = args[n]
	}
	kwStart := nPos
	if hasVarArgs {
		var extra runtime.Tuple
		if len(args) > nPos {
			extra = append(extra, args[nPos:]...)
		} else {
			extra = runtime.Tuple{}
		}
		fast[nPos] = extra
		kwStart++
	} else if len(args) > nPos {
		takes := fmt.Sprint(nPos)
		if required := nPos - len(f.Defaults); required < nPos {
			takes = fmt.Sprintf("from %d to %d", required, nPos)
		}
		return nil, typeError("%s() takes %s positional argument%s but %d %s given",
			co.Name, takes, plural(nPos), len(args), wasWere(len(args)))
	}

	var extraKw *runtime.Dict
	if hasVarKw {
		extraKw = runtime.NewDict()
		fast[kwStart+co.KwOnlyCount] = extraKw
	}
	for _, kw := range kwargs {
		slot := -1
		for n := co.PosOnlyCount; n < nPos; n++ {
			if co.VarNames[n] == kw.Name {
				slot = n
			}
		}
		for n := kwStart; n < kwStart+co.KwOnlyCount; n++ {
			if co.VarNames[n] == kw.Name {
				slot = n
			}
		}
		switch {
		case slot >= 0:
			if fast[slot] != nil {
				return nil, typeError("%s() got multiple values for argument '%s'", co.Name, kw.Name)
			}
			fast[slot] = kw.Value
		case extraKw != nil:
			if err := extraKw.SetStr(kw.Name, kw.Value); err != nil {
				return nil, err
			}
		case indexOf(co.VarNames[:co.PosOnlyCount], kw.Name) >= 0:
			return nil, typeError("%s() got some positional-only arguments passed as keyword arguments: '%s'",
				co.Name, kw.Name)
		default:
			return nil, typeError("%s() got an unexpected keyword argument '%s'", co.Name, kw.Name)
		}
	}

	var missing []string
	firstDefault := nPos - len(f.Defaults)
	for n := 0; n < nPos; n++ {
		if fast[n] != nil {
			continue
		}
		if n >= firstDefault {
			fast[n] = f.Defaults[n-firstDefault]
			continue
		}
		missing = append(missing, co.VarNames[n])
	}
	if len(missing) > 0 {
		return nil, typeError("%s() missing %d required positional argument%s: %s",
			co.Name, len(missing), plural(len(missing)), quoteList(missing))
	}
	for n := kwStart; n < kwStart+co.KwOnlyCount; n++ {
		if fast[n] != nil {
			continue
		}
		if f.KwDefaults != nil {
			v, ok, err := f.KwDefaults.GetStr(co.VarNames[n])
			if err != nil {
				return nil, err
			}
			if ok {
				fast[n] = v
				continue
			}
		}
		missing = append(missing, co.VarNames[n])
	}
	if len(missing) > 0 {
		return nil, typeError("%s() missing %d required keyword-only argument%s: %s",
			co.Name, len(missing), plural(len(missing)), quoteList(missing))
	}
	return fast, nil
}

func indexOf(names []string, name string) int {
	for n, s := range names {
		if s == name {
			return n
		}
	}
	return -1
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func wasWere(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}

// quoteList renders 'a', 'a' and 'b', or 'a', 'b' and 'c'.
func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for n, s := range names {
		quoted[n] = "'" + s + "'"
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	last := len(quoted) - 1
	return strings.Join(quoted[:last], ", ") + " and " + quoted[last]
}
