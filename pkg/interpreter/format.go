package interpreter

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/runtime"
)

// formatSpec is a parsed [[fill]align][sign][#][0][width][grouping][.precision][type].
type formatSpec struct {
	fill      rune
	align     byte
	sign      byte
	alt       bool
	width     int
	grouping  byte
	precision int
	typ       byte
}

func parseFormatSpec(spec string) (formatSpec, error) {
	fs := formatSpec{fill: ' ', precision: -1}
	rest := spec
	isAlign := func(b byte) bool { return strings.IndexByte("<>=^", b) >= 0 }
	if r, size := utf8.DecodeRuneInString(rest); size > 0 && size < len(rest) && isAlign(rest[size]) {
		fs.fill, fs.align = r, rest[size]
		rest = rest[size+1:]
	} else if rest != "" && isAlign(rest[0]) {
		fs.align = rest[0]
		rest = rest[1:]
	}
	if rest != "" && strings.IndexByte("+- ", rest[0]) >= 0 {
		fs.sign = rest[0]
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, "#") {
		fs.alt = true
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, "0") {
		if fs.align == 0 {
			fs.fill, fs.align = '0', '='
		}
		rest = rest[1:]
	}
	digits := func() (int, bool) {
		n := 0
		for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
			n++
		}
		if n == 0 {
			return 0, false
		}
		v, err := strconv.Atoi(rest[:n])
		rest = rest[n:]
		return v, err == nil
	}
	if w, ok := digits(); ok {
		fs.width = w
	}
	if rest != "" && (rest[0] == ',' || rest[0] == '_') {
		fs.grouping = rest[0]
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, ".") {
		rest = rest[1:]
		p, ok := digits()
		if !ok {
			return fs, valueError("Format specifier missing precision")
		}
		fs.precision = p
	}
	if len(rest) > 1 {
		return fs, valueError("Invalid format specifier '%s'", spec)
	}
	if rest != "" {
		fs.typ = rest[0]
	}
	return fs, nil
}

// formatWith implements format(v, spec).
func formatWith(v runtime.Value, spec string) (string, error) {
	if spec == "" {
		return runtime.ToStr(v), nil
	}
	fs, err := parseFormatSpec(spec)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case runtime.Str:
		return formatStr(string(x), fs)
	case runtime.Int, runtime.Bool:
		n, _ := runtime.IntValue(x)
		return formatInt(n, fs, runtime.TypeName(v))
	case runtime.Float:
		return formatFloat(float64(x), fs)
	case runtime.Complex:
		if fs.typ != 0 {
			return "", unknownFormatCode(fs.typ, v)
		}
		return pad(runtime.Repr(v), fs, '>'), nil
	}
	return "", typeError("unsupported format string passed to %s.__format__", runtime.TypeName(v))
}

func unknownFormatCode(code byte, v runtime.Value) error {
	return valueError("Unknown format code '%c' for object of type '%s'", code, runtime.TypeName(v))
}

func formatStr(s string, fs formatSpec) (string, error) {
	if fs.typ != 0 && fs.typ != 's' {
		return "", unknownFormatCode(fs.typ, runtime.Str(s))
	}
	if fs.sign != 0 {
		return "", valueError("Sign not allowed in string format specifier")
	}
	if fs.align == '=' {
		return "", valueError("'=' alignment not allowed in string format specifier")
	}
	if fs.precision >= 0 {
		if runes := []rune(s); len(runes) > fs.precision {
			s = string(runes[:fs.precision])
		}
	}
	return pad(s, fs, '<'), nil
}

func formatInt(n *big.Int, fs formatSpec, typeName string) (string, error) {
	switch fs.typ {
	case 'e', 'E', 'f', 'F', 'g', 'G', '%':
		f, _ := new(big.Float).SetInt(n).Float64()
		return formatFloat(f, fs)
	}
	if fs.precision >= 0 {
		return "", valueError("Precision not allowed in integer format specifier")
	}
	base, prefix, groupEvery := 10, "", 3
	switch fs.typ {
	case 0, 'd', 'n':
	case 'b':
		base, prefix, groupEvery = 2, "0b", 4
	case 'o':
		base, prefix, groupEvery = 8, "0o", 4
	case 'x', 'X':
		base, prefix, groupEvery = 16, "0x", 4
	case 'c':
		if !n.IsInt64() || n.Int64() < 0 || n.Int64() > utf8.MaxRune {
			return "", overflow("%c arg not in range(0x110000)")
		}
		return pad(string(rune(n.Int64())), fs, '<'), nil
	default:
		return "", valueError("Unknown format code '%c' for object of type '%s'", fs.typ, typeName)
	}
	if fs.grouping == ',' && base != 10 {
		return "", valueError("Cannot specify ',' with '%c'.", fs.typ)
	}
	digits := new(big.Int).Abs(n).Text(base)
	if fs.typ == 'X' {
		digits = strings.ToUpper(digits)
		prefix = "0X"
	}
	if fs.grouping != 0 {
		digits = group(digits, groupEvery, fs.grouping)
	}
	if !fs.alt {
		prefix = ""
	}
	return padNumber(signOf(n.Sign() < 0, fs.sign), prefix+digits, fs), nil
}

func formatFloat(f float64, fs formatSpec) (string, error) {
	neg := math.Signbit(f) && !math.IsNaN(f)
	abs := math.Abs(f)
	prec := fs.precision
	var body string
	switch fs.typ {
	case 0:
		if prec < 0 {
			body = ast.FormatFloat(abs)
		} else {
			body = strconv.FormatFloat(abs, 'g', max(prec, 1), 64)
		}
	case 'f', 'F', '%':
		if prec < 0 {
			prec = 6
		}
		if fs.typ == '%' {
			abs *= 100
		}
		body = strconv.FormatFloat(abs, 'f', prec, 64)
		if fs.typ == '%' {
			body += "%"
		}
	case 'e', 'E':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(abs, 'e', prec, 64)
	case 'g', 'G', 'n':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(abs, 'g', max(prec, 1), 64)
	default:
		return "", unknownFormatCode(fs.typ, runtime.Float(f))
	}
	switch {
	case math.IsInf(abs, 0):
		body = "inf"
	case math.IsNaN(abs):
		body = "nan"
	}
	if fs.typ == 'F' || fs.typ == 'E' || fs.typ == 'G' {
		body = strings.ToUpper(body)
	}
	if fs.grouping != 0 {
		intPart, frac, _ := strings.Cut(body, ".")
		if frac != "" || strings.Contains(body, ".") {
			frac = "." + frac
		}
		if strings.IndexFunc(intPart, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
			body = group(intPart, 3, fs.grouping) + frac
		}
	}
	return padNumber(signOf(neg, fs.sign), body, fs), nil
}

func signOf(neg bool, mode byte) string {
	switch {
	case neg:
		return "-"
	case mode == '+':
		return "+"
	case mode == ' ':
		return " "
	}
	return ""
}

// group inserts sep every n digits from the right.
func group(digits string, n int, sep byte) string {
	if len(digits) <= n {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % n
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for k := lead; k < len(digits); k += n {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(digits[k : k+n])
	}
	return b.String()
}

func padNumber(sign, body string, fs formatSpec) string {
	if fs.align == '=' {
		fill := fs.width - utf8.RuneCountInString(sign) - utf8.RuneCountInString(body)
		if fill > 0 {
			return sign + strings.Repeat(string(fs.fill), fill) + body
		}
		return sign + body
	}
	return pad(sign+body, fs, '>')
}

func pad(s string, fs formatSpec, defaultAlign byte) string {
	fill := fs.width - utf8.RuneCountInString(s)
	if fill <= 0 {
		return s
	}
	align := fs.align
	if align == 0 || align == '=' {
		align = defaultAlign
	}
	f := string(fs.fill)
	switch align {
	case '<':
		return s + strings.Repeat(f, fill)
	case '^':
		left := fill / 2
		return strings.Repeat(f, left) + s + strings.Repeat(f, fill-left)
	default:
		return strings.Repeat(f, fill) + s
	}
}

// asciiRepr is repr(v) with non-ASCII characters escaped.
func asciiRepr(v runtime.Value) string {
	s := runtime.Repr(v)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case r <= 0xFF:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r <= 0xFFFF:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			fmt.Fprintf(&b, `\U%08x`, r)
		}
	}
	return b.String()
}

func convert(v runtime.Value, conv byte) runtime.Value {
	switch conv {
	case compiler.FormatConvStr:
		return runtime.Str(runtime.ToStr(v))
	case compiler.FormatConvRepr:
		return runtime.Str(runtime.Repr(v))
	case compiler.FormatConvAscii:
		return runtime.Str(asciiRepr(v))
	}
	return v
}

// formatValue executes FORMAT_VALUE.
func formatValue(fr *frame, flags byte) error {
	spec := ""
	if flags&compiler.FormatHasSpec != 0 {
		v, err := fr.pop()
		if err != nil {
			return err
		}
		s, ok := v.(runtime.Str)
		if !ok {
			return typeError("format spec must be str, not %s", runtime.TypeName(v))
		}
		spec = string(s)
	}
	v, err := fr.pop()
	if err != nil {
		return err
	}
	out, err := formatWith(convert(v, flags&compiler.FormatConvMask), spec)
	if err != nil {
		return err
	}
	fr.push(runtime.Str(out))
	return nil
}

// strFormat implements str.format with positional and named fields.
func strFormat(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	tmpl := string(self.(runtime.Str))
	var b strings.Builder
	auto, manual := 0, false
	for k := 0; k < len(tmpl); k++ {
		c := tmpl[k]
		switch {
		case c == '{' && k+1 < len(tmpl) && tmpl[k+1] == '{':
			b.WriteByte('{')
			k++
		case c == '}' && k+1 < len(tmpl) && tmpl[k+1] == '}':
			b.WriteByte('}')
			k++
		case c == '}':
			return nil, valueError("Single '}' encountered in format string")
		case c == '{':
			end := strings.IndexByte(tmpl[k:], '}')
			if end < 0 {
				return nil, valueError("Single '{' encountered in format string")
			}
			field := tmpl[k+1 : k+end]
			k += end
			name, spec, _ := strings.Cut(field, ":")
			name, conv, hasConv := strings.Cut(name, "!")
			var v runtime.Value
			switch {
			case name == "":
				if manual {
					return nil, valueError("cannot switch from manual field specification to automatic field numbering")
				}
				if auto >= len(args) {
					return nil, indexError("Replacement index %d out of range for positional args tuple", auto)
				}
				v = args[auto]
				auto++
			case name[0] >= '0' && name[0] <= '9':
				if auto > 0 {
					return nil, valueError("cannot switch from automatic field numbering to manual field specification")
				}
				manual = true
				idx, err := strconv.Atoi(name)
				if err != nil || idx >= len(args) {
					return nil, indexError("Replacement index %s out of range for positional args tuple", name)
				}
				v = args[idx]
			default:
				found := false
				for _, kw := range kwargs {
					if kw.Name == name {
						v, found = kw.Value, true
					}
				}
				if !found {
					return nil, keyError(runtime.Str(name))
				}
			}
			if hasConv {
				switch conv {
				case "s":
					v = convert(v, compiler.FormatConvStr)
				case "r":
					v = convert(v, compiler.FormatConvRepr)
				case "a":
					v = convert(v, compiler.FormatConvAscii)
				default:
					return nil, valueError("Unknown conversion specifier %s", conv)
				}
			}
			out, err := formatWith(v, spec)
			if err != nil {
				return nil, err
			}
			b.WriteString(out)
		default:
			b.WriteByte(c)
		}
	}
	return runtime.Str(b.String()), nil
}
