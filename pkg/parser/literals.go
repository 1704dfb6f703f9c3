package parser

import (
	"errors"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"serpent/interpreter-go/pkg/ast"
)

func (ctx *parseContext) parseNumber(node *sitter.Node) (ast.Expr, error) {
	text := ctx.text(node)
	value, err := numberLiteral(text, node.Kind() == "float")
	if err != nil {
		return nil, errorAt(node, "%s", err.Error())
	}
	return &ast.Constant{Located: at(node), Value: value}, nil
}

func numberLiteral(text string, isFloat bool) (ast.ConstantValue, error) {
	last := text[len(text)-1]
	switch last {
	case 'j', 'J':
		imag, err := floatLiteral(text[:len(text)-1])
		if err != nil {
			return nil, err
		}
		return ast.ConstComplex{Imag: imag}, nil
	case 'l', 'L':
		return nil, errors.New("long integer suffix is not supported")
	}
	if isFloat {
		f, err := floatLiteral(text)
		if err != nil {
			return nil, err
		}
		return ast.ConstFloat(f), nil
	}
	return intLiteral(text)
}

func intLiteral(text string) (ast.ConstantValue, error) {
	if len(text) > 1 && text[0] == '0' && (text[1] == '_' || (text[1] >= '0' && text[1] <= '9')) {
		if strings.Trim(text, "0_") != "" {
			return nil, errors.New("leading zeros in decimal integer literals are not permitted")
		}
		return ast.Int(0), nil
	}
	n, ok := new(big.Int).SetString(text, 0)
	if !ok {
		return nil, errors.New("invalid integer literal " + strconv.Quote(text))
	}
	return ast.ConstInt{Value: n}, nil
}

func floatLiteral(text string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, errors.New("invalid float literal " + strconv.Quote(text))
	}
	return f, nil
}

// stringPrefix holds the flags spelled before the opening quote.
type stringPrefix struct {
	raw     bool
	bytes   bool
	format  bool
	unicode bool
}

func parsePrefix(start string) stringPrefix {
	var p stringPrefix
	for _, r := range strings.ToLower(strings.TrimRight(start, `"'`)) {
		switch r {
		case 'r':
			p.raw = true
		case 'b':
			p.bytes = true
		case 'f':
			p.format = true
		case 'u':
			p.unicode = true
		}
	}
	return p
}

// stringPiece is one converted segment of a string node: literal text or a
// formatted value.
type stringPiece struct {
	text  string
	value *ast.FormattedValue
}

// parsedString is a single string node after escape processing.
type parsedString struct {
	node   *sitter.Node
	prefix stringPrefix
	pieces []stringPiece
}

func (ctx *parseContext) parseString(node *sitter.Node) (ast.Expr, error) {
	s, err := ctx.stringNode(node)
	if err != nil {
		return nil, err
	}
	return ctx.joinStrings(node, []*parsedString{s})
}

func (ctx *parseContext) parseConcatenated(node *sitter.Node) (ast.Expr, error) {
	var parts []*parsedString
	for _, child := range namedChildren(node) {
		if child.Kind() != "string" {
			return nil, unsupported(child)
		}
		s, err := ctx.stringNode(child)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return nil, errorAt(node, "empty string concatenation")
	}
	return ctx.joinStrings(node, parts)
}

// joinStrings folds adjacent string nodes into one constant, or into a
// JoinedStr when any of them is formatted.
func (ctx *parseContext) joinStrings(node *sitter.Node, parts []*parsedString) (ast.Expr, error) {
	isBytes := parts[0].prefix.bytes
	formatted := false
	for _, p := range parts {
		if p.prefix.bytes != isBytes {
			return nil, errorAt(p.node, "cannot mix bytes and nonbytes literals")
		}
		formatted = formatted || p.prefix.format
	}
	var kind *string
	if parts[0].prefix.unicode {
		kind = ast.Str("u")
	}

	if !formatted {
		var sb strings.Builder
		for _, p := range parts {
			for _, piece := range p.pieces {
				sb.WriteString(piece.text)
			}
		}
		if isBytes {
			return &ast.Constant{Located: at(node), Value: ast.ConstBytes(sb.String())}, nil
		}
		return &ast.Constant{Located: at(node), Value: ast.ConstStr(sb.String()), Kind: kind}, nil
	}

	var pieces []stringPiece
	for _, p := range parts {
		pieces = append(pieces, p.pieces...)
	}
	return &ast.JoinedStr{Located: at(node), Values: mergePieces(node, pieces, kind)}, nil
}

// mergePieces collapses runs of literal text into single constants and
// drops empty literals.
func mergePieces(node *sitter.Node, pieces []stringPiece, kind *string) []ast.Expr {
	values := []ast.Expr{}
	var pending strings.Builder
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		values = append(values, &ast.Constant{Located: at(node), Value: ast.ConstStr(pending.String()), Kind: kind})
		pending.Reset()
	}
	for _, piece := range pieces {
		if piece.value == nil {
			pending.WriteString(piece.text)
			continue
		}
		flush()
		values = append(values, piece.value)
	}
	flush()
	return values
}

func (ctx *parseContext) stringNode(node *sitter.Node) (*parsedString, error) {
	var start, end *sitter.Node
	var interpolations []*sitter.Node
	for _, child := range namedChildren(node) {
		switch child.Kind() {
		case "string_start":
			start = child
		case "string_end":
			end = child
		case "interpolation":
			interpolations = append(interpolations, child)
		}
	}
	if start == nil || end == nil {
		return nil, errorAt(node, "unterminated string literal")
	}
	s := &parsedString{node: node, prefix: parsePrefix(ctx.text(start))}
	if len(interpolations) > 0 && !s.prefix.format {
		return nil, errorAt(node, "interpolation in a plain string literal")
	}
	pieces, err := ctx.stringPieces(s.prefix, start.EndByte(), end.StartByte(), interpolations)
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	s.pieces = pieces
	return s, nil
}

// stringPieces decodes the source between from and to, splitting it at the
// given interpolation nodes.
func (ctx *parseContext) stringPieces(prefix stringPrefix, from, to uint, interpolations []*sitter.Node) ([]stringPiece, error) {
	var pieces []stringPiece
	literal := func(lo, hi uint) error {
		raw := sliceRange(ctx.source, lo, hi)
		if raw == "" {
			return nil
		}
		if prefix.format {
			raw = strings.ReplaceAll(strings.ReplaceAll(raw, "{{", "{"), "}}", "}")
		}
		text, err := decodeLiteral(raw, prefix)
		if err != nil {
			return err
		}
		pieces = append(pieces, stringPiece{text: text})
		return nil
	}
	pos := from
	for _, interp := range interpolations {
		if err := literal(pos, interp.StartByte()); err != nil {
			return nil, err
		}
		debug, value, err := ctx.parseInterpolation(interp)
		if err != nil {
			return nil, err
		}
		if debug != "" {
			pieces = append(pieces, stringPiece{text: debug})
		}
		pieces = append(pieces, stringPiece{value: value})
		pos = interp.EndByte()
	}
	if err := literal(pos, to); err != nil {
		return nil, err
	}
	return pieces, nil
}

// parseInterpolation converts one {expr!c:spec} replacement field. For the
// self-documenting {expr=} form it also returns the literal text to emit
// before the value.
func (ctx *parseContext) parseInterpolation(node *sitter.Node) (string, *ast.FormattedValue, error) {
	if err := ctx.enter(node); err != nil {
		return "", nil, err
	}
	defer ctx.leave()
	exprNode := node.ChildByFieldName("expression")
	value, err := ctx.parseExpr(exprNode)
	if err != nil {
		return "", nil, err
	}
	fv := &ast.FormattedValue{Located: at(node), Value: value}

	conversion := node.ChildByFieldName("type_conversion")
	if conversion != nil {
		text := ctx.text(conversion)
		flag, ok := ast.ConversionFlag(0), false
		if len(text) == 2 {
			flag, ok = ast.ConversionFlagFromByte(text[1])
		}
		if !ok {
			return "", nil, errorAt(conversion, "f-string: invalid conversion character %q", strings.TrimPrefix(text, "!"))
		}
		fv.Conversion = &flag
	}

	spec := node.ChildByFieldName("format_specifier")
	if spec != nil {
		// The specifier is a JoinedStr of its own.
		if err := ctx.enter(spec); err != nil {
			return "", nil, err
		}
		defer ctx.leave()
		var nested []*sitter.Node
		for _, child := range namedChildren(spec) {
			if child.Kind() == "format_expression" || child.Kind() == "interpolation" {
				nested = append(nested, child)
			}
		}
		// The specifier node starts at its ':'.
		pieces, err := ctx.stringPieces(stringPrefix{format: true, raw: true}, spec.StartByte()+1, spec.EndByte(), nested)
		if err != nil {
			return "", nil, err
		}
		fv.FormatSpec = &ast.JoinedStr{Located: at(node), Values: mergePieces(node, pieces, nil)}
	}

	debug := ""
	if hasToken(node, "=") {
		stop := node.EndByte() - 1
		switch {
		case conversion != nil:
			stop = conversion.StartByte()
		case spec != nil:
			stop = spec.StartByte()
		}
		debug = sliceRange(ctx.source, node.StartByte()+1, stop)
		if conversion == nil && spec == nil {
			repr := ast.ConversionRepr
			fv.Conversion = &repr
		}
	}
	return debug, fv, nil
}

// decodeLiteral applies backslash escapes to the body of a string literal.
// Unknown escapes are kept verbatim.
func decodeLiteral(raw string, prefix stringPrefix) (string, error) {
	if prefix.bytes {
		for i := 0; i < len(raw); i++ {
			if raw[i] >= utf8.RuneSelf {
				return "", errors.New("bytes can only contain ASCII literal characters")
			}
		}
	}
	if prefix.raw || !strings.Contains(raw, `\`) {
		return raw, nil
	}

	var sb strings.Builder
	sb.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 == len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch e := raw[i]; e {
		case '\n':
		case '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			sb.WriteByte(e)
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'v':
			sb.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(raw) && j < i+3 && raw[j] >= '0' && raw[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(raw[i:j], 8, 16)
			writeCode(&sb, rune(v), prefix.bytes)
			i = j - 1
		case 'x':
			v, err := hexEscape(raw, i+1, 2)
			if err != nil {
				return "", err
			}
			writeCode(&sb, v, prefix.bytes)
			i += 2
		case 'u', 'U':
			if prefix.bytes {
				sb.WriteByte('\\')
				sb.WriteByte(e)
				continue
			}
			width := 4
			if e == 'U' {
				width = 8
			}
			v, err := hexEscape(raw, i+1, width)
			if err != nil {
				return "", err
			}
			if v > utf8.MaxRune {
				return "", errors.New("illegal Unicode character")
			}
			sb.WriteRune(v)
			i += width
		case 'N':
			if prefix.bytes {
				sb.WriteString(`\N`)
				continue
			}
			return "", errors.New(`\N{...} escapes are not supported`)
		default:
			sb.WriteByte('\\')
			sb.WriteByte(e)
		}
	}
	return sb.String(), nil
}

func hexEscape(raw string, at, width int) (rune, error) {
	if at+width > len(raw) {
		return 0, errors.New("truncated escape sequence")
	}
	v, err := strconv.ParseUint(raw[at:at+width], 16, 32)
	if err != nil {
		return 0, errors.New("invalid escape sequence \\" + raw[at-1:at+width])
	}
	return rune(v), nil
}

// writeCode writes an octal or hex escape: a raw byte in bytes literals and
// a code point otherwise.
func writeCode(sb *strings.Builder, v rune, isBytes bool) {
	if isBytes {
		sb.WriteByte(byte(v))
		return
	}
	sb.WriteRune(v)
}
