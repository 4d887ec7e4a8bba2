package zxcore

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Conditional breakpoint expression evaluator. Grammar and precedence
// ported verbatim from the doc comment atop
// original_source/src/core/debug/condition_evaluator.cpp (the parser
// body itself was filtered out of the retrieved source, so the
// recursive-descent implementation below is authored fresh against
// that grammar):
//
//	expr     = or_expr
//	or_expr  = and_expr ( "||" and_expr )*
//	and_expr = cmp_expr ( "&&" cmp_expr )*
//	cmp_expr = add_expr ( ("==" | "!=" | "<=" | ">=" | "<" | ">") add_expr )?
//	add_expr = mul_expr ( ("+" | "-") mul_expr )*
//	mul_expr = unary   ( "*" unary )*
//	unary    = "!" unary | atom
//	atom     = number | hex | string | register | flag | PEEK(...) | DEEK(...) | "(" expr ")"
//
// BV(...)/BA(...) BASIC-variable inspection is not carried: this
// module has no Sinclair BASIC program-area model to read them from,
// and nothing else in the corpus supplies one.
type evalValue struct {
	isString bool
	num      int32
	str      string
}

func intVal(n int32) evalValue { return evalValue{num: n} }
func strVal(s string) evalValue { return evalValue{isString: true, str: s} }

func (v evalValue) truthy() bool {
	if v.isString {
		return v.str != ""
	}
	return v.num != 0
}

// EvaluateCondition evaluates expr against machine's current CPU and
// memory state, returning its truthiness. On a parse error it returns
// false and the error, matching evaluateCondition's
// return-false-and-set-error contract.
func EvaluateCondition(m *Machine, expr string) (bool, error) {
	v, err := EvaluateExpression(m, expr)
	if err != nil {
		return false, err
	}
	return v.truthy(), nil
}

// EvaluateExpression evaluates expr and returns its integer value
// (0 for a string result, matching the source's int32_t return when a
// string sneaks into an integer context).
func EvaluateExpression(m *Machine, expr string) (int32, error) {
	p := &exprParser{src: expr, machine: m}
	p.next()
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.tok != tokEOF {
		return 0, errors.Errorf("zxcore: unexpected trailing input %q", p.tok.text)
	}
	if v.isString {
		return 0, nil
	}
	return v.num, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokLParen
	tokRParen
	tokComma
	tokOp
)

type token struct {
	kind tokenKind
	text string
	num  int32
}

type exprParser struct {
	src     string
	pos     int
	tok     token
	machine *Machine
}

func (p *exprParser) next() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF}
		return
	}
	c := p.src[p.pos]

	switch {
	case c == '(':
		p.pos++
		p.tok = token{kind: tokLParen, text: "("}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokRParen, text: ")"}
	case c == ',':
		p.pos++
		p.tok = token{kind: tokComma, text: ","}
	case c == '"':
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != '"' {
			p.pos++
		}
		text := p.src[start:p.pos]
		if p.pos < len(p.src) {
			p.pos++
		}
		p.tok = token{kind: tokString, text: text}
	case c == '$':
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && isHexDigit(p.src[p.pos]) {
			p.pos++
		}
		n, _ := strconv.ParseInt(p.src[start:p.pos], 16, 64)
		p.tok = token{kind: tokNumber, num: int32(n), text: "$" + p.src[start:p.pos]}
	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		n, _ := strconv.ParseInt(p.src[start:p.pos], 10, 64)
		p.tok = token{kind: tokNumber, num: int32(n), text: p.src[start:p.pos]}
	case isIdentStart(c):
		start := p.pos
		for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
			p.pos++
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.pos]}
	default:
		for _, op := range []string{"==", "!=", "<=", ">=", "&&", "||"} {
			if strings.HasPrefix(p.src[p.pos:], op) {
				p.pos += 2
				p.tok = token{kind: tokOp, text: op}
				return
			}
		}
		p.pos++
		p.tok = token{kind: tokOp, text: string(c)}
	}
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}
func isIdentStart(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_'
}
func isIdentPart(c byte) bool { return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.' }

func (p *exprParser) parseExpr() (evalValue, error) { return p.parseOr() }

func (p *exprParser) parseOr() (evalValue, error) {
	left, err := p.parseAnd()
	if err != nil {
		return left, err
	}
	for p.tok.kind == tokOp && p.tok.text == "||" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return left, err
		}
		left = boolVal(left.truthy() || right.truthy())
	}
	return left, nil
}

func (p *exprParser) parseAnd() (evalValue, error) {
	left, err := p.parseCmp()
	if err != nil {
		return left, err
	}
	for p.tok.kind == tokOp && p.tok.text == "&&" {
		p.next()
		right, err := p.parseCmp()
		if err != nil {
			return left, err
		}
		left = boolVal(left.truthy() && right.truthy())
	}
	return left, nil
}

func boolVal(b bool) evalValue {
	if b {
		return intVal(1)
	}
	return intVal(0)
}

func (p *exprParser) parseCmp() (evalValue, error) {
	left, err := p.parseAdd()
	if err != nil {
		return left, err
	}
	if p.tok.kind == tokOp {
		switch p.tok.text {
		case "==", "!=", "<=", ">=", "<", ">":
			op := p.tok.text
			p.next()
			right, err := p.parseAdd()
			if err != nil {
				return left, err
			}
			return compareValues(left, right, op), nil
		}
	}
	return left, nil
}

func compareValues(a, b evalValue, op string) evalValue {
	var less, equal bool
	if a.isString != b.isString {
		return boolVal(false)
	}
	if a.isString {
		less = a.str < b.str
		equal = a.str == b.str
	} else {
		less = a.num < b.num
		equal = a.num == b.num
	}
	switch op {
	case "==":
		return boolVal(equal)
	case "!=":
		return boolVal(!equal)
	case "<":
		return boolVal(less)
	case ">":
		return boolVal(!less && !equal)
	case "<=":
		return boolVal(less || equal)
	case ">=":
		return boolVal(!less)
	}
	return intVal(0)
}

func (p *exprParser) parseAdd() (evalValue, error) {
	left, err := p.parseMul()
	if err != nil {
		return left, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := p.tok.text
		p.next()
		right, err := p.parseMul()
		if err != nil {
			return left, err
		}
		if op == "+" {
			left = intVal(left.num + right.num)
		} else {
			left = intVal(left.num - right.num)
		}
	}
	return left, nil
}

func (p *exprParser) parseMul() (evalValue, error) {
	left, err := p.parseUnary()
	if err != nil {
		return left, err
	}
	for p.tok.kind == tokOp && p.tok.text == "*" {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return left, err
		}
		left = intVal(left.num * right.num)
	}
	return left, nil
}

func (p *exprParser) parseUnary() (evalValue, error) {
	if p.tok.kind == tokOp && p.tok.text == "!" {
		p.next()
		v, err := p.parseUnary()
		if err != nil {
			return v, err
		}
		return boolVal(!v.truthy()), nil
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() (evalValue, error) {
	switch p.tok.kind {
	case tokNumber:
		v := intVal(p.tok.num)
		p.next()
		return v, nil

	case tokString:
		v := strVal(p.tok.text)
		p.next()
		return v, nil

	case tokLParen:
		p.next()
		v, err := p.parseExpr()
		if err != nil {
			return v, err
		}
		if p.tok.kind != tokRParen {
			return v, errors.New("zxcore: expected ')'")
		}
		p.next()
		return v, nil

	case tokIdent:
		name := p.tok.text
		upper := strings.ToUpper(name)
		p.next()

		if p.tok.kind == tokLParen {
			return p.parseCall(upper)
		}
		return p.resolveIdent(upper)

	default:
		return intVal(0), errors.Errorf("zxcore: unexpected token %q", p.tok.text)
	}
}

func (p *exprParser) parseCall(name string) (evalValue, error) {
	p.next() // consume '('
	arg, err := p.parseExpr()
	if err != nil {
		return arg, err
	}
	if p.tok.kind != tokRParen {
		return arg, errors.New("zxcore: expected ')'")
	}
	p.next()

	addr := uint16(arg.num)
	switch name {
	case "PEEK":
		return intVal(int32(p.machine.DebugRead(addr))), nil
	case "DEEK":
		lo := p.machine.DebugRead(addr)
		hi := p.machine.DebugRead(addr + 1)
		return intVal(int32(uint16(hi)<<8 | uint16(lo))), nil
	default:
		return intVal(0), errors.Errorf("zxcore: unknown function %q", name)
	}
}

func (p *exprParser) resolveIdent(name string) (evalValue, error) {
	cpu := p.machine.CPU
	switch name {
	case "A":
		return intVal(int32(cpu.A)), nil
	case "B":
		return intVal(int32(cpu.B)), nil
	case "C":
		return intVal(int32(cpu.C)), nil
	case "D":
		return intVal(int32(cpu.D)), nil
	case "E":
		return intVal(int32(cpu.E)), nil
	case "H":
		return intVal(int32(cpu.H)), nil
	case "L":
		return intVal(int32(cpu.L)), nil
	case "F":
		return intVal(int32(cpu.F)), nil
	case "BC":
		return intVal(int32(cpu.BC())), nil
	case "DE":
		return intVal(int32(cpu.DE())), nil
	case "HL":
		return intVal(int32(cpu.HL())), nil
	case "IX":
		return intVal(int32(cpu.IX)), nil
	case "IY":
		return intVal(int32(cpu.IY)), nil
	case "SP":
		return intVal(int32(cpu.SP)), nil
	case "PC":
		return intVal(int32(cpu.PC)), nil
	case "I":
		return intVal(int32(cpu.I)), nil
	case "R":
		return intVal(int32(cpu.R)), nil
	case "FLAGS.S":
		return boolVal(cpu.Flag(FlagS)), nil
	case "FLAGS.Z":
		return boolVal(cpu.Flag(FlagZ)), nil
	case "FLAGS.H":
		return boolVal(cpu.Flag(FlagH)), nil
	case "FLAGS.PV":
		return boolVal(cpu.Flag(FlagP)), nil
	case "FLAGS.N":
		return boolVal(cpu.Flag(FlagN)), nil
	case "FLAGS.C":
		return boolVal(cpu.Flag(FlagC)), nil
	default:
		return intVal(0), errors.Errorf("zxcore: unknown identifier %q", name)
	}
}
