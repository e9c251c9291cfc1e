package main

// Parser drives the session's lexer token-by-token, building no AST: each
// grammar rule emits code directly as it recognizes it, pushing and
// popping the session's value stack, matching
// original_source/src/parse.c's single-pass recursive-descent structure.
type Parser struct {
	s      *Session
	tok    Token
	peeked *Token
}

// NewParser creates a parser over s, primed with the first token.
func NewParser(s *Session) *Parser {
	p := &Parser{s: s}
	p.advance()
	return p
}

func (p *Parser) loc() SourceLocation {
	return SourceLocation{File: p.s.File, Line: p.tok.Line, Column: p.tok.Column}
}

func (p *Parser) peek() Token {
	if p.peeked == nil {
		t := p.s.Lexer.NextToken()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *Parser) advance() {
	if p.peeked != nil {
		p.tok = *p.peeked
		p.peeked = nil
	} else {
		p.tok = p.s.Lexer.NextToken()
	}
	p.s.curTokLine = p.tok.Line
	p.s.curTokCol = p.tok.Column
}

func (p *Parser) expect(tt TokenType, what string) bool {
	if p.tok.Type != tt {
		p.s.Errs.Errorf(p.loc(), CategorySyntactic, "expected %s, found %q", what, p.tok.String())
		return false
	}
	p.advance()
	return true
}

// isTypeStart reports whether tt can begin a type-name, used by
// statement()'s local-declaration check, statementFor's init clause,
// parseSizeof, and exprUnary's cast-vs-parenthesized-expression lookahead.
func isTypeStart(tt TokenType) bool {
	switch tt {
	case TokInt, TokChar_, TokVoid, TokShort, TokLong, TokFloat, TokDouble,
		TokUnsigned, TokSigned, TokConst, TokStruct, TokUnion, TokEnum:
		return true
	}
	return false
}

// ParseFile compiles the whole translation unit: a sequence of top-level
// declarations, matching original_source/src/parse.c's parse_file loop.
func (p *Parser) ParseFile() {
	for p.tok.Type != TokEOF {
		before := p.tok
		p.decl()
		if p.tok == before {
			// decl() made no progress (a malformed top-level construct);
			// advance to avoid looping forever on a single bad token.
			p.advance()
		}
	}
}

// parseType folds type specifiers the way
// original_source/src/parse.c's parse_type does: storage-class and
// qualifier keywords are consumed and mostly ignored (this core tracks no
// linkage distinctions beyond scope), short/long counters and
// signed/unsigned combine with the base keyword, and a bare combination of
// modifiers with no explicit base defaults to int. Returns ok=false if no
// type-introducing token was seen at all.
func (p *Parser) parseType() (CType, bool) {
	var base CType = CType(0xffffffff)
	unsigned := false
	long := 0
	short := false
	sawAny := false

	for {
		switch p.tok.Type {
		case TokConst, TokStatic, TokExtern:
			sawAny = true
			p.advance()
		case TokUnsigned:
			unsigned = true
			sawAny = true
			p.advance()
		case TokSigned:
			sawAny = true
			p.advance()
		case TokShort:
			short = true
			sawAny = true
			p.advance()
		case TokLong:
			long++
			sawAny = true
			p.advance()
		case TokInt:
			base = VTInt
			sawAny = true
			p.advance()
		case TokChar_:
			base = VTByte
			sawAny = true
			p.advance()
		case TokVoid:
			base = VTVoid
			sawAny = true
			p.advance()
		case TokFloat, TokDouble:
			base = VTFloat
			sawAny = true
			p.advance()
		case TokStruct, TokUnion, TokEnum:
			// Tokens are recognized but no storage layout is attached:
			// struct/union/enum member access is out of scope.
			sawAny = true
			p.advance()
			if p.tok.Type == TokIdent {
				p.advance()
			}
			base = VTInt
		default:
			goto done
		}
	}
done:
	if !sawAny {
		return 0, false
	}
	if base == CType(0xffffffff) {
		switch {
		case short:
			base = VTShort
		case long >= 2:
			base = VTLLong
		case long == 1:
			base = VTLong
		default:
			base = VTInt
		}
	} else if base == VTInt {
		switch {
		case short:
			base = VTShort
		case long >= 2:
			base = VTLLong
		case long == 1:
			base = VTLong
		}
	}
	if unsigned {
		base |= VTUnsigned
	}
	return base, true
}

// parsePointer consumes zero or more `*` suffixes, nesting elem into a
// pointer type for each, matching parse_pointer's VT_PTR|(t<<16) nesting.
func (p *Parser) parsePointer(elem CType) CType {
	for p.tok.Type == TokStar {
		p.advance()
		elem = NewPointer(elem)
		for p.tok.Type == TokConst {
			p.advance()
		}
	}
	return elem
}

// decl parses one top-level declaration: a function declaration/
// definition, or one or more global variable declarators, matching
// original_source/src/parse.c's decl().
func (p *Parser) decl() {
	typ, ok := p.parseType()
	if !ok {
		p.s.Errs.Errorf(p.loc(), CategorySyntactic, "expected a declaration, found %q", p.tok.String())
		return
	}
	typ = p.parsePointer(typ)

	if p.tok.Type != TokIdent {
		p.s.Errs.Errorf(p.loc(), CategorySyntactic, "expected an identifier, found %q", p.tok.String())
		return
	}
	name := p.tok.Value
	p.advance()

	if p.tok.Type == TokLParen {
		p.parseFunction(name, typ)
		return
	}

	for {
		p.declareVariable(name, typ)
		if p.tok.Type != TokComma {
			break
		}
		p.advance()
		typ2 := p.parsePointer(typ)
		if p.tok.Type != TokIdent {
			p.s.Errs.Errorf(p.loc(), CategorySyntactic, "expected an identifier, found %q", p.tok.String())
			break
		}
		name = p.tok.Value
		typ = typ2
		p.advance()
	}
	p.expect(TokSemi, ";")
}

// declareVariable registers name:typ as a global (.data-backed) or local
// (frame-slot-backed) symbol depending on the current scope, handling an
// optional `[N]` array suffix (size*8 bytes per element, matching
// original_source's array sizing) and an optional `= initializer`.
func (p *Parser) declareVariable(name string, typ CType) {
	arrLen := -1
	if p.tok.Type == TokLBracket {
		p.advance()
		if p.tok.Type == TokNum {
			arrLen = int(p.tok.IntVal)
			p.advance()
		}
		p.expect(TokRBracket, "]")
		typ |= VTArray
	}

	isGlobal := p.s.Syms.AtGlobalScope()
	size := 8
	if arrLen >= 0 {
		size = arrLen * 8
	}

	if isGlobal {
		off := int64(p.s.Data.Reserve(size))
		p.s.Syms.Push(name, typ, off)
		if p.tok.Type == TokAssign {
			p.advance()
			v := p.parseConstExpr()
			if arrLen < 0 {
				p.s.Data.PatchLE64(int(off), v)
			}
		}
		return
	}

	off := p.s.allocLocal(size)
	p.s.Syms.Push(name, typ, off)
	if p.tok.Type == TokAssign {
		p.advance()
		p.exprEq()
		r := p.s.gv()
		p.s.store(r, SValue{Type: typ, Loc: LocLocal, Offset: off, LValue: true})
		p.s.vpop()
		delete(p.s.regUsed, r)
	}
}

// parseConstExpr parses the restricted constant-expression grammar global
// initializers allow: an optional leading `-`, then an integer literal.
func (p *Parser) parseConstExpr() int64 {
	neg := false
	if p.tok.Type == TokMinus {
		neg = true
		p.advance()
	}
	if p.tok.Type != TokNum {
		p.s.Errs.Errorf(p.loc(), CategorySemantic, "global initializer must be a constant expression")
		return 0
	}
	v := p.tok.IntVal
	p.advance()
	if neg {
		v = -v
	}
	return v
}

// parseFunction parses a function prototype or definition starting right
// after the name and before the `(`, matching decl()'s function branch:
// register the symbol at the current .text offset, open a parameter
// scope, bind each parameter to its Windows x64 home location, then either
// stop at `;` (prototype only) or compile the body.
func (p *Parser) parseFunction(name string, retType CType) {
	p.advance() // consume '('

	sym, exists := p.s.Syms.FindGlobal(name)
	if !exists {
		sym = p.s.Syms.Push(name, VTFunc, int64(p.s.Emit.Ind()))
	}
	p.s.funcReturnTypes[sym] = retType

	mark := p.s.Syms.PushScope()
	paramIdx := 0
	for p.tok.Type != TokRParen && p.tok.Type != TokEOF {
		ptyp, ok := p.parseType()
		if !ok {
			break
		}
		ptyp = p.parsePointer(ptyp)
		pname := ""
		if p.tok.Type == TokIdent {
			pname = p.tok.Value
			p.advance()
		}
		if pname != "" {
			var off int64
			if paramIdx < 4 {
				off = int64(16 + paramIdx*8)
			} else {
				// Parameters beyond the four register-passed ones are
				// read from the caller's stack-argument area. The callee
				// sees rbp = rsp_at_call-16 (call's return-address push,
				// then this prologue's push rbp), and the caller stores
				// argument i at [rsp_at_call+32+(i-4)*8] (see genCall), so
				// from rbp that is rbp+48+(i-4)*8.
				off = int64(48 + (paramIdx-4)*8)
			}
			p.s.Syms.Push(pname, ptyp, off)
		}
		paramIdx++
		if p.tok.Type == TokComma {
			p.advance()
			continue
		}
		break
	}
	p.expect(TokRParen, ")")

	if p.tok.Type == TokSemi {
		p.advance()
		p.s.Syms.PopScope(mark)
		return
	}

	sym.Value = int64(p.s.Emit.Ind())
	p.s.genFuncProlog()
	p.statement()
	p.s.genFuncEpilog()
	p.s.Syms.PopScope(mark)
}
