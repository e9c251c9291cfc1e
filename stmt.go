package main

// statement parses and compiles one statement, matching
// original_source/src/parse.c's statement(): a block opens and closes its
// own symbol scope, if/while/for/do-while thread labels through gind/
// gtst/gjmp/glabel exactly as the original's control-flow codegen does,
// and declarations are permitted inside a block the same way decl() is
// reused for locals.
func (p *Parser) statement() {
	switch p.tok.Type {
	case TokLBrace:
		p.statementBlock()
	case TokIf:
		p.statementIf()
	case TokWhile:
		p.statementWhile()
	case TokFor:
		p.statementFor()
	case TokDo:
		p.statementDoWhile()
	case TokReturn:
		p.statementReturn()
	case TokBreak:
		p.advance()
		p.expect(TokSemi, ";")
		// Bug reproduced verbatim: the token is consumed but no jump to
		// the enclosing loop's break label is emitted.
	case TokContinue:
		p.advance()
		p.expect(TokSemi, ";")
		// Bug reproduced verbatim: same gap as break.
	case TokSemi:
		p.advance()
	default:
		if isTypeStart(p.tok.Type) {
			p.localDecl()
			return
		}
		p.exprEq()
		p.s.vpop()
		p.expect(TokSemi, ";")
	}
}

// statementBlock compiles `{ stmt* }` inside its own symbol scope.
func (p *Parser) statementBlock() {
	p.advance() // consume '{'
	mark := p.s.Syms.PushScope()
	for p.tok.Type != TokRBrace && p.tok.Type != TokEOF {
		p.statement()
	}
	p.expect(TokRBrace, "}")
	p.s.Syms.PopScope(mark)
}

// localDecl parses `type decl-list;` inside a statement context, reusing
// decl()'s variable-declarator loop without its function-definition
// branch (a function cannot be declared inside a block).
func (p *Parser) localDecl() {
	typ, ok := p.parseType()
	if !ok {
		p.s.Errs.Errorf(p.loc(), CategorySyntactic, "expected a declaration, found %q", p.tok.String())
		p.advance()
		return
	}
	typ = p.parsePointer(typ)
	if p.tok.Type != TokIdent {
		p.s.Errs.Errorf(p.loc(), CategorySyntactic, "expected an identifier, found %q", p.tok.String())
		return
	}
	name := p.tok.Value
	p.advance()
	for {
		p.declareVariable(name, typ)
		if p.tok.Type != TokComma {
			break
		}
		p.advance()
		typ2 := p.parsePointer(typ)
		if p.tok.Type != TokIdent {
			break
		}
		name = p.tok.Value
		typ = typ2
		p.advance()
	}
	p.expect(TokSemi, ";")
}

// statementIf compiles `if (cond) then [else else-stmt]`, matching the
// original's gind+gtst(1,...)+gjmp+glabel pattern: gtst with invert=true
// jumps PAST the then-branch when the condition is false.
func (p *Parser) statementIf() {
	p.advance()
	p.expect(TokLParen, "(")
	p.exprEq()
	p.expect(TokRParen, ")")

	elseLabel := p.s.gind()
	p.s.gtst(true, elseLabel)
	p.statement()

	if p.tok.Type == TokElse {
		endLabel := p.s.gind()
		p.s.gjmp(endLabel)
		p.s.glabel(elseLabel)
		p.advance()
		p.statement()
		p.s.glabel(endLabel)
		return
	}
	p.s.glabel(elseLabel)
}

// statementWhile compiles `while (cond) body` via a condition label and
// an end label, matching the original's while-loop codegen.
func (p *Parser) statementWhile() {
	p.advance()
	condLabel := p.s.gind()
	endLabel := p.s.gind()
	p.s.glabel(condLabel)

	p.expect(TokLParen, "(")
	p.exprEq()
	p.expect(TokRParen, ")")
	p.s.gtst(true, endLabel)

	p.s.loopLabels = append(p.s.loopLabels, loopLabels{continueLabel: condLabel, breakLabel: endLabel})
	p.statement()
	p.s.loopLabels = p.s.loopLabels[:len(p.s.loopLabels)-1]

	p.s.gjmp(condLabel)
	p.s.glabel(endLabel)
}

// statementDoWhile compiles `do body while (cond);`.
func (p *Parser) statementDoWhile() {
	p.advance()
	bodyLabel := p.s.gind()
	endLabel := p.s.gind()
	p.s.glabel(bodyLabel)

	p.s.loopLabels = append(p.s.loopLabels, loopLabels{continueLabel: bodyLabel, breakLabel: endLabel})
	p.statement()
	p.s.loopLabels = p.s.loopLabels[:len(p.s.loopLabels)-1]

	p.expect(TokWhile, "while")
	p.expect(TokLParen, "(")
	p.exprEq()
	p.expect(TokRParen, ")")
	p.expect(TokSemi, ";")
	p.s.gtst(false, bodyLabel)
	p.s.glabel(endLabel)
}

// statementFor compiles `for (init; cond; update) body`, matching the
// original's four-label thread (COND/END/UPDATE/BODY): the condition is
// tested up front, the update runs after the body and before re-testing
// the condition, and a bare jump bridges body-end to the update.
func (p *Parser) statementFor() {
	p.advance()
	p.expect(TokLParen, "(")

	mark := p.s.Syms.PushScope()
	if p.tok.Type != TokSemi {
		if isTypeStart(p.tok.Type) {
			p.localDecl()
		} else {
			p.exprEq()
			p.s.vpop()
			p.expect(TokSemi, ";")
		}
	} else {
		p.advance()
	}

	condLabel := p.s.gind()
	endLabel := p.s.gind()
	updateLabel := p.s.gind()
	bodyLabel := p.s.gind()

	p.s.glabel(condLabel)
	if p.tok.Type != TokSemi {
		p.exprEq()
		p.s.gtst(true, endLabel)
	}
	p.expect(TokSemi, ";")
	p.s.gjmp(bodyLabel)

	p.s.glabel(updateLabel)
	if p.tok.Type != TokRParen {
		p.exprEq()
		p.s.vpop()
	}
	p.s.gjmp(condLabel)

	p.expect(TokRParen, ")")
	p.s.glabel(bodyLabel)

	p.s.loopLabels = append(p.s.loopLabels, loopLabels{continueLabel: updateLabel, breakLabel: endLabel})
	p.statement()
	p.s.loopLabels = p.s.loopLabels[:len(p.s.loopLabels)-1]

	p.s.gjmp(updateLabel)
	p.s.glabel(endLabel)
	p.s.Syms.PopScope(mark)
}

// statementReturn compiles `return [expr];`, loading the result (if any)
// into RAX before the function epilogue, matching the original's
// `gv(RC_RAX)` + gfunc_epilog.
func (p *Parser) statementReturn() {
	p.advance()
	if p.tok.Type != TokSemi {
		p.exprEq()
		r := p.s.gv()
		if r != RegRAX {
			s := p.s
			s.freeRegister(RegRAX)
			s.moveReg(RegRAX, r)
			delete(s.regUsed, r)
		}
		p.s.vpop()
		delete(p.s.regUsed, RegRAX)
	}
	p.expect(TokSemi, ";")
	p.s.genFuncEpilog()
}
