package main

// setccOpcodes maps a comparison condition index to its SETcc secondary
// opcode byte, matching original_source/src/x86_64-gen.c's gen_opi table:
// ==,!=,<(signed/unsigned),>(signed/unsigned),<=,>=.
const (
	CondEq = iota
	CondNe
	CondLt
	CondLtU
	CondGt
	CondGtU
	CondLe
	CondLeU
	CondGe
	CondGeU
)

var setccOpcodes = map[int]byte{
	CondEq:  0x94,
	CondNe:  0x95,
	CondLt:  0x9c,
	CondLtU: 0x92,
	CondGt:  0x9f,
	CondGtU: 0x97,
	CondLe:  0x9e,
	CondLeU: 0x96,
	CondGe:  0x9d,
	CondGeU: 0x93,
}

// BinOp identifies a binary operator at the codegen layer, independent of
// the lexer's TokenType, so emitter code doesn't need to know punctuation.
type BinOp int

const (
	OpAssign BinOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
)

// genOp consumes the top two value-stack entries and pushes the result,
// matching original_source/src/gen.c's gen_op dispatch. Assignment stores
// through the left operand's address; every other operator materializes
// both operands (left->RAX, right->RCX via gv2) and emits the
// corresponding x86-64 sequence from x86_64-gen.c's gen_opi.
func (s *Session) genOp(op BinOp) {
	if op == OpAssign {
		s.genAssign()
		return
	}

	resultType := s.VStack[len(s.VStack)-2].Type
	unsigned := resultType.IsUnsigned()

	switch op {
	case OpDiv, OpMod:
		s.genDivMod(op, unsigned)
		return
	case OpShl, OpShr:
		s.genShift(op, unsigned)
		return
	}

	left, right := s.gv2()

	switch op {
	case OpAdd:
		s.Emit.genRex(true, right, 0, left)
		s.Emit.g(0x01)
		s.Emit.genModRM(3, right, left)
	case OpSub:
		s.Emit.genRex(true, right, 0, left)
		s.Emit.g(0x29)
		s.Emit.genModRM(3, right, left)
	case OpAnd:
		s.Emit.genRex(true, right, 0, left)
		s.Emit.g(0x21)
		s.Emit.genModRM(3, right, left)
	case OpOr:
		s.Emit.genRex(true, right, 0, left)
		s.Emit.g(0x09)
		s.Emit.genModRM(3, right, left)
	case OpXor:
		s.Emit.genRex(true, right, 0, left)
		s.Emit.g(0x31)
		s.Emit.genModRM(3, right, left)
	case OpMul:
		s.Emit.genRex(true, left, 0, right)
		s.Emit.g(0x0f)
		s.Emit.g(0xaf)
		s.Emit.genModRM(3, left, right)
	case OpEq, OpNe, OpLt, OpGt, OpLe, OpGe:
		s.Emit.genRex(true, right, 0, left)
		s.Emit.g(0x39)
		s.Emit.genModRM(3, right, left)
		s.pushCmp(op, unsigned, resultType)
		delete(s.regUsed, left)
		delete(s.regUsed, right)
		return
	}

	delete(s.regUsed, right)
	s.vpush(SValue{Type: resultType, Loc: LocReg, Reg: left})
}

func (s *Session) pushCmp(op BinOp, unsigned bool, typ CType) {
	var cond int
	switch op {
	case OpEq:
		cond = CondEq
	case OpNe:
		cond = CondNe
	case OpLt:
		if unsigned {
			cond = CondLtU
		} else {
			cond = CondLt
		}
	case OpGt:
		if unsigned {
			cond = CondGtU
		} else {
			cond = CondGt
		}
	case OpLe:
		if unsigned {
			cond = CondLeU
		} else {
			cond = CondLe
		}
	case OpGe:
		if unsigned {
			cond = CondGeU
		} else {
			cond = CondGe
		}
	}
	s.vpush(SValue{Type: VTInt, Loc: LocCmp, Cond: cond})
	_ = typ
}

// genDivMod emits cqo+idiv unconditionally, matching x86_64-gen.c's
// division path exactly: the original's gen_opi never branches on
// VT_UNSIGNED for `/`/`%`, always sign-extending into RDX with cqo before
// idiv. The divisor must not be RDX (cqo clobbers it), so gv2's RCX-first
// convention keeps the divisor safely out of the way.
func (s *Session) genDivMod(op BinOp, unsigned bool) {
	left, right := s.gv2()
	s.freeRegister(RegRAX)
	s.freeRegister(RegRDX)
	if left != RegRAX {
		s.moveReg(RegRAX, left)
	}
	s.Emit.genRex(true, 0, 0, 0)
	s.Emit.g(0x99) // cqo
	s.Emit.genRex(true, 0, 0, right)
	s.Emit.g(0xf7)
	s.Emit.genModRM(3, 7, right) // idiv r/m64
	delete(s.regUsed, right)
	delete(s.regUsed, RegRAX)
	delete(s.regUsed, RegRDX)
	result := RegRAX
	if op == OpMod {
		result = RegRDX
	}
	s.regUsed[result] = true
	s.vpush(SValue{Type: VTInt, Loc: LocReg, Reg: result})
}

// genShift emits sar/shr/shl with the count in CL, matching x86_64-gen.c:
// the shift amount must be in RCX, which is exactly where gv2 places the
// right operand.
func (s *Session) genShift(op BinOp, unsigned bool) {
	left, right := s.gv2()
	if right != RegRCX {
		s.moveReg(RegRCX, right)
		delete(s.regUsed, right)
		s.regUsed[RegRCX] = true
	}
	s.Emit.genRex(true, 0, 0, left)
	s.Emit.g(0xd3)
	switch {
	case op == OpShl:
		s.Emit.genModRM(3, 4, left)
	case unsigned:
		s.Emit.genModRM(3, 5, left) // shr
	default:
		s.Emit.genModRM(3, 7, left) // sar
	}
	delete(s.regUsed, RegRCX)
	s.vpush(SValue{Type: VTInt, Loc: LocReg, Reg: left})
}

// genAssign stores the right operand through the left operand's address
// and pushes the stored value as the expression's result, matching C
// assignment-expression semantics.
func (s *Session) genAssign() {
	n := len(s.VStack)
	rightSv := s.VStack[n-1]
	leftSv := s.VStack[n-2]
	s.VStack = s.VStack[:n-2]

	if !leftSv.LValue {
		s.Errs.Errorf(s.here(), CategorySemantic, "left-hand side of assignment is not an lvalue")
	}
	r := s.materializeInto(s.pickRegister(), rightSv)
	s.store(r, leftSv)
	s.vpush(SValue{Type: leftSv.Type, Loc: LocReg, Reg: r})
}

// genNot implements unary `!`: test the operand against itself, sete, and
// zero-extend, matching x86_64-gen.c's logical-not path.
func (s *Session) genNot() {
	r := s.gv()
	s.Emit.genRex(true, r, 0, r)
	s.Emit.g(0x85) // test r, r
	s.Emit.genModRM(3, r, r)
	delete(s.regUsed, r)
	s.vpop()
	s.vpush(SValue{Type: VTInt, Loc: LocCmp, Cond: CondEq})
}

// genBitNot implements unary `~` via the NOT instruction in place.
func (s *Session) genBitNot() {
	r := s.gv()
	typ := s.vtop().Type
	s.Emit.genRex(true, 0, 0, r)
	s.Emit.g(0xf7)
	s.Emit.genModRM(3, 2, r)
	s.vpop()
	s.vpush(SValue{Type: typ, Loc: LocReg, Reg: r})
}

// genNeg implements unary `-` as `0 - x`, matching
// original_source/src/parse.c's expr_unary ("push 0, swap, subtract").
func (s *Session) genNeg() {
	typ := s.vtop().Type
	s.vpush(SValue{Type: typ, Loc: LocConst, Offset: 0})
	s.vswap()
	s.genOp(OpSub)
}
