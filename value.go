package main

// vstackSize bounds the value stack depth, matching
// original_source/src/tcc.h's VSTACK_SIZE.
const vstackSize = 256

// ValueLoc tags where an SValue's payload actually lives, generalizing
// original_source/src/tcc.h's VT_CONST/VT_LOCAL/VT_CMP/... location tags
// (which in C share one integer field with register numbers) into an
// explicit Go enum plus a separate Reg field.
type ValueLoc int

const (
	LocConst ValueLoc = iota
	LocReg
	LocLocal  // address is RBP+Offset
	LocLLocal // the pointer to the value is stored at RBP+Offset (one extra indirection)
	LocSymbol // address is Sym(+Offset)
	LocCmp    // value is the result of comparison Cond, not yet materialized
)

// SValue is one value-stack entry: a typed value with a lazily-resolved
// location, grounded on original_source/src/gen.c's SValue/vset family.
// LValue marks that Loc names an *address* which must be loaded through
// (a variable reference) rather than a value already in hand (an rvalue).
type SValue struct {
	Type   CType
	Loc    ValueLoc
	Reg    int
	Offset int64
	Cond   int
	Sym    *Sym
	LValue bool
}

// vpush pushes sv onto the value stack, erroring (not panicking) on
// overflow the way the original calls tcc_error("memory full") via vsetc.
func (s *Session) vpush(sv SValue) {
	if len(s.VStack) >= vstackSize {
		s.Errs.Errorf(s.here(), CategoryCodegen, "value stack overflow")
		return
	}
	s.VStack = append(s.VStack, sv)
}

// vtop returns a pointer to the top-of-stack entry. Callers must not call
// this on an empty stack; vpop/vtop underflow indicates a parser bug.
func (s *Session) vtop() *SValue {
	if len(s.VStack) == 0 {
		s.Errs.Errorf(s.here(), CategoryCodegen, "value stack underflow")
		s.vpush(SValue{Type: VTInt, Loc: LocConst})
	}
	return &s.VStack[len(s.VStack)-1]
}

// vpop discards and returns the top-of-stack entry.
func (s *Session) vpop() SValue {
	sv := *s.vtop()
	s.VStack = s.VStack[:len(s.VStack)-1]
	return sv
}

// vpushDup duplicates the top-of-stack entry, first spilling it to a local
// slot via saveReg if it is a register-resident rvalue so both copies don't
// race to free the same register (mirrors original vdup's register-save
// discipline via save_reg).
func (s *Session) vpushDup() {
	top := *s.vtop()
	if top.Loc == LocReg && !top.LValue {
		s.saveReg(top.Reg)
		top = *s.vtop()
	}
	s.vpush(top)
}

// vswap exchanges the top two value-stack entries, used by gv2 to load
// operands in a specific register order.
func (s *Session) vswap() {
	n := len(s.VStack)
	if n < 2 {
		s.Errs.Errorf(s.here(), CategoryCodegen, "value stack underflow on swap")
		return
	}
	s.VStack[n-1], s.VStack[n-2] = s.VStack[n-2], s.VStack[n-1]
}

// regInUseBy reports the index of the value-stack entry (if any) currently
// holding register r as a live rvalue.
func (s *Session) regInUseBy(r int) int {
	for i := range s.VStack {
		if s.VStack[i].Loc == LocReg && s.VStack[i].Reg == r {
			return i
		}
	}
	return -1
}

// saveReg spills every value-stack entry resident in register r out to a
// fresh local slot, matching original_source/src/gen.c's save_reg: scan
// the whole stack (not just the top), store each match to a new 8-byte
// local, and retag it LocLocal/LValue so later reads reload it.
func (s *Session) saveReg(r int) {
	for i := range s.VStack {
		sv := &s.VStack[i]
		if sv.Loc != LocReg || sv.Reg != r {
			continue
		}
		off := s.allocLocal(8)
		s.store(r, SValue{Type: sv.Type, Loc: LocLocal, Offset: off, LValue: true})
		sv.Loc = LocLocal
		sv.Offset = off
		sv.LValue = true
	}
	delete(s.regUsed, r)
}

// pickRegister finds a free register in allocOrder preference order; if
// all are busy it spills the occupants of allocOrder[0] (RAX) via saveReg
// and returns that register.
func (s *Session) pickRegister() int {
	for _, r := range allocOrder {
		if !s.regUsed[r] {
			return r
		}
	}
	r := allocOrder[0]
	s.saveReg(r)
	return r
}

// gv materializes the top-of-stack value into a general-purpose register
// and returns its number, matching original_source/src/gen.c's gv(): a
// constant becomes a mov-immediate, an lvalue is loaded through its
// address, a comparison result is materialized via setcc+movzx, and a
// value already resident in a register is returned as-is.
func (s *Session) gv() int {
	top := s.vtop()
	if top.Loc == LocReg && !top.LValue {
		return top.Reg
	}
	r := s.pickRegister()
	s.load(r, *top)
	s.regUsed[r] = true
	top.Loc = LocReg
	top.Reg = r
	top.LValue = false
	return r
}

// gv2 materializes the left (second-from-top) operand into RAX and the
// right (top) operand into RCX, consuming both stack entries, matching
// original_source/src/gen.c's gv2()'s left-in-RAX/right-in-RCX convention
// for non-commutative binary ops (subtraction, division, shifts,
// comparisons). Right is loaded first since, for a division, RAX/RDX are
// about to be clobbered by cqo and must not hold the divisor.
func (s *Session) gv2() (left, right int) {
	n := len(s.VStack)
	rightSv := s.VStack[n-1]
	leftSv := s.VStack[n-2]
	s.VStack = s.VStack[:n-2]

	s.freeRegister(RegRCX)
	rc := s.materializeInto(RegRCX, rightSv)
	s.freeRegister(RegRAX)
	ra := s.materializeInto(RegRAX, leftSv)
	return ra, rc
}

// freeRegister spills whatever live value-stack entry currently occupies
// r, so a caller can claim r for a new operand without clobbering a value
// still needed later.
func (s *Session) freeRegister(r int) {
	if s.regInUseBy(r) >= 0 {
		s.saveReg(r)
	}
}

// materializeInto loads sv into register r (even if sv was already
// resident in a different register) and marks r in use.
func (s *Session) materializeInto(r int, sv SValue) int {
	s.load(r, sv)
	s.regUsed[r] = true
	return r
}

// moveReg emits `mov dst, src` for two already-materialized GP registers.
func (s *Session) moveReg(dst, src int) {
	if dst == src {
		return
	}
	s.Emit.genRex(true, src, 0, dst)
	s.Emit.g(0x89)
	s.Emit.genModRM(3, src, dst)
}

// genCast retags the top-of-stack value's type. Integer-to-integer casts
// between the widths this core supports are a pure retag (the subsequent
// load/store picks the right width); casts into or out of a floating type
// have no codegen here (Non-goal: floating point), matching
// original_source/src/gen.c's gen_cast stub-warning path for that case.
func (s *Session) genCast(t CType) {
	top := s.vtop()
	if (t.Basic() == VTFloat) != (top.Type.Basic() == VTFloat) {
		s.Errs.Warnf(s.here(), CategoryCodegen, "cast between integer and floating type is not supported")
	}
	top.Type = t
}

// stabilize ensures sv's value survives further register-clobbering
// codegen (argument evaluation, nested calls) by spilling it to a fresh
// local slot if it is currently register-resident; addresses (LocLocal/
// LocSymbol lvalues) and constants are already stable as-is.
func (s *Session) stabilize(sv SValue) SValue {
	if sv.Loc != LocReg {
		return sv
	}
	r := sv.Reg
	off := s.allocLocal(8)
	s.store(r, SValue{Type: sv.Type, Loc: LocLocal, Offset: off, LValue: true})
	delete(s.regUsed, r)
	return SValue{Type: sv.Type, Loc: LocLocal, Offset: off, LValue: true}
}

// Label is an anonymous jump target with a forward-patch chain, grounded
// on original_source/src/x86_64-gen.c's label representation: an
// undefined label holds a chain of not-yet-patched jump sites (each site's
// 4-byte placeholder stores the previous chain head, terminated by -1);
// glabel walks and rewrites every site to its resolved displacement.
type Label struct {
	resolved bool
	pos      int // resolved .text offset, valid once resolved
	chain    int // most recent unpatched jmp site, -1 when none pending
}

// gind allocates a fresh undefined label, matching gind()'s `{.r=0,.c=-1}`.
func (s *Session) gind() *Label {
	return &Label{chain: -1}
}
