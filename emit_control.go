package main

// frameSize is the fixed local-frame reservation every function prologue
// makes, matching original_source/src/x86_64-gen.c's gfunc_prolog
// (`sub rsp, 0x60`): 32 bytes of Windows x64 shadow space plus headroom
// for this core's simple non-reentrant local allocator.
const frameSize = 0x60

// genFuncProlog emits the Windows x64 prologue and spills the four
// incoming integer argument registers to their home locations at
// [rbp+16]/[rbp+24]/[rbp+32]/[rbp+40], matching gfunc_prolog exactly.
func (s *Session) genFuncProlog() {
	s.Emit.g(0x55) // push rbp
	s.Emit.genRex(true, 0, 0, RegRSP)
	s.Emit.g(0x89) // mov rbp, rsp
	s.Emit.genModRM(3, RegRSP, RegRBP)
	s.Emit.genRex(true, 0, 0, RegRSP)
	s.Emit.g(0x81) // sub rsp, imm32
	s.Emit.genModRM(3, 5, RegRSP)
	s.Emit.genLE32(frameSize)

	homeOffsets := []int64{16, 24, 32, 40}
	for i, r := range argRegs {
		s.Emit.genRex(true, r, 0, RegRBP)
		s.Emit.g(0x89)
		s.Emit.genModRMLocal(r, homeOffsets[i])
	}
	s.LocalOffset = -8
}

// genFuncEpilog emits `mov rsp, rbp; pop rbp; ret`, matching gfunc_epilog.
func (s *Session) genFuncEpilog() {
	s.Emit.genRex(true, 0, 0, RegRSP)
	s.Emit.g(0x89)
	s.Emit.genModRM(3, RegRBP, RegRSP) // mov rsp, rbp
	s.Emit.g(0x5d)                     // pop rbp
	s.Emit.g(0xc3)                     // ret
}

// genCall emits a Windows x64 call: up to 4 integer arguments already
// pushed on the value stack (oldest first) are loaded into
// RCX/RDX/R8/R9, any beyond that are stored in reverse order at
// [rsp+32+(i-4)*8], just above the callee's 32-byte shadow space, and the
// call itself is direct (`call rel32`) when sym is a function symbol or
// indirect (through a register) otherwise.
//
// Deliberate fix over the reproduced original: the original's direct-call
// path emits a zero placeholder displacement that nothing ever patches
// (no relocation table exists to carry the fixup). Here the rel32 slot is
// recorded with recordCallFixup and patched by resolveFixups once every
// function's .text offset is final, so calls to functions defined later
// in the file also get the correct displacement.
func (s *Session) genCall(sym *Sym, indirect *SValue, argc int) {
	args := make([]SValue, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = s.vpop()
	}

	stackArgs := 0
	if argc > 4 {
		stackArgs = argc - 4
	}
	shadow := 32 + stackArgs*8
	if shadow%16 != 0 {
		shadow += 8
	}
	if shadow > 0 {
		s.Emit.genRex(true, 0, 0, RegRSP)
		s.Emit.g(0x81)
		s.Emit.genModRM(3, 5, RegRSP)
		s.Emit.genLE32(int32(shadow))
	}

	for i := argc - 1; i >= 4; i-- {
		r := s.materializeInto(s.pickRegister(), args[i])
		off := int32(32 + (i-4)*8)
		s.Emit.genRex(true, r, 0, RegRSP)
		s.Emit.g(0x89)
		s.Emit.genModRMStack(r, off)
		delete(s.regUsed, r)
	}
	regArgc := argc
	if regArgc > 4 {
		regArgc = 4
	}
	for i := 0; i < regArgc; i++ {
		s.freeRegister(argRegs[i])
		s.materializeInto(argRegs[i], args[i])
	}

	if sym != nil && sym.Type.Basic() == VTFunc {
		s.Emit.g(0xe8)
		site := s.Emit.text.Reserve(4)
		s.recordCallFixup(site, sym)
	} else if indirect != nil {
		r := s.materializeInto(s.pickRegister(), *indirect)
		s.Emit.genRex(true, 0, 0, r)
		s.Emit.g(0xff)
		s.Emit.genModRM(3, 2, r)
		delete(s.regUsed, r)
	}

	for i := 0; i < regArgc; i++ {
		delete(s.regUsed, argRegs[i])
	}
	if shadow > 0 {
		s.Emit.genRex(true, 0, 0, RegRSP)
		s.Emit.g(0x81)
		s.Emit.genModRM(3, 0, RegRSP)
		s.Emit.genLE32(int32(shadow))
	}

	s.regUsed[RegRAX] = true
	s.vpush(SValue{Type: VTInt, Loc: LocReg, Reg: RegRAX})
}

// gjmp emits an unconditional `jmp rel32` targeting l and links the
// placeholder into l's patch chain, matching x86_64-gen.c's gjmp.
func (s *Session) gjmp(l *Label) {
	if l.resolved {
		s.Emit.g(0xe9)
		site := s.Emit.text.Reserve(4)
		s.Emit.text.PatchLE32(site, int32(l.pos-(site+4)))
		return
	}
	s.Emit.g(0xe9)
	site := s.Emit.text.Reserve(4)
	s.Emit.text.PatchLE32(site, int32(l.chain))
	l.chain = site
}

func invertCond(c int) int {
	switch c {
	case CondEq:
		return CondNe
	case CondNe:
		return CondEq
	case CondLt:
		return CondGe
	case CondGe:
		return CondLt
	case CondLtU:
		return CondGeU
	case CondGeU:
		return CondLtU
	case CondGt:
		return CondLe
	case CondLe:
		return CondGt
	case CondGtU:
		return CondLeU
	case CondLeU:
		return CondGtU
	}
	return c
}

// gtst pops the top-of-stack condition and emits a conditional jump to l:
// a comparison result (LocCmp) becomes a direct Jcc (inverted when invert
// is true, used for "jump past the then-branch when the condition is
// false"); any other value is tested against itself first (`test
// r, r` + jz/jnz), matching x86_64-gen.c's gtst.
func (s *Session) gtst(invert bool, l *Label) {
	top := s.vpop()
	var cond int
	if top.Loc == LocCmp {
		cond = top.Cond
	} else {
		r := s.materializeInto(s.pickRegister(), top)
		s.Emit.genRex(true, r, 0, r)
		s.Emit.g(0x85)
		s.Emit.genModRM(3, r, r)
		delete(s.regUsed, r)
		cond = CondNe
	}
	if invert {
		cond = invertCond(cond)
	}
	jccOpcode := setccOpcodes[cond] - 0x10
	s.Emit.g(0x0f)
	s.Emit.g(jccOpcode)
	if l.resolved {
		site := s.Emit.text.Reserve(4)
		s.Emit.text.PatchLE32(site, int32(l.pos-(site+4)))
		return
	}
	site := s.Emit.text.Reserve(4)
	s.Emit.text.PatchLE32(site, int32(l.chain))
	l.chain = site
}

// glabel defines l at the current .text position, walking its patch chain
// and rewriting every pending jump's displacement, matching
// x86_64-gen.c's glabel.
func (s *Session) glabel(l *Label) {
	l.pos = s.Emit.Ind()
	l.resolved = true
	site := l.chain
	for site != -1 {
		prev := s.Emit.text.ReadLE32(site)
		s.Emit.text.PatchLE32(site, int32(l.pos-(site+4)))
		site = int(prev)
	}
	l.chain = -1
}
