package main

// globalFixup records a RIP-relative displacement that can only be
// resolved once every section's final size (and therefore RVA) is known.
// Since this core emits one flat image directly rather than an
// object-file-plus-linker pipeline, there is no relocation table:
// BuildImage walks this list once (via resolveFixups) at the very end, when
// .text/.data/.rdata sizes are all final, and patches each placeholder in
// place.
type globalFixup struct {
	textOffset int  // offset of the 4-byte disp32 placeholder
	sym        *Sym // target symbol
	rdata      bool // true if sym lives in .rdata instead of .data
	isCall     bool // true if this is a call-displacement fixup, purely .text-relative
}

// genModRMRIP emits a ModRM byte selecting [rip+disp32] addressing (mod=00,
// rm=101) and reserves the trailing 4-byte placeholder, returning its
// offset for a later globalFixup.
func (e *Emitter) genModRMRIP(reg int) int {
	e.genModRM(0, reg, 5)
	return e.text.Reserve(4)
}

func widthRex(size int) bool { return size == 8 }

// load materializes sv's value into register r, matching
// original_source/src/x86_64-gen.c's load() contract: constants become an
// immediate move (xor for zero, sign-extended 32-bit immediate when it
// fits, full movabs otherwise), lvalues are read through their address
// with a width/signedness-appropriate extending load, non-lvalue locals
// and symbols yield their address via lea, and a value already in a
// register is copied over only if the destination differs.
func (s *Session) load(r int, sv SValue) {
	size := sv.Type.Size()
	signed := sv.Type.IsSigned64()

	switch sv.Loc {
	case LocConst:
		s.loadConst(r, sv.Offset)

	case LocCmp:
		s.Emit.genRex(false, 0, 0, r)
		s.Emit.g(0x0f)
		s.Emit.g(setccOpcodes[sv.Cond])
		s.Emit.genModRM(3, 0, r)
		s.Emit.genRex(false, r, 0, r)
		s.Emit.g(0x0f)
		s.Emit.g(0xb6)
		s.Emit.genModRM(3, r, r)

	case LocLocal:
		if sv.LValue {
			s.loadFromRBP(r, sv.Offset, size, signed)
		} else {
			s.Emit.genRex(true, r, 0, RegRBP)
			s.Emit.g(0x8d) // lea
			s.Emit.genModRMLocal(r, sv.Offset)
		}

	case LocLLocal:
		s.loadFromRBP(r, sv.Offset, 8, false)
		if sv.LValue {
			s.loadThroughReg(r, r, size, signed)
		}

	case LocSymbol:
		if sv.LValue {
			s.loadFromRIP(r, sv.Sym, size, signed)
		} else {
			s.Emit.genRex(true, r, 0, 0)
			s.Emit.g(0x8d) // lea
			off := s.Emit.genModRMRIP(r)
			s.recordFixup(off, sv.Sym)
		}

	case LocReg:
		if sv.Reg != r {
			s.moveReg(r, sv.Reg)
		}
	}
}

func (s *Session) recordFixup(textOffset int, sym *Sym) {
	s.Fixups = append(s.Fixups, globalFixup{textOffset: textOffset, sym: sym, rdata: sym.IsRdata})
}

// recordCallFixup defers a direct-call displacement until the whole
// translation unit has been parsed, so a call can target a function
// defined later in the same file: by the time resolveFixups runs, every
// function symbol's .text offset is final.
//
// Deliberate fix over the reproduced original (documented in DESIGN.md):
// the original's direct-call path emits a zero placeholder with a
// relocation TODO that nothing ever resolves. This core always defers
// and patches the real `sym.Value - (site+4)` displacement instead.
func (s *Session) recordCallFixup(textOffset int, sym *Sym) {
	s.Fixups = append(s.Fixups, globalFixup{textOffset: textOffset, sym: sym, isCall: true})
}

// loadConst emits the minimal-width immediate-load for an integer
// constant: xor for zero, a sign-extended 32-bit immediate move when v
// fits, otherwise a full 64-bit movabs.
func (s *Session) loadConst(r int, v int64) {
	if v == 0 {
		s.Emit.genRex(false, r, 0, r)
		s.Emit.g(0x31) // xor r32, r32
		s.Emit.genModRM(3, r, r)
		return
	}
	if v >= -2147483648 && v <= 2147483647 {
		s.Emit.genRex(true, 0, 0, r)
		s.Emit.g(0xc7) // mov r/m64, imm32 (sign-extended)
		s.Emit.genModRM(3, 0, r)
		s.Emit.genLE32(int32(v))
		return
	}
	s.Emit.genRex(true, 0, 0, r)
	s.Emit.g(byte(0xb8 + (r & 7)))
	s.Emit.genLE64(v)
}

// loadFromRBP emits a width- and signedness-appropriate load from
// [rbp+disp] into r: movzx/movsx for sub-32-bit widths, movsxd for a
// signed 32-bit widened to 64, and a plain mov otherwise.
func (s *Session) loadFromRBP(r int, disp int64, size int, signed bool) {
	switch size {
	case 1:
		s.Emit.genRex(true, r, 0, RegRBP)
		s.Emit.g(0x0f)
		if signed {
			s.Emit.g(0xbe)
		} else {
			s.Emit.g(0xb6)
		}
		s.Emit.genModRMLocal(r, disp)
	case 2:
		s.Emit.genRex(true, r, 0, RegRBP)
		s.Emit.g(0x0f)
		if signed {
			s.Emit.g(0xbf)
		} else {
			s.Emit.g(0xb7)
		}
		s.Emit.genModRMLocal(r, disp)
	case 4:
		if signed {
			s.Emit.genRex(true, r, 0, RegRBP)
			s.Emit.g(0x63) // movsxd
			s.Emit.genModRMLocal(r, disp)
		} else {
			s.Emit.genRex(false, r, 0, RegRBP)
			s.Emit.g(0x8b)
			s.Emit.genModRMLocal(r, disp)
		}
	default:
		s.Emit.genRex(true, r, 0, RegRBP)
		s.Emit.g(0x8b)
		s.Emit.genModRMLocal(r, disp)
	}
}

// loadThroughReg loads the value addressed by register ptrReg into r,
// width/signedness-adjusted, used for LocLLocal's extra indirection.
func (s *Session) loadThroughReg(r, ptrReg int, size int, signed bool) {
	switch size {
	case 1:
		s.Emit.genRex(true, r, 0, ptrReg)
		s.Emit.g(0x0f)
		if signed {
			s.Emit.g(0xbe)
		} else {
			s.Emit.g(0xb6)
		}
		s.Emit.genModRMIndirect(r, ptrReg)
	case 2:
		s.Emit.genRex(true, r, 0, ptrReg)
		s.Emit.g(0x0f)
		if signed {
			s.Emit.g(0xbf)
		} else {
			s.Emit.g(0xb7)
		}
		s.Emit.genModRMIndirect(r, ptrReg)
	case 4:
		if signed {
			s.Emit.genRex(true, r, 0, ptrReg)
			s.Emit.g(0x63)
		} else {
			s.Emit.genRex(false, r, 0, ptrReg)
			s.Emit.g(0x8b)
		}
		s.Emit.genModRMIndirect(r, ptrReg)
	default:
		s.Emit.genRex(true, r, 0, ptrReg)
		s.Emit.g(0x8b)
		s.Emit.genModRMIndirect(r, ptrReg)
	}
}

// storeThroughReg stores r's value, width-truncated, to the address held
// in ptrReg.
func (s *Session) storeThroughReg(r, ptrReg int, size int) {
	switch size {
	case 1:
		s.Emit.genRex(false, r, 0, ptrReg)
		s.Emit.g(0x88)
	case 2:
		s.Emit.g(0x66)
		s.Emit.genRex(false, r, 0, ptrReg)
		s.Emit.g(0x89)
	case 4:
		s.Emit.genRex(false, r, 0, ptrReg)
		s.Emit.g(0x89)
	default:
		s.Emit.genRex(true, r, 0, ptrReg)
		s.Emit.g(0x89)
	}
	s.Emit.genModRMIndirect(r, ptrReg)
}

func (s *Session) loadFromRIP(r int, sym *Sym, size int, signed bool) {
	switch size {
	case 1:
		s.Emit.genRex(true, r, 0, 0)
		s.Emit.g(0x0f)
		if signed {
			s.Emit.g(0xbe)
		} else {
			s.Emit.g(0xb6)
		}
		off := s.Emit.genModRMRIP(r)
		s.recordFixup(off, sym)
	case 2:
		s.Emit.genRex(true, r, 0, 0)
		s.Emit.g(0x0f)
		if signed {
			s.Emit.g(0xbf)
		} else {
			s.Emit.g(0xb7)
		}
		off := s.Emit.genModRMRIP(r)
		s.recordFixup(off, sym)
	case 4:
		if signed {
			s.Emit.genRex(true, r, 0, 0)
			s.Emit.g(0x63)
		} else {
			s.Emit.genRex(false, r, 0, 0)
			s.Emit.g(0x8b)
		}
		off := s.Emit.genModRMRIP(r)
		s.recordFixup(off, sym)
	default:
		s.Emit.genRex(true, r, 0, 0)
		s.Emit.g(0x8b)
		off := s.Emit.genModRMRIP(r)
		s.recordFixup(off, sym)
	}
}

// store writes register r's value through sv's address, matching
// x86_64-gen.c's store(): width-truncated mov to [rbp+disp] for locals, or
// to [rip+disp32] for globals.
func (s *Session) store(r int, sv SValue) {
	size := sv.Type.Size()
	switch sv.Loc {
	case LocLLocal:
		scratch := s.pickRegister()
		if scratch == r {
			for _, alt := range allocOrder {
				if alt != r {
					scratch = alt
					break
				}
			}
		}
		s.freeRegister(scratch)
		s.loadFromRBP(scratch, sv.Offset, 8, false)
		s.storeThroughReg(r, scratch, size)
		delete(s.regUsed, scratch)

	case LocLocal:
		switch size {
		case 1:
			s.Emit.genRex(false, r, 0, RegRBP)
			s.Emit.g(0x88)
		case 2:
			s.Emit.g(0x66)
			s.Emit.genRex(false, r, 0, RegRBP)
			s.Emit.g(0x89)
		case 4:
			s.Emit.genRex(false, r, 0, RegRBP)
			s.Emit.g(0x89)
		default:
			s.Emit.genRex(true, r, 0, RegRBP)
			s.Emit.g(0x89)
		}
		s.Emit.genModRMLocal(r, sv.Offset)

	case LocSymbol:
		switch size {
		case 1:
			s.Emit.genRex(false, r, 0, 0)
			s.Emit.g(0x88)
		case 2:
			s.Emit.g(0x66)
			s.Emit.genRex(false, r, 0, 0)
			s.Emit.g(0x89)
		case 4:
			s.Emit.genRex(false, r, 0, 0)
			s.Emit.g(0x89)
		default:
			s.Emit.genRex(true, r, 0, 0)
			s.Emit.g(0x89)
		}
		off := s.Emit.genModRMRIP(r)
		s.recordFixup(off, sv.Sym)

	default:
		s.Errs.Errorf(s.here(), CategoryCodegen, "cannot store to a non-lvalue")
	}
}
