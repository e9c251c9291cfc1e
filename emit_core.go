package main

// Emitter appends machine code to a .text section, tracking the current
// offset (ind) the way original_source/src/x86_64-gen.c's global `ind`
// does, here scoped to one Session instead of a process-global.
type Emitter struct {
	text *Section
}

// NewEmitter wraps text for code emission.
func NewEmitter(text *Section) *Emitter {
	return &Emitter{text: text}
}

// Ind returns the current end-of-.text offset, equivalent to the
// original's `ind`.
func (e *Emitter) Ind() int { return e.text.Size() }

// g appends one raw byte, mirroring x86_64-gen.c's g().
func (e *Emitter) g(b byte) { e.text.AppendByte(b) }

// genLE32 appends v little-endian over 4 bytes.
func (e *Emitter) genLE32(v int32) {
	u := uint32(v)
	e.g(byte(u))
	e.g(byte(u >> 8))
	e.g(byte(u >> 16))
	e.g(byte(u >> 24))
}

// genLE64 appends v little-endian over 8 bytes.
func (e *Emitter) genLE64(v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		e.g(byte(u >> (8 * uint(i))))
	}
}

// genRex emits a REX prefix when w/r/x/b actually need one of their bits
// set, matching gen_rex's "omit when all zero and register numbers fit in
// 3 bits" behavior — callers pass the raw register numbers (0-15) and this
// decides whether REX.R/X/B are required.
func (e *Emitter) genRex(w bool, reg, idx, rm int) {
	rexR := reg >= 8
	rexX := idx >= 8
	rexB := rm >= 8
	if !w && !rexR && !rexX && !rexB {
		return
	}
	b := byte(0x40)
	if w {
		b |= 0x08
	}
	if rexR {
		b |= 0x04
	}
	if rexX {
		b |= 0x02
	}
	if rexB {
		b |= 0x01
	}
	e.g(b)
}

// genModRM emits a single ModRM byte with the given mod (0-3), reg, and rm
// fields, masking register numbers to their low 3 bits (the REX prefix, if
// any, carries bit 3).
func (e *Emitter) genModRM(mod, reg, rm int) {
	e.g(byte(mod<<6 | (reg&7)<<3 | (rm & 7)))
}

// genModRMIndirect emits a ModRM byte for [rm] with no displacement (mod
// 00), used for one-level-of-indirection loads/stores through a pointer
// already held in a register. Only valid when rm isn't RSP/R12 (needs a
// SIB byte) or RBP/R13 (mod=00,rm=101 means RIP-relative instead) — this
// core's register allocator never assigns those, so the restriction never
// bites.
func (e *Emitter) genModRMIndirect(reg, rm int) {
	e.genModRM(0, reg, rm)
}

// genModRMStack emits a ModRM+SIB+disp32 addressing [rsp+disp], used for
// stack-passed call arguments. RSP as a base register always requires a
// SIB byte (ModRM.rm==100 is the SIB escape, even though RSP's own
// encoding is also 100), unlike genModRMLocal's RBP-based addressing.
func (e *Emitter) genModRMStack(reg int, disp int32) {
	e.genModRM(2, reg, 4)
	e.g(0x24) // SIB: scale=00, index=100 (none), base=100 (RSP)
	e.genLE32(disp)
}

// genModRMLocal emits a ModRM+displacement addressing [rbp+disp], using
// mod=01/disp8 when disp fits in a signed byte and mod=10/disp32
// otherwise, matching x86_64-gen.c's gen_modrm_local.
func (e *Emitter) genModRMLocal(reg int, disp int64) {
	if disp >= -128 && disp <= 127 {
		e.genModRM(1, reg, RegRBP)
		e.g(byte(int8(disp)))
		return
	}
	e.genModRM(2, reg, RegRBP)
	e.genLE32(int32(disp))
}
