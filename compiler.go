package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Session aggregates everything one compilation needs: the byte reader and
// lexer over the source file, the scoped symbol table, the three output
// sections, the value stack and its register-allocation bookkeeping, and
// the diagnostics collector. Held by value per a single compilation the
// way original_source/src/tcc.c's TCCState is a single global instance per
// run; here it's an explicit struct instead of process-wide globals.
type Session struct {
	File   string
	Lexer  *Lexer
	Syms   *SymStack
	Errs   *ErrorCollector
	Config Config

	Text  *Section
	Data  *Section
	Rdata *Section
	Emit  *Emitter

	VStack      []SValue
	regUsed     map[int]bool
	LocalOffset int64

	Fixups      []globalFixup
	strCount    int
	curTokLine  int
	curTokCol   int

	funcReturnTypes map[*Sym]CType
	loopLabels      []loopLabels
}

// loopLabels tracks the continue/break targets of an enclosing loop. A
// stack entry is pushed on loop entry and popped on exit so break/continue
// nested in an inner loop bind to the innermost one, matching ordinary C
// scoping; the reproduced original never actually consumes this
// (break/continue are parsed and dropped), but the stack is still threaded
// through so that decision lives in one place (stmt.go).
type loopLabels struct {
	continueLabel *Label
	breakLabel    *Label
}

// NewSession wires up the sections, symbol table, diagnostics collector,
// and lexer for compiling filename's contents read from src.
func NewSession(filename string, src []byte, cfg Config) *Session {
	errs := NewErrorCollector(cfg.MaxErrors)
	text := NewSection(".text")
	s := &Session{
		File:    filename,
		Syms:    NewSymStack(),
		Errs:    errs,
		Config:  cfg,
		Text:    text,
		Data:    NewSection(".data"),
		Emit:            NewEmitter(text),
		regUsed:         make(map[int]bool),
		funcReturnTypes: make(map[*Sym]CType),
	}
	s.Lexer = NewLexer(newByteReader(byteSliceReader(src)), filename, errs)
	errs.SetSource(src)
	return s
}

// byteSliceReader adapts a []byte to io.Reader without pulling in
// bytes.Reader's extra surface: a small purpose-built adapter around the
// standard Writer/Reader interfaces.
type byteSliceReaderT struct {
	b   []byte
	pos int
}

func byteSliceReader(b []byte) *byteSliceReaderT { return &byteSliceReaderT{b: b} }

func (r *byteSliceReaderT) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}

// here reports the current lexer position for diagnostics raised outside
// the token-driven parser loop (value-stack overflow, register errors).
func (s *Session) here() SourceLocation {
	return SourceLocation{File: s.File, Line: s.curTokLine, Column: s.curTokCol}
}

// rdataSection lazily creates .rdata on first use, matching the original's
// "allocate a section only once something needs it" convention.
func (s *Session) rdataSection() *Section {
	if s.Rdata == nil {
		s.Rdata = NewSection(".rdata")
	}
	return s.Rdata
}

// allocLocal reserves size bytes (8-byte aligned) in the current
// function's frame and returns the resulting negative RBP-relative
// offset, matching original_source/src/parse.c's local scalar/array
// declaration path.
func (s *Session) allocLocal(size int) int64 {
	aligned := (size + 7) &^ 7
	s.LocalOffset -= int64(aligned)
	return s.LocalOffset
}

// internString interns s as a NUL-terminated byte sequence in .rdata,
// returning (or creating) its backing symbol, matching
// original_source/src/parse.c's expr_primary TOK_STR handling: string
// literals are lazily materialized data, not re-emitted per occurrence
// site beyond the pointer load.
func (s *Session) internString(lit string) *Sym {
	rd := s.rdataSection()
	off := rd.Append(append([]byte(lit), 0))
	s.strCount++
	sym := &Sym{Name: "", Type: NewPointer(VTByte), Value: int64(off), IsRdata: true}
	return sym
}

// resolveFixups patches every recorded RIP-relative displacement once
// .text/.data/.rdata are all at their final size, since this core emits a
// single in-memory image with no relocation table: section RVAs (and
// therefore every global symbol's absolute displacement from any given
// instruction) are only fully known at this point. Grounded on the same
// "patch once layout is final" idea as the jump patch chains, generalized
// from intra-.text offsets to cross-section RVAs.
func (s *Session) resolveFixups(textRVA, dataRVA, rdataRVA uint32) {
	for _, fx := range s.Fixups {
		if fx.isCall {
			disp := int32(fx.sym.Value - int64(fx.textOffset+4))
			s.Text.PatchLE32(fx.textOffset, disp)
			continue
		}
		var targetRVA uint32
		if fx.rdata {
			targetRVA = rdataRVA + uint32(fx.sym.Value)
		} else if fx.sym.Type.Basic() == VTFunc {
			targetRVA = textRVA + uint32(fx.sym.Value)
		} else {
			targetRVA = dataRVA + uint32(fx.sym.Value)
		}
		instrEnd := uint32(textRVA) + uint32(fx.textOffset) + 4
		disp := int32(targetRVA) - int32(instrEnd)
		s.Text.PatchLE32(fx.textOffset, disp)
	}
}

// CompileFile reads filename, compiles it, and writes the resulting PE32+
// image to outPath. It mirrors original_source/src/tcc.c's
// tcc_new/tcc_compile/tcc_output_file sequence: open, parse the whole
// translation unit, then emit. I/O boundary failures are wrapped with
// github.com/pkg/errors for call-site context; parse/codegen diagnostics
// go through the ErrorCollector instead of Go's error type, since they
// accumulate rather than unwind the call stack.
func CompileFile(filename, outPath string, cfg Config) error {
	src, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "reading %s", filename)
	}

	s := NewSession(filename, src, cfg)
	p := NewParser(s)
	p.ParseFile()

	if s.Errs.HasErrors() {
		s.Errs.PrintTo(os.Stderr, !cfg.NoColor)
		return errors.Errorf("compilation of %s failed with %d error(s)", filename, len(s.Errs.Errors()))
	}

	img := BuildImage(s)

	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "creating %s", outPath)
	}
	defer out.Close()

	if _, err := out.Write(img); err != nil {
		return errors.Wrapf(err, "writing %s", outPath)
	}
	return nil
}
