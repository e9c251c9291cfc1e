package main

// PE32+ layout constants, grounded field-for-field on
// original_source/src/pe.c's pe_output_file, restyled in teacher pe.go's
// idiom of closures writing into a byte buffer instead of poking offsets
// into a fixed-size C array.
const (
	peImageBase       = 0x140000000
	peSectionAlign    = 0x1000
	peFileAlign       = 0x200
	peOptionalHdrSize = 240
	peHeaderSize      = 0x200 // DOS header+stub+COFF+optional header+section table, padded to file alignment
	peDLLChars        = 0x8160
	peSubsystem       = 3 // console

	scnCode  = 0x60000020 // CNT_CODE | MEM_EXECUTE | MEM_READ
	scnData  = 0xc0000040 // CNT_INITIALIZED_DATA | MEM_READ | MEM_WRITE
	scnRdata = 0x40000040 // CNT_INITIALIZED_DATA | MEM_READ
)

// synthesizedMain is emitted in place of a user-defined main when .text
// would otherwise be empty, matching original_source/src/pe.c's fallback:
// push rbp; mov rbp,rsp; xor eax,eax; pop rbp; ret.
var synthesizedMain = []byte{0x55, 0x48, 0x89, 0xe5, 0x31, 0xc0, 0x5d, 0xc3}

func alignUp(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}

type peSection struct {
	name string
	data []byte
	rva  uint32
	raw  int
	char uint32
}

// BuildImage assembles the final PE32+ byte image from s's three output
// sections, resolving every RIP-relative global-symbol fixup first (now
// that section sizes, and therefore RVAs, are final) and locating the
// entry point at `main` if the translation unit declared one.
func BuildImage(s *Session) []byte {
	if s.Text.Size() == 0 {
		s.Text.Append(synthesizedMain)
	}

	var secs []*peSection
	textRVA := uint32(peSectionAlign)
	secs = append(secs, &peSection{name: ".text", data: s.Text.Bytes(), rva: textRVA, char: scnCode})

	nextRVA := uint32(alignUp(int(textRVA)+s.Text.Size(), peSectionAlign))
	var dataRVA, rdataRVA uint32
	if s.Data.Size() > 0 {
		dataRVA = nextRVA
		secs = append(secs, &peSection{name: ".data", data: s.Data.Bytes(), rva: dataRVA, char: scnData})
		nextRVA = uint32(alignUp(int(dataRVA)+s.Data.Size(), peSectionAlign))
	}
	if s.Rdata != nil && s.Rdata.Size() > 0 {
		rdataRVA = nextRVA
		secs = append(secs, &peSection{name: ".rdata", data: s.Rdata.Bytes(), rva: rdataRVA, char: scnRdata})
	}

	s.resolveFixups(textRVA, dataRVA, rdataRVA)
	// Refresh .text bytes: resolveFixups patches s.Text in place, and the
	// first peSection entry above aliases the same backing array.
	secs[0].data = s.Text.Bytes()

	rawOff := peHeaderSize
	for _, sec := range secs {
		sec.raw = rawOff
		rawOff += alignUp(len(sec.data), peFileAlign)
	}

	entryRVA := textRVA
	if mainSym, ok := s.Syms.FindGlobal("main"); ok && mainSym.Type.Basic() == VTFunc {
		entryRVA = textRVA + uint32(mainSym.Value)
	}

	buf := make([]byte, rawOff)
	writeDOSHeader(buf)
	writeCOFFAndOptional(buf, secs, entryRVA)
	writeSectionTable(buf, secs)
	for _, sec := range secs {
		copy(buf[sec.raw:], sec.data)
	}
	return buf
}

func putU16(b []byte, off int, v uint16) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
}

func putU32(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

func putU64(b []byte, off int, v uint64) {
	for i := 0; i < 8; i++ {
		b[off+i] = byte(v >> (8 * uint(i)))
	}
}

// writeDOSHeader writes the minimal MZ header and stub, ending with the
// PE signature offset (0x80) stored at 0x3c, matching the original's
// fixed 128-byte (0x80) DOS region.
func writeDOSHeader(b []byte) {
	b[0], b[1] = 'M', 'Z'
	putU32(b, 0x3c, 0x80)
}

// writeCOFFAndOptional writes the PE signature, COFF header, and PE32+
// optional header starting at offset 0x80, matching
// original_source/src/pe.c's exact byte offsets (signature at 0x80, COFF
// header at 0x84, optional header at 0x98).
func writeCOFFAndOptional(b []byte, secs []*peSection, entryRVA uint32) {
	const sigOff = 0x80
	const coffOff = sigOff + 4
	const optOff = coffOff + 20

	b[sigOff], b[sigOff+1], b[sigOff+2], b[sigOff+3] = 'P', 'E', 0, 0

	putU16(b, coffOff+0, 0x8664) // machine: x86-64
	putU16(b, coffOff+2, uint16(len(secs)))
	putU32(b, coffOff+4, 0) // timestamp, deterministic build
	putU32(b, coffOff+8, 0) // symbol table pointer
	putU32(b, coffOff+12, 0)
	putU16(b, coffOff+16, peOptionalHdrSize)
	putU16(b, coffOff+18, 0x0022) // characteristics: executable, large-address-aware

	putU16(b, optOff+0, 0x20b) // PE32+ magic
	b[optOff+2] = 1            // linker version major
	b[optOff+3] = 0
	putU32(b, optOff+4, uint32(sectionSize(secs, scnCode)))  // size of code
	putU32(b, optOff+8, uint32(sectionSize(secs, scnData)))  // size of init data
	putU32(b, optOff+12, 0)                                  // size of uninit data
	putU32(b, optOff+16, entryRVA)
	putU32(b, optOff+20, peSectionAlign) // base of code
	putU64(b, optOff+24, peImageBase)
	putU32(b, optOff+32, peSectionAlign)
	putU32(b, optOff+36, peFileAlign)
	putU16(b, optOff+40, 6) // OS version major
	putU16(b, optOff+42, 0)
	putU16(b, optOff+44, 0) // image version
	putU16(b, optOff+46, 0)
	putU16(b, optOff+48, 6) // subsystem version major
	putU16(b, optOff+50, 0)
	putU32(b, optOff+52, 0) // win32 version
	putU32(b, optOff+56, uint32(imageSize(secs)))
	putU32(b, optOff+60, peHeaderSize)
	putU32(b, optOff+64, 0) // checksum
	putU16(b, optOff+68, peSubsystem)
	putU16(b, optOff+70, peDLLChars)
	putU64(b, optOff+72, 0x100000) // stack reserve
	putU64(b, optOff+80, 0x1000)   // stack commit
	putU64(b, optOff+88, 0x100000) // heap reserve
	putU64(b, optOff+96, 0x1000)   // heap commit
	putU32(b, optOff+104, 0)       // loader flags
	putU32(b, optOff+108, 16)      // number of data directories
	// 16 * 8 = 128 bytes of zeroed data directories follow; buf is
	// pre-zeroed, so nothing further to write here.
}

func sectionSize(secs []*peSection, char uint32) int {
	total := 0
	for _, s := range secs {
		if s.char == char {
			total += alignUp(len(s.data), peFileAlign)
		}
	}
	return total
}

func imageSize(secs []*peSection) int {
	size := peSectionAlign
	for _, s := range secs {
		size = alignUp(int(s.rva)+len(s.data), peSectionAlign)
	}
	return size
}

// writeSectionTable writes one 40-byte header per section starting at
// 0x188 (0x98 + peOptionalHdrSize), matching the original's fixed layout.
func writeSectionTable(b []byte, secs []*peSection) {
	const tableOff = 0x98 + peOptionalHdrSize
	for i, sec := range secs {
		off := tableOff + i*40
		copy(b[off:off+8], []byte(sec.name))
		putU32(b, off+8, uint32(len(sec.data)))
		putU32(b, off+12, sec.rva)
		putU32(b, off+16, uint32(alignUp(len(sec.data), peFileAlign)))
		putU32(b, off+20, uint32(sec.raw))
		putU32(b, off+24, 0)
		putU32(b, off+28, 0)
		putU16(b, off+32, 0)
		putU16(b, off+34, 0)
		putU32(b, off+36, sec.char)
	}
}
