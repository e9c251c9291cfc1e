package main

import (
	"os"
	"path/filepath"
	"testing"

	mewpe "github.com/mewrev/pe"
	"golang.org/x/arch/x86/x86asm"
)

func buildSimpleImage(t *testing.T) ([]byte, *Session) {
	t.Helper()
	const src = `
int add(int a, int b) {
	return a + b;
}
int main() {
	return add(2, 3);
}
`
	s := NewSession("sample.c", []byte(src), Config{MaxErrors: 10})
	p := NewParser(s)
	p.ParseFile()
	if s.Errs.HasErrors() {
		t.Fatalf("unexpected compile errors: %v", s.Errs.Errors())
	}
	return BuildImage(s), s
}

func TestBuildImageDOSAndPESignatures(t *testing.T) {
	img, _ := buildSimpleImage(t)
	if img[0] != 'M' || img[1] != 'Z' {
		t.Fatalf("DOS signature = %q, want \"MZ\"", img[:2])
	}
	peOff := int(img[0x3c]) | int(img[0x3d])<<8 | int(img[0x3e])<<16 | int(img[0x3f])<<24
	if string(img[peOff:peOff+4]) != "PE\x00\x00" {
		t.Fatalf("PE signature at %#x = %q, want \"PE\\x00\\x00\"", peOff, img[peOff:peOff+4])
	}
}

func TestBuildImageSizeIsFileAligned(t *testing.T) {
	img, _ := buildSimpleImage(t)
	if len(img)%peFileAlign != 0 {
		t.Errorf("image size %d is not a multiple of peFileAlign (%d)", len(img), peFileAlign)
	}
	if len(img) < peHeaderSize {
		t.Errorf("image size %d smaller than the header region %d", len(img), peHeaderSize)
	}
}

func TestBuildImageSynthesizesMainWhenTextEmpty(t *testing.T) {
	s := NewSession("empty.c", []byte(""), Config{})
	img := BuildImage(s)
	if len(img) == 0 {
		t.Fatal("BuildImage on an empty translation unit produced no bytes")
	}
	textRaw := img[peHeaderSize:]
	for i, want := range synthesizedMain {
		if textRaw[i] != want {
			t.Fatalf(".text byte %d = %#x, want %#x (synthesized main)", i, textRaw[i], want)
		}
	}
}

// TestBuildImageTextDisassemblesCleanly takes the .text bytes from the
// written image (they start at peHeaderSize, the first raw-data offset) and
// confirms golang.org/x/arch's disassembler recognizes every instruction in
// them, independent of the emitter's own bookkeeping.
func TestBuildImageTextDisassemblesCleanly(t *testing.T) {
	img, s := buildSimpleImage(t)
	raw := img[peHeaderSize : peHeaderSize+len(s.Text.Bytes())]
	code := raw
	for len(code) > 0 {
		inst, err := x86asm.Decode(code, 64)
		if err != nil {
			t.Fatalf("invalid instruction %d bytes into .text: %v", len(raw)-len(code), err)
		}
		code = code[inst.Len:]
	}
}

// TestBuildImageReopensWithMewrevPE round-trips the freshly written image
// through an independent PE reader and checks that the entry point it
// reports agrees with the offset of main in .text.
func TestBuildImageReopensWithMewrevPE(t *testing.T) {
	img, s := buildSimpleImage(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.exe")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		t.Fatalf("writing temp image: %v", err)
	}

	file, err := mewpe.Open(path)
	if err != nil {
		t.Fatalf("mewrev/pe.Open: %v", err)
	}
	defer file.Close()

	opt, err := file.OptHeader()
	if err != nil {
		t.Fatalf("OptHeader: %v", err)
	}

	mainSym, ok := s.Syms.FindGlobal("main")
	if !ok {
		t.Fatal("test program has no main symbol to check the entry point against")
	}
	wantEntry := uint32(peSectionAlign) + uint32(mainSym.Value)
	if uint32(opt.EntryRelAddr) != wantEntry {
		t.Errorf("entry RVA reported by mewrev/pe = %#x, want %#x", opt.EntryRelAddr, wantEntry)
	}
}
