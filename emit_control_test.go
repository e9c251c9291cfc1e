package main

import "testing"

func TestFuncPrologEpilogDecodeCleanly(t *testing.T) {
	s := newTestSession()
	s.genFuncProlog()
	s.genFuncEpilog()
	decodeAllValid(t, s.Text.Bytes())
}

func TestGjmpBackwardResolvedImmediately(t *testing.T) {
	s := newTestSession()
	top := s.gind()
	s.glabel(top)
	beforeSize := s.Text.Size()
	s.gjmp(top)
	if s.Text.Size() != beforeSize+5 {
		t.Fatalf("gjmp to a resolved label emitted %d bytes, want 5 (e9 + disp32)", s.Text.Size()-beforeSize)
	}
	disp := s.Text.ReadLE32(beforeSize + 1)
	wantDisp := int32(top.pos - (beforeSize + 5))
	if disp != wantDisp {
		t.Errorf("backward jmp disp = %d, want %d", disp, wantDisp)
	}
	decodeAllValid(t, s.Text.Bytes())
}

func TestGjmpForwardThenGlabelPatchesChain(t *testing.T) {
	s := newTestSession()
	end := s.gind()
	site := s.Text.Size() + 1 // placeholder offset: the 0xe9 opcode byte comes first
	s.gjmp(end)               // forward, unresolved: disp32 placeholder holds -1 (chain head)
	if s.Text.ReadLE32(site) != -1 {
		t.Errorf("unresolved forward jmp placeholder = %d, want -1 (empty chain)", s.Text.ReadLE32(site))
	}
	s.glabel(end)
	if !end.resolved {
		t.Fatal("glabel did not mark the label resolved")
	}
	disp := s.Text.ReadLE32(site)
	want := int32(end.pos - (site + 4))
	if disp != want {
		t.Errorf("resolved forward jmp disp = %d, want %d", disp, want)
	}
	decodeAllValid(t, s.Text.Bytes())
}

func TestGjmpMultipleForwardReferencesAllPatched(t *testing.T) {
	s := newTestSession()
	end := s.gind()
	var sites []int
	for i := 0; i < 3; i++ {
		sites = append(sites, s.Text.Size()+1)
		s.gjmp(end)
	}
	s.glabel(end)
	for _, site := range sites {
		disp := s.Text.ReadLE32(site)
		want := int32(end.pos - (site + 4))
		if disp != want {
			t.Errorf("site %d: disp = %d, want %d", site, disp, want)
		}
	}
}

func TestGtstInvertsConditionOnRequest(t *testing.T) {
	s := newTestSession()
	s.vpush(SValue{Type: VTInt, Loc: LocCmp, Cond: CondEq})
	l := s.gind()
	s.gtst(true, l)
	// jcc opcode byte follows the 0x0f escape.
	b := s.Text.Bytes()
	if b[0] != 0x0f {
		t.Fatalf("gtst did not emit a two-byte Jcc opcode, first byte = %#x", b[0])
	}
	wantOp := setccOpcodes[CondNe] - 0x10
	if b[1] != wantOp {
		t.Errorf("inverted jcc opcode = %#x, want %#x (jne, inverted from je)", b[1], wantOp)
	}
}

func TestGenCallDirectRecordsFixup(t *testing.T) {
	s := newTestSession()
	callee := s.Syms.Push("f", VTFunc, 1000) // pretend f starts at .text offset 1000
	s.genCall(callee, nil, 0)

	if len(s.Fixups) != 1 {
		t.Fatalf("genCall recorded %d fixups, want 1", len(s.Fixups))
	}
	fx := s.Fixups[0]
	if !fx.isCall || fx.sym != callee {
		t.Errorf("fixup = %+v, want isCall=true targeting the callee symbol", fx)
	}
	if len(s.VStack) != 1 || s.VStack[0].Reg != RegRAX {
		t.Errorf("call result = %+v, want one LocReg(RAX) entry", s.VStack)
	}
	decodeAllValid(t, s.Text.Bytes())
}

func TestGenCallForwardReferenceResolvesAfterFixup(t *testing.T) {
	s := newTestSession()
	// The callee isn't defined yet: Value is still a placeholder (-1),
	// matching exprPrimary's implicit-function-declaration path.
	callee := s.Syms.Push("later", VTFunc, -1)
	s.genCall(callee, nil, 0)
	site := s.Fixups[0].textOffset

	// "Parsing" the definition later updates the same *Sym in place.
	callee.Value = 42

	s.resolveFixups(0x1000, 0, 0)
	disp := s.Text.ReadLE32(site)
	want := int32(callee.Value - int64(site+4))
	if disp != want {
		t.Errorf("forward-call disp after resolveFixups = %d, want %d", disp, want)
	}
}

func TestGenCallArgumentsLoadIntoABIRegisters(t *testing.T) {
	s := newTestSession()
	callee := s.Syms.Push("add2", VTFunc, 0)
	s.vpush(SValue{Type: VTInt, Loc: LocConst, Offset: 10})
	s.vpush(SValue{Type: VTInt, Loc: LocConst, Offset: 20})
	s.genCall(callee, nil, 2)
	decodeAllValid(t, s.Text.Bytes())
	if len(s.VStack) != 1 {
		t.Fatalf("stack depth after call = %d, want 1", len(s.VStack))
	}
}

// TestGenCallSixArgumentsStoresPastShadowSpace exercises the 5th/6th
// argument path: those are stack-passed, and must land at [rsp+32+...],
// past the callee's 32-byte shadow space, not inside it (where they would
// clobber the first two register-homed parameters' spill slots).
func TestGenCallSixArgumentsStoresPastShadowSpace(t *testing.T) {
	s := newTestSession()
	callee := s.Syms.Push("add6", VTFunc, 0)
	for i := int64(1); i <= 6; i++ {
		s.vpush(SValue{Type: VTInt, Loc: LocConst, Offset: i * 10})
	}
	s.genCall(callee, nil, 6)
	decodeAllValid(t, s.Text.Bytes())

	code := s.Text.Bytes()
	var stackStoreDisps []int32
	for i := 0; i+6 <= len(code); i++ {
		// mov [rsp+disp32], r: ModRM mod=10/rm=100 (SIB escape) followed
		// by the SIB byte 0x24 (scale=00, index=100 none, base=100 RSP).
		if code[i]&0xc7 == 0x84 && code[i+1] == 0x24 {
			disp := int32(uint32(code[i+2]) | uint32(code[i+3])<<8 | uint32(code[i+4])<<16 | uint32(code[i+5])<<24)
			stackStoreDisps = append(stackStoreDisps, disp)
		}
	}
	if len(stackStoreDisps) != 2 {
		t.Fatalf("found %d stack-argument stores, want 2 (args 5 and 6): %v", len(stackStoreDisps), stackStoreDisps)
	}
	for _, disp := range stackStoreDisps {
		if disp < 32 {
			t.Errorf("stack-argument store at disp %d falls inside the 32-byte shadow space", disp)
		}
	}
	wantDisps := map[int32]bool{32: false, 40: false}
	for _, disp := range stackStoreDisps {
		if _, ok := wantDisps[disp]; ok {
			wantDisps[disp] = true
		}
	}
	for disp, found := range wantDisps {
		if !found {
			t.Errorf("expected a stack-argument store at disp %d, none found (got %v)", disp, stackStoreDisps)
		}
	}
}
