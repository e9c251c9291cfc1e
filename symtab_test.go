package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSymStackFindAfterPush(t *testing.T) {
	st := NewSymStack()
	st.Push("x", VTInt, 42)
	sym, ok := st.Find("x")
	if !ok {
		t.Fatal("Find(\"x\") = false, want true")
	}
	if sym.Value != 42 {
		t.Errorf("sym.Value = %d, want 42", sym.Value)
	}
}

func TestSymStackShadowingAndScopePop(t *testing.T) {
	st := NewSymStack()
	st.Push("x", VTInt, 1) // global x

	mark := st.PushScope()
	st.Push("x", VTByte, 2) // inner x shadows outer

	sym, ok := st.Find("x")
	if !ok || sym.Value != 2 {
		t.Fatalf("inner scope Find(\"x\") = %+v, %v; want Value=2", sym, ok)
	}

	st.PopScope(mark)

	sym, ok = st.Find("x")
	if !ok || sym.Value != 1 {
		t.Fatalf("after PopScope, Find(\"x\") = %+v, %v; want Value=1 (outer x restored)", sym, ok)
	}
}

func TestSymStackPopRestoresBucketChainWithCollisions(t *testing.T) {
	// Two distinct names that may or may not collide in the hash table;
	// regardless, pushing/popping one must never disturb lookups of the
	// other once the scope that shadowed it closes.
	st := NewSymStack()
	st.Push("alpha", VTInt, 100)
	st.Push("beta", VTInt, 200)

	mark := st.PushScope()
	st.Push("alpha", VTInt, 999)
	st.Push("beta", VTInt, 888)
	st.PopScope(mark)

	alpha, ok := st.Find("alpha")
	if !ok || alpha.Value != 100 {
		t.Errorf("alpha after pop = %+v, %v; want Value=100", alpha, ok)
	}
	beta, ok := st.Find("beta")
	if !ok || beta.Value != 200 {
		t.Errorf("beta after pop = %+v, %v; want Value=200", beta, ok)
	}
}

func TestSymStackFindGlobalIgnoresLocalShadow(t *testing.T) {
	st := NewSymStack()
	st.Push("n", VTInt, 7) // global

	st.PushScope()
	st.Push("n", VTInt, 8) // local shadow, scope 1

	local, ok := st.Find("n")
	if !ok || local.Value != 8 {
		t.Fatalf("Find(\"n\") in inner scope = %+v, %v; want Value=8", local, ok)
	}
	global, ok := st.FindGlobal("n")
	if !ok || global.Value != 7 {
		t.Fatalf("FindGlobal(\"n\") = %+v, %v; want Value=7", global, ok)
	}
}

func TestSymStackAtGlobalScope(t *testing.T) {
	st := NewSymStack()
	if !st.AtGlobalScope() {
		t.Error("fresh SymStack should start at global scope")
	}
	mark := st.PushScope()
	if st.AtGlobalScope() {
		t.Error("AtGlobalScope() true after PushScope")
	}
	st.PopScope(mark)
	if !st.AtGlobalScope() {
		t.Error("AtGlobalScope() false after matching PopScope")
	}
}

// TestSymStackFindMissing checks that an undeclared name cleanly reports
// not-found, using go-cmp to check that the returned symbol is nil.
func TestSymStackFindMissing(t *testing.T) {
	st := NewSymStack()
	sym, ok := st.Find("nope")
	if ok {
		t.Fatalf("Find(\"nope\") = true, want false")
	}
	if diff := cmp.Diff((*Sym)(nil), sym, cmpopts.IgnoreUnexported(Sym{})); diff != "" {
		t.Errorf("Find(\"nope\") symbol mismatch (-want +got):\n%s", diff)
	}
}
