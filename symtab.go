package main

// symHashSize is the symbol hash table's bucket count, a power of two so
// the mask in strHash is a cheap AND, matching
// original_source/src/tcc.h's SYM_HASH_SIZE.
const symHashSize = 8192

// Sym is one declared identifier: its name, type, and storage location
// (an offset into .data for globals, a negative RBP-relative offset for
// locals, or a .text offset for functions).
type Sym struct {
	Name    string
	Type    CType
	Value   int64 // local frame offset, global .data offset, or .text offset
	Scope   int
	IsRdata bool // true when Value is an offset into .rdata (string literals)

	prevInBucket *Sym // older symbol in the same hash bucket
	prevInScope  *Sym // symbol pushed immediately before this one
}

// SymStack is a hash-chained, scope-stacked symbol table, grounded on
// original_source/src/sym.c: str_hash's h=h*31+c multiplicative hash
// masked to symHashSize, prepend-on-push into both the bucket chain and
// the scope chain, and scope-pop that walks the scope chain back to a
// mark, restoring each bucket head to its prevInBucket link. Teacher
// hashmap.go's Vibe67HashMap chains the same way; this generalizes it from
// a flat map to a scope-aware stack.
type SymStack struct {
	buckets [symHashSize]*Sym
	top     *Sym // most recently pushed symbol, scope-chain head
	scope   int
}

// strHash is the original's multiplicative string hash, masked to the
// table size.
func strHash(s string) int {
	h := 0
	for i := 0; i < len(s); i++ {
		h = h*31 + int(s[i])
	}
	h &= symHashSize - 1
	if h < 0 {
		h += symHashSize
	}
	return h
}

// NewSymStack creates an empty symbol table at scope 0 (global scope).
func NewSymStack() *SymStack {
	return &SymStack{}
}

// PushScope enters a new nested scope and returns a mark to pass to
// PopScope.
func (s *SymStack) PushScope() *Sym {
	s.scope++
	return s.top
}

// Push declares name with the given type/value in the current scope,
// prepending it to both its hash bucket and the scope chain.
func (s *SymStack) Push(name string, typ CType, value int64) *Sym {
	h := strHash(name)
	sym := &Sym{
		Name:         name,
		Type:         typ,
		Value:        value,
		Scope:        s.scope,
		prevInBucket: s.buckets[h],
		prevInScope:  s.top,
	}
	s.buckets[h] = sym
	s.top = sym
	return sym
}

// PopScope unwinds every symbol pushed since mark, restoring each vacated
// bucket's head to the symbol it shadowed. mark is the value PushScope
// returned when the scope being closed was entered.
func (s *SymStack) PopScope(mark *Sym) {
	for s.top != mark {
		sym := s.top
		h := strHash(sym.Name)
		if s.buckets[h] == sym {
			s.buckets[h] = sym.prevInBucket
		} else {
			// A PushImplicitGlobal symbol linked in after sym sits ahead of
			// it in the bucket; unlink sym without dropping that symbol.
			for b := s.buckets[h]; b != nil; b = b.prevInBucket {
				if b.prevInBucket == sym {
					b.prevInBucket = sym.prevInBucket
					break
				}
			}
		}
		s.top = sym.prevInScope
	}
	if s.scope > 0 {
		s.scope--
	}
}

// Find looks up name in the current bucket chain; the most recently
// pushed (innermost-scope) declaration wins because pushes prepend.
func (s *SymStack) Find(name string) (*Sym, bool) {
	for sym := s.buckets[strHash(name)]; sym != nil; sym = sym.prevInBucket {
		if sym.Name == name {
			return sym, true
		}
	}
	return nil, false
}

// PushImplicitGlobal declares name as a file-scope symbol without linking it
// into the current scope chain, so it survives the PopScope of whatever
// function body or block is open when it's created. This is for the
// implicit-function-declaration case (calling a function before its
// prototype or definition is parsed): the call site may be nested arbitrarily
// deep in scopes that close long before the real top-level definition is
// parsed and needs to find and update this same *Sym in place.
func (s *SymStack) PushImplicitGlobal(name string, typ CType, value int64) *Sym {
	h := strHash(name)
	sym := &Sym{
		Name:         name,
		Type:         typ,
		Value:        value,
		Scope:        0,
		prevInBucket: s.buckets[h],
	}
	s.buckets[h] = sym
	return sym
}

// AtGlobalScope reports whether the table is currently at file scope
// (no function body or block has been entered).
func (s *SymStack) AtGlobalScope() bool { return s.scope == 0 }

// FindGlobal looks up name restricted to scope 0 declarations, used when a
// local lookup must fall through to a file-scope function or variable.
func (s *SymStack) FindGlobal(name string) (*Sym, bool) {
	for sym := s.buckets[strHash(name)]; sym != nil; sym = sym.prevInBucket {
		if sym.Name == name && sym.Scope == 0 {
			return sym, true
		}
	}
	return nil, false
}
