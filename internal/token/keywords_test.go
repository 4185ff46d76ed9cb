package token

import (
	"testing"
)

func TestLookupKeywordAnnotations(t *testing.T) {
	cases := map[string]Kind{
		"memory_guarded":          KwMemGuarded,
		"memory_owner":            KwMemOwner,
		"memory_take_possession":  KwMemTakePossession,
		"memory_keep_alive":       KwMemKeepAlive,
		"memory_release_after_of": KwMemReleaseAfter,
		"memory_owner_of":         KwMemOwnerOf,
		"memory_ref_count":        KwMemRefCount,
		"memory_ptr_inout":        KwMemPtrInOut,
		"memory_ptr_out":          KwMemPtrOut,
		"m_g":                     KwMemGuarded,
		"m_o":                     KwMemOwner,
		"m_t":                     KwMemTakePossession,
		"m_rc":                    KwMemRefCount,
		"m_io":                    KwMemPtrInOut,
		"m_out":                   KwMemPtrOut,
	}
	for spelling, want := range cases {
		got, ok := LookupKeyword(spelling)
		if !ok || got != want {
			t.Errorf("%q: got (%v, %v), want %v", spelling, got, ok, want)
		}
	}
}

func TestLookupKeywordIsCaseSensitive(t *testing.T) {
	if _, ok := LookupKeyword("Struct"); ok {
		t.Fatal("capitalized keyword must not match")
	}
	if _, ok := LookupKeyword("null"); ok {
		t.Fatal("lowercase NULL must not match")
	}
}

func TestRegisterAlias(t *testing.T) {
	if RegisterAlias("my_guarded", KwMemGuarded) != true {
		t.Fatal("alias registration failed")
	}
	if k, ok := LookupKeyword("my_guarded"); !ok || k != KwMemGuarded {
		t.Fatalf("alias lookup: got (%v, %v)", k, ok)
	}
	if RegisterAlias("bogus", KwStruct) {
		t.Fatal("non-annotation kinds must be rejected")
	}
	if RegisterAlias("", KwMemOwner) {
		t.Fatal("empty spelling must be rejected")
	}
}
