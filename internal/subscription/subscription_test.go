package subscription

import (
	"testing"

	"github.com/rishav/cruncher/internal/bignum"
)

func TestAddEntryReplaces(t *testing.T) {
	s := New(bignum.FromUint64(101))
	s.AddEntry(1, bignum.FromUint64(2), 0)
	if s.EntryCount() != 1 {
		t.Fatalf("EntryCount() = %d, want 1", s.EntryCount())
	}

	s.AddEntry(1, bignum.FromUint64(9), 0)
	if s.EntryCount() != 1 {
		t.Fatalf("EntryCount() = %d, want 1 after replace", s.EntryCount())
	}
	got := s.Entry(1).Exponentiate(bignum.FromUint64(1), s.Modulus)
	if got.Hex() != bignum.FromUint64(9).Hex() {
		t.Errorf("replaced entry base^1 = %s, want 9", got.Hex())
	}
}

func TestEntryMissingStreamIsNil(t *testing.T) {
	s := New(bignum.FromUint64(101))
	if e := s.Entry(42); e != nil {
		t.Errorf("Entry(42) on empty subscription should be nil, got %v", e)
	}
}

func TestRefCountingGatesRemoval(t *testing.T) {
	s := New(bignum.FromUint64(101))
	s.Ref()
	s.Ref()
	s.MarkRemoved()

	if done := s.Unref(); done {
		t.Fatalf("Unref should report false while still referenced")
	}
	if done := s.Unref(); !done {
		t.Fatalf("Unref should report true once removed and unreferenced")
	}
}

func TestUnrefWithoutRemovalNeverSignalsDone(t *testing.T) {
	s := New(bignum.FromUint64(101))
	s.Ref()
	if done := s.Unref(); done {
		t.Errorf("Unref on a non-removed subscription should never report done")
	}
}
