package cache

import (
	"testing"

	"github.com/breezemail/breeze/internal/domain"
)

func TestThreadIndex_PutGet(t *testing.T) {
	ix := NewThreadIndex()
	ix.Put(testThread("a"))

	got, ok := ix.Get("a")
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got.ID != "a" {
		t.Errorf("ID = %q, want a", got.ID)
	}

	if _, ok := ix.Get("missing"); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestThreadIndex_PutMany_Overwrites(t *testing.T) {
	ix := NewThreadIndex()
	ix.Put(testThread("a"))

	updated := testThread("a")
	updated.Subject = "changed"
	ix.PutMany([]domain.Thread{updated, testThread("b")})

	if ix.Len() != 2 {
		t.Errorf("Len = %d, want 2", ix.Len())
	}
	got, _ := ix.Get("a")
	if got.Subject != "changed" {
		t.Errorf("Subject = %q, want changed", got.Subject)
	}
}

func TestThreadIndex_Update(t *testing.T) {
	ix := NewThreadIndex()
	ix.Put(testThread("a"))

	if !ix.Update("a", func(th *domain.Thread) { th.IsRead = false }) {
		t.Fatal("Update on present thread returned false")
	}
	got, _ := ix.Get("a")
	if got.IsRead {
		t.Error("update not applied")
	}

	// A miss is advisory, not an error.
	if ix.Update("missing", func(th *domain.Thread) {}) {
		t.Error("Update on missing thread returned true")
	}
}

func TestThreadIndex_Reset(t *testing.T) {
	ix := NewThreadIndex()
	ix.Put(testThread("a"))
	ix.Reset()
	if ix.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", ix.Len())
	}
}
