package sourcemap

import (
	"reflect"
	"testing"
)

func TestLocationString(t *testing.T) {
	l := Location{File: "validator.ak", Line: 12, Column: 4}
	if got := l.String(); got != "validator.ak:12:4" {
		t.Errorf("String() = %q, want %q", got, "validator.ak:12:4")
	}
}

func TestSetAndLookup(t *testing.T) {
	m := New()
	loc := Location{File: "a.ak", Line: 1, Column: 1}
	m.Set(5, loc)

	got, ok := m.Lookup(5)
	if !ok {
		t.Fatal("Lookup(5): want found")
	}
	if got != loc {
		t.Errorf("Lookup(5) = %+v, want %+v", got, loc)
	}

	if _, ok := m.Lookup(6); ok {
		t.Error("Lookup(6): want not found")
	}
}

func TestSetOverwritesWithoutDuplicatingOrder(t *testing.T) {
	m := New()
	m.Set(1, Location{File: "a", Line: 1})
	m.Set(1, Location{File: "b", Line: 2})

	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if got := m.Keys(); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("Keys() = %v, want [1]", got)
	}
	loc, _ := m.Lookup(1)
	if loc.File != "b" {
		t.Errorf("Lookup(1).File = %q, want the most recent write %q", loc.File, "b")
	}
}

func TestKeysPreservesInsertionOrder(t *testing.T) {
	m := New()
	m.Set(3, Location{File: "c"})
	m.Set(1, Location{File: "a"})
	m.Set(2, Location{File: "b"})

	if got, want := m.Keys(), []int64{3, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestRebaseShiftsEveryKey(t *testing.T) {
	m := New()
	m.Set(0, Location{File: "a", Line: 1})
	m.Set(1, Location{File: "b", Line: 2})

	shifted := m.Rebase(2)
	if shifted.Len() != 2 {
		t.Fatalf("Rebase result Len() = %d, want 2", shifted.Len())
	}
	for _, k := range []int64{0, 1} {
		orig, _ := m.Lookup(k)
		got, ok := shifted.Lookup(k + 2)
		if !ok {
			t.Fatalf("shifted map missing key %d", k+2)
		}
		if got != orig {
			t.Errorf("shifted.Lookup(%d) = %+v, want %+v", k+2, got, orig)
		}
	}
	if _, ok := shifted.Lookup(0); ok {
		t.Error("shifted map should not retain the original key 0")
	}
}
