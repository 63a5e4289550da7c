package storage

import "testing"

func TestCompactionFilterKeepsLiveVersion(t *testing.T) {
	e := newTestEngine(t)
	e.SAdd([]byte("s"), [][]byte{[]byte("m")})
	f := NewCompactionFilter(e, nil)

	it := e.setDB.NewIterator(nil)
	defer it.Close()
	if !it.Next() {
		t.Fatalf("expected at least one set record")
	}
	if !f.Keep(it.Key()) {
		t.Fatalf("expected the live record to be kept")
	}
}

func TestCompactionFilterDropsOrphanedVersion(t *testing.T) {
	e := newTestEngine(t)
	e.SAdd([]byte("s"), [][]byte{[]byte("m")})
	f := NewCompactionFilter(e, nil)

	it := e.setDB.NewIterator(nil)
	if !it.Next() {
		it.Close()
		t.Fatalf("expected at least one set record")
	}
	key := it.Key()
	it.Close()

	// overwriting the key bumps its MetaRecord to a new version, orphaning the old
	// set member record the filter is being asked about.
	e.Set([]byte("s"), []byte("now a string"))

	if f.Keep(key) {
		t.Fatalf("expected the orphaned record to be dropped")
	}
}

func TestCompactionFilterDropsWhenKeyGone(t *testing.T) {
	e := newTestEngine(t)
	e.SAdd([]byte("s"), [][]byte{[]byte("m")})
	f := NewCompactionFilter(e, nil)

	it := e.setDB.NewIterator(nil)
	if !it.Next() {
		it.Close()
		t.Fatalf("expected at least one set record")
	}
	key := it.Key()
	it.Close()

	e.Del([]byte("s"))

	if f.Keep(key) {
		t.Fatalf("expected the record to be dropped once its key is deleted")
	}
}

func TestCompactionFilterRunOnceReapsOrphans(t *testing.T) {
	e := newTestEngine(t)
	e.SAdd([]byte("s"), [][]byte{[]byte("m1"), []byte("m2")})
	e.Set([]byte("s"), []byte("now a string"))

	f := NewCompactionFilter(e, nil)
	f.RunOnce()

	it := e.setDB.NewIterator(nil)
	defer it.Close()
	if it.Next() {
		t.Fatalf("expected no set records to remain after compaction, found %q", it.Key())
	}
}
