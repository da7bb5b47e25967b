package jsonfile

import (
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLoadMissingFile(t *testing.T) {
	var d doc
	found, err := Load(filepath.Join(t.TempDir(), "nope.json"), &d)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatal("expected found=false for missing file")
	}
}

func TestSaveThenLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "db.json")
	if err := Save(p, doc{Name: "van", Count: 3}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var d doc
	found, err := Load(p, &d)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if d.Name != "van" || d.Count != 3 {
		t.Fatalf("unexpected doc %+v", d)
	}

	entries, err := os.ReadDir(filepath.Dir(p))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, got %d entries", len(entries))
	}
}

func TestLoadEmptyFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(p, nil, 0644); err != nil {
		t.Fatal(err)
	}
	var d doc
	found, err := Load(p, &d)
	if err != nil || found {
		t.Fatalf("expected empty file to be treated as missing, found=%v err=%v", found, err)
	}
}

func TestLockIsPerPath(t *testing.T) {
	a := Lock("/tmp/a.json")
	if Lock("/tmp/a.json") != a {
		t.Fatal("expected same mutex for same path")
	}
	if Lock("/tmp/b.json") == a {
		t.Fatal("expected distinct mutex for different path")
	}
}
