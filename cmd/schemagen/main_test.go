package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteSchema(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "realm.schema.json")
	if err := writeSchema(out, buildSchema()); err != nil {
		t.Fatalf("writeSchema: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	doc := string(raw)
	for _, want := range []string{`"Tile realm layout"`, `"RealmLayout"`, `"PathDef"`, `"spawn"`, `"structures"`} {
		if !strings.Contains(doc, want) {
			t.Fatalf("schema missing %s:\n%s", want, doc)
		}
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}
