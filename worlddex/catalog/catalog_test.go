package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write catalog fixture: %v", err)
	}
	return path
}

const sampleCatalog = `{
	"categories": [
		{"id": "birds", "name": "Birds"},
		{"id": "trees", "name": "Trees"}
	],
	"objects": [
		{"name": "Robin", "category_id": "birds", "description": "A songbird."},
		{"name": "Blue Jay", "category_id": "birds"},
		{"name": "Oak", "category_id": "trees"}
	]
}`

func TestLoadFile(t *testing.T) {
	provider, err := LoadFile(writeCatalog(t, sampleCatalog))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if got := provider.Categories(); len(got) != 2 {
		t.Errorf("Categories() = %d entries, want 2", len(got))
	}
	if got := provider.Objects(); len(got) != 3 {
		t.Errorf("Objects() = %d entries, want 3", len(got))
	}
}

func TestLoadFileSkipsMalformedEntries(t *testing.T) {
	provider, err := LoadFile(writeCatalog(t, `{
		"categories": [
			{"id": "birds", "name": "Birds"},
			{"id": "", "name": "Nameless"},
			{"id": "orphan"}
		],
		"objects": [
			{"name": "Robin", "category_id": "birds"},
			{"name": "", "category_id": "birds"},
			{"name": "Floating"}
		]
	}`))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if got := provider.Categories(); len(got) != 1 || got[0].ID != "birds" {
		t.Errorf("Categories() = %v, want only birds", got)
	}
	if got := provider.Objects(); len(got) != 1 || got[0].Name != "Robin" {
		t.Errorf("Objects() = %v, want only Robin", got)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadFile() on a missing file returned nil error")
	}
	if _, err := LoadFile(writeCatalog(t, "not json")); err == nil {
		t.Error("LoadFile() on invalid JSON returned nil error")
	}
}

func TestFindObject(t *testing.T) {
	provider, err := LoadFile(writeCatalog(t, sampleCatalog))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	tests := []struct {
		name     string
		query    string
		want     string
		wantFind bool
	}{
		{name: "exact", query: "Robin", want: "Robin", wantFind: true},
		{name: "case insensitive", query: "robin", want: "Robin", wantFind: true},
		{name: "fuzzy prefix", query: "Rob", want: "Robin", wantFind: true},
		{name: "no match", query: "xyzzy", wantFind: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := provider.FindObject(tt.query)
			if ok != tt.wantFind {
				t.Fatalf("FindObject(%q) ok = %v, want %v", tt.query, ok, tt.wantFind)
			}
			if ok && got.Name != tt.want {
				t.Errorf("FindObject(%q) = %q, want %q", tt.query, got.Name, tt.want)
			}
		})
	}
}

func TestObjectsInCategory(t *testing.T) {
	objects := []Object{
		{Name: "Robin", CategoryID: "birds"},
		{Name: "Oak", CategoryID: "trees"},
		{Name: "Blue Jay", CategoryID: "birds"},
	}

	if got := ObjectsInCategory(objects, "birds"); len(got) != 2 {
		t.Errorf("ObjectsInCategory(birds) = %d entries, want 2", len(got))
	}
	if got := ObjectsInCategory(objects, "rocks"); len(got) != 0 {
		t.Errorf("ObjectsInCategory(rocks) = %v, want none", got)
	}
}

func TestProvidersReturnCopies(t *testing.T) {
	provider, err := LoadFile(writeCatalog(t, sampleCatalog))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	provider.Categories()[0].Name = "mutated"
	if got := provider.Categories()[0].Name; got == "mutated" {
		t.Error("caller mutation leaked into the provider")
	}
}
