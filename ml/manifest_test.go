package ml

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifestFormats(t *testing.T) {
	for _, path := range []string{"testdata/columns.json", "testdata/columns.yaml"} {
		manifest, err := LoadManifest(path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", path, err)
		}
		if len(manifest) != len(OneHotColumns()) {
			t.Fatalf("%s: expected %d columns, got %d", path, len(OneHotColumns()), len(manifest))
		}
		for i, col := range OneHotColumns() {
			if manifest[i] != col {
				t.Fatalf("%s: column %d: expected %s, got %s", path, i, col, manifest[i])
			}
		}
	}
}

func TestLoadManifestObjectForm(t *testing.T) {
	manifest, err := LoadManifest("testdata/columns_reordered.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if manifest[0] != "smoker" {
		t.Fatalf("expected smoker first, got %s", manifest[0])
	}
}

func TestLoadManifestYAMLList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yml")
	if err := os.WriteFile(path, []byte("- age\n- bmi\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(manifest) != 2 || manifest[1] != "bmi" {
		t.Fatalf("unexpected manifest %v", manifest)
	}
}

func TestLoadManifestRejectsBadFiles(t *testing.T) {
	if _, err := LoadManifest("testdata/columns_duplicate.json"); err == nil {
		t.Fatal("expected error for duplicate column")
	}
	if _, err := LoadManifest("testdata/missing.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte("[]"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(empty); err == nil {
		t.Fatal("expected error for empty manifest")
	}
}
