package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSha256(t *testing.T) {
	t.Run("bytes digest matches known value", func(t *testing.T) {
		// sha256 of the empty input
		want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
		if got := Sha256Bytes(nil); got != want {
			t.Errorf("Sha256Bytes(nil) = %s, want %s", got, want)
		}
	})

	t.Run("file digest agrees with bytes digest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "input.pdb")
		data := []byte("ATOM      1  CA  MET A   1\n")
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}

		fromFile, err := Sha256File(path)
		if err != nil {
			t.Fatalf("Sha256File failed: %v", err)
		}
		if fromFile != Sha256Bytes(data) {
			t.Errorf("file digest %s differs from bytes digest", fromFile)
		}
	})

	t.Run("missing file returns error", func(t *testing.T) {
		if _, err := Sha256File(filepath.Join(t.TempDir(), "missing")); err == nil {
			t.Error("Expected error for missing file, got nil")
		}
	})
}

func TestHashToCID(t *testing.T) {
	t.Run("deterministic and input-sensitive", func(t *testing.T) {
		a := HashBytesToCID([]byte("upload-a"))
		if a != HashBytesToCID([]byte("upload-a")) {
			t.Error("Same input should produce the same CID")
		}
		if a == HashBytesToCID([]byte("upload-b")) {
			t.Error("Different inputs should produce different CIDs")
		}
		if len(a) != 64 {
			t.Errorf("CID length = %d, want 64 hex chars", len(a))
		}
	})

	t.Run("file hash agrees with bytes hash", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "input.pdb")
		data := []byte("HEADER    TEST\n")
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}

		fromFile, err := HashFileToCID(path)
		if err != nil {
			t.Fatalf("HashFileToCID failed: %v", err)
		}
		if fromFile != HashBytesToCID(data) {
			t.Errorf("file CID %s differs from bytes CID", fromFile)
		}
	})
}
