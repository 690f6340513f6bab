package blobstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

const testMaxSize = 1 << 20 // 1 MB

// stores returns both implementations so every test runs against each.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFSStore(t.TempDir(), testMaxSize)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	return map[string]Store{
		"fs":     fs,
		"memory": NewInMemoryStore(testMaxSize),
	}
}

func TestSaveAndOpen(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			content := "patient_id,value\nP001,95\n"

			info, err := store.Save(ctx, TierUpload, "labs.csv", strings.NewReader(content))
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			if info.ID == "" {
				t.Error("expected generated ID")
			}
			if info.FileName != "labs.csv" {
				t.Errorf("file name = %q", info.FileName)
			}
			if info.Size != int64(len(content)) {
				t.Errorf("size = %d, want %d", info.Size, len(content))
			}
			wantHash := fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
			if info.Hash != wantHash {
				t.Errorf("hash = %q, want %q", info.Hash, wantHash)
			}

			rc, got, err := store.Open(ctx, TierUpload, info.ID)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer rc.Close()

			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != content {
				t.Errorf("content = %q, want %q", data, content)
			}
			if got.FileName != "labs.csv" {
				t.Errorf("opened file name = %q", got.FileName)
			}
		})
	}
}

func TestTiersAreIsolated(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			info, err := store.Save(ctx, TierUpload, "raw.csv", strings.NewReader("a,b\n"))
			if err != nil {
				t.Fatalf("Save: %v", err)
			}

			if _, _, err := store.Open(ctx, TierNormalized, info.ID); !errors.Is(err, ErrFileNotFound) {
				t.Errorf("expected ErrFileNotFound in other tier, got %v", err)
			}
		})
	}
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			big := strings.NewReader(strings.Repeat("x", testMaxSize+1))
			_, err := store.Save(context.Background(), TierUpload, "big.csv", big)
			if !errors.Is(err, ErrFileTooLarge) {
				t.Errorf("expected ErrFileTooLarge, got %v", err)
			}
		})
	}
}

func TestSaveRequiresFileName(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Save(context.Background(), TierUpload, "", strings.NewReader("data"))
			if !errors.Is(err, ErrMissingFileName) {
				t.Errorf("expected ErrMissingFileName, got %v", err)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			info, err := store.Save(ctx, TierExport, "bundle.json", strings.NewReader("{}"))
			if err != nil {
				t.Fatalf("Save: %v", err)
			}

			if err := store.Delete(ctx, TierExport, info.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, _, err := store.Open(ctx, TierExport, info.ID); !errors.Is(err, ErrFileNotFound) {
				t.Errorf("expected ErrFileNotFound after delete, got %v", err)
			}
			if err := store.Delete(ctx, TierExport, info.ID); !errors.Is(err, ErrFileNotFound) {
				t.Errorf("expected ErrFileNotFound on double delete, got %v", err)
			}
		})
	}
}

func TestStat(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			info, err := store.Save(ctx, TierNormalized, "out.json", strings.NewReader(`{"rows":[]}`))
			if err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := store.Stat(ctx, TierNormalized, info.ID)
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if got.Size != info.Size {
				t.Errorf("size = %d, want %d", got.Size, info.Size)
			}
			if got.FileName != "out.json" {
				t.Errorf("file name = %q", got.FileName)
			}

			if _, err := store.Stat(ctx, TierNormalized, "missing-id"); !errors.Is(err, ErrFileNotFound) {
				t.Errorf("expected ErrFileNotFound for missing id, got %v", err)
			}
		})
	}
}
