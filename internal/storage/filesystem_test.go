package storage

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFilesystemStorageRoundTrip(t *testing.T) {
	fs, err := NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStorage failed: %v", err)
	}
	ctx := context.Background()

	url, err := fs.Put(ctx, "poster/poster.iset", []byte("payload"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Errorf("Expected file:// URL, got %q", url)
	}

	exists, err := fs.Exists(ctx, "poster/poster.iset")
	if err != nil || !exists {
		t.Errorf("Expected key to exist, got %v / %v", exists, err)
	}

	data, err := fs.Get(ctx, "poster/poster.iset")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Errorf("Expected payload round trip, got %q", data)
	}

	deleted, err := fs.Delete(ctx, "poster/poster.iset")
	if err != nil || !deleted {
		t.Errorf("Expected delete to report true, got %v / %v", deleted, err)
	}

	exists, err = fs.Exists(ctx, "poster/poster.iset")
	if err != nil || exists {
		t.Errorf("Expected key gone after delete, got %v / %v", exists, err)
	}
}

func TestFilesystemStorageDeleteMissing(t *testing.T) {
	fs, err := NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStorage failed: %v", err)
	}

	deleted, err := fs.Delete(context.Background(), "never/was.iset")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted {
		t.Error("Expected delete of a missing key to report false")
	}
}

func TestFilesystemStorageRejectsTraversal(t *testing.T) {
	fs, err := NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStorage failed: %v", err)
	}

	if _, err := fs.Put(context.Background(), "../escape.txt", []byte("x")); err == nil {
		t.Error("Expected traversal key to be rejected")
	}
	if _, err := fs.Get(context.Background(), "../../etc/passwd"); err == nil {
		t.Error("Expected traversal read to be rejected")
	}
}
