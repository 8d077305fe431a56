package cache

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

func TestDiskStore_BasicOperations(t *testing.T) {
	ds, err := NewDiskStore(t.TempDir(), 10, 3)
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	defer ds.Close()

	image := "data:image/png;base64," + strings.Repeat("QUJD", 1024)
	if err := ds.Store(Entry{Key: "cat", Image: image, Timestamp: epoch}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	e, ok, err := ds.Load("cat")
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if e.Image != image {
		t.Error("image mismatch after round trip")
	}
	if !e.Timestamp.Equal(epoch) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, epoch)
	}

	// repetitive payloads compress
	if size := ds.SizeOnDisk(); size >= int64(len(image)) {
		t.Errorf("SizeOnDisk = %d, expected compression below %d", size, len(image))
	}
}

func TestDiskStore_Persistence(t *testing.T) {
	dir := t.TempDir()

	ds, err := NewDiskStore(dir, 10, 3)
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	_ = ds.Store(Entry{Key: "dog", Image: "img-dog", Timestamp: epoch})
	_ = ds.Store(Entry{Key: "cow", Image: "img-cow", Timestamp: epoch.Add(time.Minute)})
	if err := ds.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewDiskStore(dir, 10, 3)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if n, _ := reopened.Len(); n != 2 {
		t.Fatalf("Len after reopen = %d, want 2", n)
	}
	oldest, _ := reopened.Oldest(1)
	if len(oldest) != 1 || oldest[0].Key != "dog" {
		t.Errorf("Oldest after reopen = %v, want dog", oldest)
	}
}

func TestDiskStore_MissingFileIsMiss(t *testing.T) {
	ds, err := NewDiskStore(t.TempDir(), 10, 0)
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	defer ds.Close()

	_ = ds.Store(Entry{Key: "pig", Image: "img", Timestamp: epoch})
	if err := os.Remove(ds.filePath("pig")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, ok, err := ds.Load("pig"); ok || err != nil {
		t.Errorf("Load = ok %v err %v, want clean miss", ok, err)
	}
	if n, _ := ds.Len(); n != 0 {
		t.Errorf("dangling entry kept, Len = %d", n)
	}
}

func TestDiskStore_Capacity(t *testing.T) {
	ds, err := NewDiskStore(t.TempDir(), 3, 0)
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	defer ds.Close()

	for i := 0; i < 5; i++ {
		_ = ds.Store(Entry{Key: fmt.Sprintf("w%d", i), Image: "x", Timestamp: epoch.Add(time.Duration(i) * time.Second)})
	}
	if n, _ := ds.Len(); n != 3 {
		t.Errorf("Len = %d, want 3", n)
	}
	if _, ok, _ := ds.Load("w0"); ok {
		t.Error("w0 should have been evicted")
	}
}

func TestDiskStore_Closed(t *testing.T) {
	ds, err := NewDiskStore(t.TempDir(), 3, 0)
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	_ = ds.Close()

	if _, _, err := ds.Load("x"); !errors.Is(err, ErrBackendClosed) {
		t.Errorf("Load after Close = %v, want ErrBackendClosed", err)
	}
	if err := ds.Store(Entry{Key: "x"}); !errors.Is(err, ErrBackendClosed) {
		t.Errorf("Store after Close = %v, want ErrBackendClosed", err)
	}
}

func TestDiskStore_RequiresPath(t *testing.T) {
	if _, err := NewDiskStore("", 10, 0); err == nil {
		t.Error("expected error for empty path")
	}
}
