package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "cache.index"

// DiskStore is the durable backend. Each image is written to its own file,
// zstd-compressed when that saves space, and a gob index maps keys to files.
type DiskStore struct {
	basePath string
	capacity int

	compressionLevel int
	encoder          *zstd.Encoder
	decoder          *zstd.Decoder

	entries map[string]*diskEntry
	index   *timeIndex
	closed  bool

	mu sync.RWMutex
}

// diskEntry represents an entry in the disk store index
type diskEntry struct {
	Key          string
	FilePath     string
	Size         int64 // size on disk
	OriginalSize int64
	Timestamp    time.Time
	Compressed   bool
}

// NewDiskStore opens or creates a disk store under basePath.
func NewDiskStore(basePath string, capacity, compressionLevel int) (*DiskStore, error) {
	if basePath == "" {
		return nil, errors.New("disk store path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if capacity <= 0 {
		capacity = DefaultMaxEntries
	}

	ds := &DiskStore{
		basePath:         basePath,
		capacity:         capacity,
		compressionLevel: compressionLevel,
		entries:          make(map[string]*diskEntry),
		index:            newTimeIndex(),
	}

	if compressionLevel > 0 {
		var err error
		ds.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	ds.decoder = dec

	if err := ds.loadIndex(); err != nil {
		// a corrupt index only costs us the cached entries
		ds.entries = make(map[string]*diskEntry)
	}
	for _, e := range ds.entries {
		ds.index.upsert(e.Key, e.Timestamp)
	}

	return ds, nil
}

// Name implements Backend.
func (ds *DiskStore) Name() string { return "disk" }

// Capacity implements Backend.
func (ds *DiskStore) Capacity() int { return ds.capacity }

// Load implements Backend.
func (ds *DiskStore) Load(key string) (Entry, bool, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return Entry{}, false, ErrBackendClosed
	}

	entry, ok := ds.entries[key]
	if !ok {
		return Entry{}, false, nil
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		// file missing, drop it from the index
		ds.dropLocked(key)
		return Entry{}, false, nil
	}

	if entry.Compressed {
		data, err = ds.decoder.DecodeAll(data, nil)
		if err != nil {
			ds.dropLocked(key)
			return Entry{}, false, fmt.Errorf("%w: %s", ErrCacheCorrupted, key)
		}
	}

	return Entry{Key: key, Image: string(data), Timestamp: entry.Timestamp}, true, nil
}

// Store implements Backend.
func (ds *DiskStore) Store(e Entry) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return ErrBackendClosed
	}

	value := []byte(e.Image)
	toWrite := value
	compressed := false
	if ds.encoder != nil && len(value) > 1024 {
		c := ds.encoder.EncodeAll(value, nil)
		if len(c) < len(value) {
			toWrite = c
			compressed = true
		}
	}

	if _, ok := ds.entries[e.Key]; !ok {
		for len(ds.entries) >= ds.capacity {
			key, ok := ds.index.popOldest()
			if !ok {
				break
			}
			ds.removeFileLocked(key)
		}
	}

	filePath := ds.filePath(e.Key)
	if err := writeFileAtomic(filePath, toWrite); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	ds.entries[e.Key] = &diskEntry{
		Key:          e.Key,
		FilePath:     filePath,
		Size:         int64(len(toWrite)),
		OriginalSize: int64(len(value)),
		Timestamp:    e.Timestamp,
		Compressed:   compressed,
	}
	ds.index.upsert(e.Key, e.Timestamp)

	return ds.saveIndex()
}

// Delete implements Backend.
func (ds *DiskStore) Delete(key string) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return ErrBackendClosed
	}
	if _, ok := ds.entries[key]; !ok {
		return nil
	}
	ds.dropLocked(key)
	return ds.saveIndex()
}

// Clear implements Backend.
func (ds *DiskStore) Clear() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return ErrBackendClosed
	}
	for _, entry := range ds.entries {
		_ = os.Remove(entry.FilePath)
	}
	ds.entries = make(map[string]*diskEntry)
	ds.index.reset()

	return ds.saveIndex()
}

// Len implements Backend.
func (ds *DiskStore) Len() (int, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.closed {
		return 0, ErrBackendClosed
	}
	return len(ds.entries), nil
}

// Oldest implements Backend. Images are not read back.
func (ds *DiskStore) Oldest(n int) ([]Entry, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.closed {
		return nil, ErrBackendClosed
	}
	keys := ds.index.oldest(n)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		e := ds.entries[k]
		entries = append(entries, Entry{Key: k, Timestamp: e.Timestamp})
	}
	return entries, nil
}

// RemoveOlderThan removes entries stored before cutoff.
func (ds *DiskStore) RemoveOlderThan(cutoff time.Time) int {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return 0
	}

	removed := 0
	for {
		key, ts, ok := ds.index.peekOldest()
		if !ok || !ts.Before(cutoff) {
			break
		}
		ds.dropLocked(key)
		removed++
	}
	if removed > 0 {
		_ = ds.saveIndex()
	}
	return removed
}

// SizeOnDisk returns the total compressed size of stored images.
func (ds *DiskStore) SizeOnDisk() int64 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	var size int64
	for _, e := range ds.entries {
		size += e.Size
	}
	return size
}

// Close saves the index. Further calls fail with ErrBackendClosed.
func (ds *DiskStore) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return nil
	}
	ds.closed = true
	if ds.encoder != nil {
		_ = ds.encoder.Close()
	}
	ds.decoder.Close()
	return ds.saveIndex()
}

func (ds *DiskStore) dropLocked(key string) {
	ds.removeFileLocked(key)
	ds.index.remove(key)
}

// removeFileLocked removes the entry's file and map slot but leaves the
// time index alone.
func (ds *DiskStore) removeFileLocked(key string) {
	if e, ok := ds.entries[key]; ok {
		_ = os.Remove(e.FilePath)
		delete(ds.entries, key)
	}
}

func (ds *DiskStore) filePath(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(ds.basePath, hex.EncodeToString(hash[:16])+".cache")
}

func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()

	if err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		_ = os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}

func (ds *DiskStore) loadIndex() error {
	file, err := os.Open(filepath.Join(ds.basePath, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&ds.entries)
}

func (ds *DiskStore) saveIndex() error {
	indexPath := filepath.Join(ds.basePath, indexFile)
	tempPath := indexPath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	err = gob.NewEncoder(file).Encode(ds.entries)
	closeErr := file.Close()

	if err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		_ = os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, indexPath)
}
