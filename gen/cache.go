package gen

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when cachePayload format changes.
const cacheSchemaVersion uint16 = 1

// Digest identifies source file content.
type Digest [sha256.Size]byte

// DigestOf hashes source bytes for cache lookup.
func DigestOf(src []byte) Digest {
	return sha256.Sum256(src)
}

// Cache stores scan results on disk keyed by content digest so
// unchanged files skip re-parsing across generator runs. Thread-safe
// for concurrent access.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type cachePayload struct {
	Schema     uint16
	Package    string
	Aggregates []Aggregate
}

// OpenCache initializes the cache at the standard user cache location.
func OpenCache(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// OpenCacheAt initializes the cache at an explicit directory.
func OpenCacheAt(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "scan", hexKey+".mp")
}

// Put serializes and writes a scan result to the cache. The file is
// replaced atomically so a crashed run never leaves a torn entry.
func (c *Cache) Put(key Digest, res *ScanResult) error {
	if c == nil || res == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	payload := cachePayload{
		Schema:     cacheSchemaVersion,
		Package:    res.Package,
		Aggregates: res.Aggregates,
	}
	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads a scan result from the cache. The boolean reports whether
// a usable entry existed; schema mismatches count as a miss.
func (c *Cache) Get(key Digest) (*ScanResult, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() {
		_ = f.Close()
	}()

	var payload cachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, nil // corrupt entry, treat as miss
	}
	if payload.Schema != cacheSchemaVersion {
		return nil, false, nil
	}
	return &ScanResult{
		Package:    payload.Package,
		Aggregates: payload.Aggregates,
	}, true, nil
}
