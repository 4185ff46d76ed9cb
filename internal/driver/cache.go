package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"memlint/internal/diag"
	"memlint/internal/source"
)

// Digest is a fixed 256-bit hash, compatible with source.File.Hash.
type Digest [32]byte

// Increment when the payload format changes.
const cacheSchemaVersion uint16 = 1

// DiskCache stores per-file finding sets keyed by content digest, so
// unchanged files skip parsing and flow analysis on the next run.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// cachedSpan is a span with byte offsets only; the file ID is
// reattached on load.
type cachedSpan struct {
	Start uint32
	End   uint32
}

type cachedNote struct {
	Span cachedSpan
	Msg  string
}

type cachedEntity struct {
	Name string
	Decl cachedSpan
}

type cachedFinding struct {
	Severity uint8
	Code     uint16
	Message  string
	Primary  cachedSpan
	Notes    []cachedNote
	Entities []cachedEntity
}

// FilePayload is the cached result of checking one file.
type FilePayload struct {
	Schema   uint16
	Findings []cachedFinding
}

// OpenDiskCache initializes the cache at the standard XDG location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt initializes the cache rooted at dir. Used by tests
// and the --cache-dir flag.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// A "files" subdirectory keeps the root listable and easy to prune.
	return filepath.Join(c.dir, "files", hexKey+".mp")
}

// Put serializes and atomically writes one payload.
func (c *DiskCache) Put(key Digest, payload *FilePayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads one payload. A missing entry or a schema mismatch is a
// miss, not an error.
func (c *DiskCache) Get(key Digest, out *FilePayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(key)
	f, err := os.Open(p) // #nosec G304 -- path is derived from a hex digest
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		_ = f.Close()
	}()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != cacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the whole cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// cacheKey mixes the file content digest with the configuration
// digest, so config changes invalidate every entry.
func cacheKey(content [32]byte, config Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	_, _ = h.Write(config[:])
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// bagToPayload strips file IDs from findings for storage.
func bagToPayload(bag *diag.Bag) *FilePayload {
	payload := &FilePayload{Schema: cacheSchemaVersion}
	for _, f := range bag.Items() {
		cf := cachedFinding{
			Severity: uint8(f.Severity),
			Code:     uint16(f.Code),
			Message:  f.Message,
			Primary:  cachedSpan{Start: f.Primary.Start, End: f.Primary.End},
		}
		for _, n := range f.Notes {
			cf.Notes = append(cf.Notes, cachedNote{
				Span: cachedSpan{Start: n.Span.Start, End: n.Span.End},
				Msg:  n.Msg,
			})
		}
		for _, e := range f.Entities {
			cf.Entities = append(cf.Entities, cachedEntity{
				Name: e.Name,
				Decl: cachedSpan{Start: e.Decl.Start, End: e.Decl.End},
			})
		}
		payload.Findings = append(payload.Findings, cf)
	}
	return payload
}

// payloadToBag reattaches the current file ID to cached findings.
func payloadToBag(payload *FilePayload, file source.FileID, bag *diag.Bag) {
	for _, cf := range payload.Findings {
		f := diag.Finding{
			Severity: diag.Severity(cf.Severity),
			Code:     diag.Code(cf.Code),
			Message:  cf.Message,
			Primary:  source.Span{File: file, Start: cf.Primary.Start, End: cf.Primary.End},
		}
		for _, n := range cf.Notes {
			f.Notes = append(f.Notes, diag.Note{
				Span: source.Span{File: file, Start: n.Span.Start, End: n.Span.End},
				Msg:  n.Msg,
			})
		}
		for _, e := range cf.Entities {
			f.Entities = append(f.Entities, diag.EntityRef{
				Name: e.Name,
				Decl: source.Span{File: file, Start: e.Decl.Start, End: e.Decl.End},
			})
		}
		bag.Add(f)
	}
}
