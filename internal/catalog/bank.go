package catalog

import "sync"

// Bank is the process-wide handle on the catalog file: one loaded catalog
// plus the path it persists to. Mutations run under the lock and write
// through to disk, so readers never observe a half-applied edit.
type Bank struct {
	mu   sync.RWMutex
	path string
	cat  *Catalog
}

func OpenBank(path string) (*Bank, error) {
	cat, err := Load(path)
	if err != nil {
		return &Bank{path: path, cat: &Catalog{}}, err
	}
	return &Bank{path: path, cat: cat}, nil
}

// Snapshot returns the current catalog. Callers must treat it as read-only.
func (b *Bank) Snapshot() *Catalog {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cat
}

func (b *Bank) Empty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.cat.Courses) == 0
}

// Update applies fn to the catalog and saves. If fn errors the catalog is
// left as fn left it in memory but nothing is written.
func (b *Bank) Update(fn func(c *Catalog) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := fn(b.cat); err != nil {
		return err
	}
	return Save(b.path, b.cat)
}

// Replace swaps in a whole new catalog (the documented upload format) and
// persists it.
func (b *Bank) Replace(cat *Catalog) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := Save(b.path, cat); err != nil {
		return err
	}
	b.cat = cat
	return nil
}
