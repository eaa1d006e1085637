package licenses

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lncpro/rosteraudit/internal/domain"
)

// ErrNotFound is returned when an identity has no license record. It is a
// degraded state for callers to flag, not an error to abort on.
var ErrNotFound = errors.New("license record not found")

// Directory is the in-memory keyed store of federation license records.
// Lookups normalize identities so a numeric literal and its string form
// resolve to the same entry. Refresh swaps the whole snapshot at once; a
// concurrent reader sees either the old cache or the new one, never a
// half-applied mix.
type Directory struct {
	mu          sync.RWMutex
	records     map[string]domain.LicenseRecord
	fetchedAt   time.Time
	sourceCount int
}

func NewDirectory() *Directory {
	return &Directory{records: make(map[string]domain.LicenseRecord)}
}

// Resolve looks up a license record by identity.
func (d *Directory) Resolve(identity string) (domain.LicenseRecord, error) {
	key := domain.NormalizeIdentity(identity)
	if key == "" {
		return domain.LicenseRecord{}, ErrNotFound
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	record, ok := d.records[key]
	if !ok {
		return domain.LicenseRecord{}, ErrNotFound
	}
	record.FetchedAt = d.fetchedAt
	record.SourceCount = d.sourceCount
	return record, nil
}

// Refresh replaces the cache with a new record set. The replacement map is
// fully built before the swap so the refresh is all-or-nothing. When two
// records share an identity, a valid license wins over an expired one.
func (d *Directory) Refresh(records []domain.LicenseRecord, fetchedAt time.Time) {
	next := make(map[string]domain.LicenseRecord, len(records))
	for _, record := range records {
		key := domain.NormalizeIdentity(record.Identity)
		if key == "" {
			continue
		}
		record.Identity = key
		if existing, ok := next[key]; ok && existing.Valid && !record.Valid {
			continue
		}
		next[key] = record
	}

	d.mu.Lock()
	d.records = next
	d.fetchedAt = fetchedAt
	d.sourceCount = len(next)
	d.mu.Unlock()
}

// IsStale reports whether the last refresh is older than maxAge. An empty
// directory is always stale.
func (d *Directory) IsStale(maxAge time.Duration) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.fetchedAt.IsZero() {
		return true
	}
	return time.Since(d.fetchedAt) > maxAge
}

// Len returns the number of cached records.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// FetchedAt returns the timestamp of the last refresh.
func (d *Directory) FetchedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fetchedAt
}

// Snapshot returns the cached records in identity order, for persistence.
func (d *Directory) Snapshot() []domain.LicenseRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.LicenseRecord, 0, len(d.records))
	for _, record := range d.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}
