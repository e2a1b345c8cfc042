// Package status keeps the per-case sync status shown to the user. Entries
// are transient and expire; the backend remains the source of truth.
package status

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	StatusPending   = "pending"
	StatusSyncing   = "syncing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Entry struct {
	CaseNumber string    `json:"case_number"`
	DocumentID string    `json:"document_id,omitempty"`
	Status     string    `json:"status"`
	Progress   float64   `json:"progress"`
	S3Key      string    `json:"s3_key,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type SyncProgress struct {
	Processed int       `json:"processed_cases"`
	Total     int       `json:"total_cases"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Board interface {
	Get(caseNumber, documentID string) (Entry, bool)
	Set(e Entry)
	SetProgress(caseNumber, documentID string, progress float64)
	MarkSyncing(caseNumbers []string)
	Revert(caseNumbers []string) int
	SetSyncProgress(processed, total int)
	SyncProgress() SyncProgress
	Snapshot() []Entry
	Clear()
	Stats() BoardStats
}

type BoardStats struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Size       int       `json:"size"`
	LastAccess time.Time `json:"last_access"`
}

type CacheBoard struct {
	cache    *cache.Cache
	mu       sync.RWMutex
	stats    BoardStats
	progress SyncProgress
	maxSize  int
	now      func() time.Time
}

func NewBoard(maxSize int, ttl time.Duration) *CacheBoard {
	return &CacheBoard{
		cache:   cache.New(ttl, ttl*2),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// GenerateKey keys case-level entries by case number and document entries
// by case number and document id.
func GenerateKey(caseNumber, documentID string) string {
	if documentID == "" {
		return fmt.Sprintf("case:%s", caseNumber)
	}
	return fmt.Sprintf("doc:%s:%s", caseNumber, documentID)
}

func (b *CacheBoard) Get(caseNumber, documentID string) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.LastAccess = b.now()

	if data, found := b.cache.Get(GenerateKey(caseNumber, documentID)); found {
		if e, ok := data.(Entry); ok {
			b.stats.Hits++
			return e, true
		}
	}

	b.stats.Misses++
	return Entry{}, false
}

func (b *CacheBoard) Set(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(e)
}

func (b *CacheBoard) set(e Entry) {
	key := GenerateKey(e.CaseNumber, e.DocumentID)
	if _, exists := b.cache.Get(key); !exists && b.maxSize > 0 && b.cache.ItemCount() >= b.maxSize {
		b.removeOldest()
	}
	e.UpdatedAt = b.now()
	b.cache.Set(key, e, cache.DefaultExpiration)
}

// SetProgress records upload progress for one document, creating the entry
// if the backend reports progress before status.
func (b *CacheBoard) SetProgress(caseNumber, documentID string, progress float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := Entry{CaseNumber: caseNumber, DocumentID: documentID, Status: StatusSyncing}
	if data, found := b.cache.Get(GenerateKey(caseNumber, documentID)); found {
		if existing, ok := data.(Entry); ok {
			e = existing
		}
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	e.Progress = progress
	b.set(e)
}

// MarkSyncing optimistically flags cases as syncing before the backend
// confirms.
func (b *CacheBoard) MarkSyncing(caseNumbers []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, n := range caseNumbers {
		b.set(Entry{CaseNumber: n, Status: StatusSyncing})
	}
}

// Revert returns cases still marked syncing to pending and reports how many
// changed. Entries already updated by the backend are left alone.
func (b *CacheBoard) Revert(caseNumbers []string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	reverted := 0
	for _, n := range caseNumbers {
		data, found := b.cache.Get(GenerateKey(n, ""))
		if !found {
			continue
		}
		e, ok := data.(Entry)
		if !ok || e.Status != StatusSyncing {
			continue
		}
		e.Status = StatusPending
		e.Progress = 0
		b.set(e)
		reverted++
	}
	return reverted
}

func (b *CacheBoard) SetSyncProgress(processed, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.progress = SyncProgress{Processed: processed, Total: total, UpdatedAt: b.now()}
}

func (b *CacheBoard) SyncProgress() SyncProgress {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.progress
}

// Snapshot returns every live entry ordered by key.
func (b *CacheBoard) Snapshot() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	items := b.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := items[k].Object.(Entry); ok {
			out = append(out, e)
		}
	}
	return out
}

func (b *CacheBoard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cache.Flush()
	b.stats = BoardStats{}
	b.progress = SyncProgress{}
}

func (b *CacheBoard) Stats() BoardStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := b.stats
	s.Size = b.cache.ItemCount()
	return s
}

// removeOldest evicts the least recently updated entry; ties go to the
// smaller key.
func (b *CacheBoard) removeOldest() {
	items := b.cache.Items()
	if len(items) == 0 {
		return
	}

	var oldestKey string
	var oldestTime time.Time

	for key, item := range items {
		e, ok := item.Object.(Entry)
		if !ok {
			continue
		}
		if oldestKey == "" || e.UpdatedAt.Before(oldestTime) ||
			(e.UpdatedAt.Equal(oldestTime) && key < oldestKey) {
			oldestKey = key
			oldestTime = e.UpdatedAt
		}
	}

	if oldestKey != "" {
		b.cache.Delete(oldestKey)
	}
}
