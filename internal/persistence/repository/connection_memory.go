package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/hilthontt/teamrelay/internal/domain"
)

type memoryEntry struct {
	conn domain.Connection
	seq  uint64
}

// memoryConnectionRegistry keeps rows in process memory. ScanByGroup returns
// rows in the order they were last written.
type memoryConnectionRegistry struct {
	mu   sync.RWMutex
	rows map[string]memoryEntry
	seq  uint64
}

func NewMemoryConnectionRegistry() domain.ConnectionRegistry {
	return &memoryConnectionRegistry{
		rows: make(map[string]memoryEntry),
	}
}

func (r *memoryConnectionRegistry) Put(_ context.Context, conn domain.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.rows[conn.ConnectionID] = memoryEntry{conn: conn, seq: r.seq}
	return nil
}

func (r *memoryConnectionRegistry) Get(_ context.Context, connectionID string) (domain.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.rows[connectionID]
	if !ok {
		return domain.Connection{}, domain.ErrConnectionNotFound
	}
	return entry.conn, nil
}

func (r *memoryConnectionRegistry) Delete(_ context.Context, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rows, connectionID)
	return nil
}

func (r *memoryConnectionRegistry) ScanByGroup(_ context.Context, teamCode string) ([]domain.Connection, error) {
	r.mu.RLock()
	entries := make([]memoryEntry, 0)
	for _, entry := range r.rows {
		if entry.conn.TeamCode == teamCode {
			entries = append(entries, entry)
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	conns := make([]domain.Connection, len(entries))
	for i, entry := range entries {
		conns[i] = entry.conn
	}
	return conns, nil
}
