package memstore

import (
	"context"
	"sync"

	"github.com/libranexus/eventcore/pkg/eventstore"
)

// Snapshots is an in-memory eventstore.SnapshotsProvider. Readers always
// take the most recently inserted row for (name, stream); writers only
// append.
type Snapshots struct {
	mu   sync.RWMutex
	rows map[nameStream][]eventstore.SnapshotRow
}

type nameStream struct{ name, stream string }

func NewSnapshots() *Snapshots {
	return &Snapshots{rows: make(map[nameStream][]eventstore.SnapshotRow)}
}

func (s *Snapshots) Insert(_ context.Context, row eventstore.SnapshotRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := nameStream{row.Name, row.Stream}
	s.rows[key] = append(s.rows[key], row)
	return nil
}

func (s *Snapshots) GetByStream(_ context.Context, name, stream string) (*eventstore.SnapshotRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.rows[nameStream{name, stream}]
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[len(rows)-1]
	return &row, nil
}

func (s *Snapshots) Remove(_ context.Context, name, stream string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, nameStream{name, stream})
	return nil
}
