package identity

import (
	"context"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
)

type AssignmentSource interface {
	ListAssignments(ctx context.Context) ([]Assignment, error)
}

type table struct {
	byCallsign map[string]DriverIdentity
	sorted     []Assignment
}

// Mapper resolves callsigns to drivers from an in-memory copy of the assignment
// table. Reload swaps the copy atomically; readers never see a half-built table.
type Mapper struct {
	src    AssignmentSource
	logger *zap.Logger
	table  atomic.Pointer[table]
}

func NewMapper(src AssignmentSource, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mapper{src: src, logger: logger.Named("identity")}
	m.table.Store(buildTable(nil))
	return m
}

// NewStaticMapper serves a fixed table. Reload is a no-op.
func NewStaticMapper(assignments []Assignment) *Mapper {
	m := &Mapper{logger: zap.NewNop()}
	m.table.Store(buildTable(assignments))
	return m
}

// Reload replaces the table from the source. On error the previous table stays in use.
func (m *Mapper) Reload(ctx context.Context) error {
	if m.src == nil {
		return nil
	}
	list, err := m.src.ListAssignments(ctx)
	if err != nil {
		m.logger.Warn("assignment reload failed, keeping previous table", zap.Error(err))
		return err
	}
	t := buildTable(list)
	m.table.Store(t)
	m.logger.Debug("assignments reloaded", zap.Int("count", len(t.sorted)))
	return nil
}

func (m *Mapper) Lookup(callsign string) (DriverIdentity, bool) {
	d, ok := m.table.Load().byCallsign[NormalizeCallsign(callsign)]
	return d, ok
}

// Assignments returns every assignment ordered by callsign, one per callsign.
func (m *Mapper) Assignments() []Assignment {
	src := m.table.Load().sorted
	out := make([]Assignment, len(src))
	copy(out, src)
	return out
}

// buildTable keeps the first row per callsign; the store orders newest first.
func buildTable(list []Assignment) *table {
	t := &table{byCallsign: make(map[string]DriverIdentity, len(list))}
	for _, a := range list {
		key := NormalizeCallsign(a.Callsign)
		if key == "" {
			continue
		}
		if _, dup := t.byCallsign[key]; dup {
			continue
		}
		t.byCallsign[key] = a.Driver
		t.sorted = append(t.sorted, Assignment{Callsign: key, Driver: a.Driver})
	}
	sort.Slice(t.sorted, func(i, j int) bool { return t.sorted[i].Callsign < t.sorted[j].Callsign })
	return t
}
