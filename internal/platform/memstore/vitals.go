package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pflege/pflege/internal/domain/vitals"
)

type vitalsRepo struct{ s *Store }

func (r vitalsRepo) Create(_ context.Context, v *vitals.Vital) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.RecordedAt.IsZero() {
		v.RecordedAt = r.s.now()
	}
	cp := *v
	r.s.vitals = append(r.s.vitals, &cp)
	return nil
}

// newest returns copies of the matching records, newest first. Records with
// the same timestamp keep reverse insertion order.
func (r vitalsRepo) newest(keep func(*vitals.Vital) bool) []*vitals.Vital {
	var out []*vitals.Vital
	for i := len(r.s.vitals) - 1; i >= 0; i-- {
		v := r.s.vitals[i]
		if keep(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out
}

func idSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (r vitalsRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]*vitals.Vital, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return window(r.newest(func(v *vitals.Vital) bool { return v.PatientID == patientID }), limit, 0), nil
}

func (r vitalsRepo) LatestForPatients(_ context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*vitals.Vital, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	set := idSet(patientIDs)
	out := make(map[uuid.UUID]*vitals.Vital, len(patientIDs))
	for _, v := range r.newest(func(v *vitals.Vital) bool { return set[v.PatientID] }) {
		if _, ok := out[v.PatientID]; !ok {
			out[v.PatientID] = v
		}
	}
	return out, nil
}

func (r vitalsRepo) RecentForPatients(_ context.Context, patientIDs []uuid.UUID, limit int) ([]*vitals.Vital, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	set := idSet(patientIDs)
	return window(r.newest(func(v *vitals.Vital) bool { return set[v.PatientID] }), limit, 0), nil
}

func (r vitalsRepo) CriticalForPatientsSince(_ context.Context, patientIDs []uuid.UUID, since time.Time, limit int) ([]*vitals.Vital, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	set := idSet(patientIDs)
	return window(r.newest(func(v *vitals.Vital) bool {
		return v.Critical && set[v.PatientID] && !v.RecordedAt.Before(since)
	}), limit, 0), nil
}

func (r vitalsRepo) CountCriticalSince(_ context.Context, since time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, v := range r.s.vitals {
		if v.Critical && !v.RecordedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
