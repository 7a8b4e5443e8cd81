package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/pflege/pflege/internal/domain/assignment"
)

type assignmentRepo struct{ s *Store }

func (s *Store) activeFor(patientID uuid.UUID) *assignment.Assignment {
	for _, a := range s.assignments {
		if a.PatientID == patientID && a.Status == assignment.StatusActive {
			return a
		}
	}
	return nil
}

func (s *Store) activeCounts() map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int, len(s.mitarbeiter))
	for _, a := range s.assignments {
		if a.Status == assignment.StatusActive {
			counts[a.MitarbeiterID]++
		}
	}
	return counts
}

func (r assignmentRepo) Workload(_ context.Context) ([]assignment.Workload, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := r.s.activeCounts()
	out := make([]assignment.Workload, 0, len(r.s.mitarbeiter))
	for _, m := range r.s.mitarbeiter {
		out = append(out, assignment.Workload{
			MitarbeiterID: m.ID,
			Username:      m.Username,
			Name:          m.Name,
			ActiveCount:   counts[m.ID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ActiveCount != out[j].ActiveCount {
			return out[i].ActiveCount < out[j].ActiveCount
		}
		return out[i].MitarbeiterID.String() < out[j].MitarbeiterID.String()
	})
	return out, nil
}

func (r assignmentRepo) PatientExists(_ context.Context, patientID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.patients[patientID]
	return ok, nil
}

func (r assignmentRepo) ActiveForPatient(_ context.Context, patientID uuid.UUID) (*assignment.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a := r.s.activeFor(patientID)
	if a == nil {
		return nil, assignment.ErrNoActiveAssignment
	}
	cp := *a
	return &cp, nil
}

// InsertIfCapacity checks and writes under the store's write lock, the
// in-memory counterpart of the row lock plus conditional insert.
func (r assignmentRepo) InsertIfCapacity(_ context.Context, mitarbeiterID, patientID uuid.UUID, capacity int) (*assignment.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.mitarbeiter[mitarbeiterID]; !ok {
		return nil, assignment.ErrMitarbeiterNotFound
	}
	if _, ok := r.s.patients[patientID]; !ok {
		return nil, assignment.ErrPatientNotFound
	}
	if r.s.activeFor(patientID) != nil {
		return nil, assignment.ErrAlreadyAssigned
	}
	if r.s.activeCounts()[mitarbeiterID] >= capacity {
		return nil, assignment.ErrCaregiverFull
	}
	a := &assignment.Assignment{
		ID:            uuid.New(),
		MitarbeiterID: mitarbeiterID,
		PatientID:     patientID,
		Status:        assignment.StatusActive,
		AssignedAt:    r.s.now(),
	}
	r.s.assignments = append(r.s.assignments, a)
	cp := *a
	return &cp, nil
}

func (r assignmentRepo) EndActive(_ context.Context, patientID uuid.UUID, status string) (*assignment.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a := r.s.activeFor(patientID)
	if a == nil {
		return nil, assignment.ErrNoActiveAssignment
	}
	now := r.s.now()
	a.Status = status
	a.EndedAt = &now
	cp := *a
	return &cp, nil
}

func (r assignmentRepo) UnassignedPatients(_ context.Context, exclude uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []uuid.UUID
	for _, id := range r.s.patientOrder {
		if id == exclude || r.s.activeFor(id) != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (r assignmentRepo) AssignedPatients(_ context.Context, mitarbeiterID uuid.UUID) ([]assignment.AssignedPatient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []assignment.AssignedPatient
	for _, a := range r.s.assignments {
		if a.MitarbeiterID != mitarbeiterID || a.Status != assignment.StatusActive {
			continue
		}
		p, ok := r.s.patients[a.PatientID]
		if !ok {
			continue
		}
		out = append(out, assignment.AssignedPatient{
			AssignmentID: a.ID,
			PatientID:    p.ID,
			Username:     p.Username,
			Name:         p.Name,
			Room:         p.Room,
			Location:     p.Location,
			AssignedAt:   a.AssignedAt,
		})
	}
	// Rooms sort first, patients without a room last.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Room == "") != (b.Room == "") {
			return b.Room == ""
		}
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.PatientID.String() < b.PatientID.String()
	})
	return out, nil
}
