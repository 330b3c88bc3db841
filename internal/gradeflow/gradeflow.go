// Package gradeflow implements the per-row grade editing state machine:
//
//	Viewing -> Editing -> Saving -> Viewing
//	                   \-> Editing (validation failure, no network call)
//	          Saving --/-> Editing (save failure, buffer preserved)
//
// Each row owns at most one edit buffer. Rows are independent: any number
// may be in Editing at once, but a row in Saving rejects further edits and
// save attempts until the in-flight save resolves.
package gradeflow

import (
	"errors"
	"sync"
)

var (
	// ErrGradeOutOfRange rejects a save whose buffered grade falls outside
	// [0,100]. The row stays in Editing and nothing is sent upstream.
	ErrGradeOutOfRange = errors.New("gradeflow: grade must be between 0 and 100")

	// ErrSaveInFlight rejects edits and save attempts on a row whose
	// previous save has not resolved yet.
	ErrSaveInFlight = errors.New("gradeflow: save already in flight")

	// ErrNotEditing rejects buffer updates and saves on rows that were
	// never put into Editing.
	ErrNotEditing = errors.New("gradeflow: row is not being edited")
)

// Phase is a row's position in the editing lifecycle. Rows without state
// are implicitly Viewing.
type Phase string

const (
	PhaseViewing Phase = "viewing"
	PhaseEditing Phase = "editing"
	PhaseSaving  Phase = "saving"
)

// Buffer holds uncommitted grade and feedback values for one row.
type Buffer struct {
	Grade    float64 `json:"grade"`
	Feedback string  `json:"feedback"`
}

// RowState is a snapshot of one row's phase, buffer and last error.
type RowState struct {
	Phase  Phase  `json:"phase"`
	Buffer Buffer `json:"buffer"`
	Error  string `json:"error,omitempty"`
}

type row struct {
	phase   Phase
	buffer  Buffer
	lastErr string
}

// Flow tracks the editing state of every row on one grading page.
type Flow struct {
	mu   sync.Mutex
	rows map[int64]*row
}

// New returns a Flow with every row in Viewing.
func New() *Flow {
	return &Flow{rows: make(map[int64]*row)}
}

// Edit moves a row into Editing, seeding the buffer from the row's current
// grade and feedback: zero when ungraded, empty when there is no feedback.
// Re-entering Editing reseeds the buffer. A row in Saving rejects the edit.
func (f *Flow) Edit(id int64, grade *float64, feedback *string) (Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r, ok := f.rows[id]; ok && r.phase == PhaseSaving {
		return r.buffer, ErrSaveInFlight
	}

	buffer := Buffer{}
	if grade != nil {
		buffer.Grade = *grade
	}
	if feedback != nil {
		buffer.Feedback = *feedback
	}
	f.rows[id] = &row{phase: PhaseEditing, buffer: buffer}
	return buffer, nil
}

// Update replaces the edit buffer of a row in Editing.
func (f *Flow) Update(id int64, buffer Buffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.rows[id]
	if !ok || r.phase == PhaseViewing {
		return ErrNotEditing
	}
	if r.phase == PhaseSaving {
		return ErrSaveInFlight
	}
	r.buffer = buffer
	r.lastErr = ""
	return nil
}

// Cancel discards a row's buffer unconditionally and returns it to Viewing.
// No network call is involved; cancelling a Saving row only discards the
// local buffer, the in-flight request still completes upstream.
func (f *Flow) Cancel(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
}

// BeginSave validates the buffered grade and moves the row from Editing to
// Saving. Out-of-range grades fail locally: the row stays in Editing, no
// network call is made, and the validation message is recorded on the row.
func (f *Flow) BeginSave(id int64) (Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.rows[id]
	if !ok || r.phase == PhaseViewing {
		return Buffer{}, ErrNotEditing
	}
	if r.phase == PhaseSaving {
		return r.buffer, ErrSaveInFlight
	}
	if r.buffer.Grade < 0 || r.buffer.Grade > 100 {
		r.lastErr = ErrGradeOutOfRange.Error()
		return r.buffer, ErrGradeOutOfRange
	}

	r.phase = PhaseSaving
	r.lastErr = ""
	return r.buffer, nil
}

// ResolveSave completes an in-flight save. Success discards the buffer and
// returns the row to Viewing; failure preserves the buffer and returns the
// row to Editing with the error recorded, so the user loses nothing.
func (f *Flow) ResolveSave(id int64, saveErr error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.rows[id]
	if !ok || r.phase != PhaseSaving {
		return
	}
	if saveErr != nil {
		r.phase = PhaseEditing
		r.lastErr = saveErr.Error()
		return
	}
	delete(f.rows, id)
}

// Row reports a row's current state. Rows with no recorded state are
// Viewing.
func (f *Flow) Row(id int64) RowState {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.rows[id]
	if !ok {
		return RowState{Phase: PhaseViewing}
	}
	return RowState{Phase: r.phase, Buffer: r.buffer, Error: r.lastErr}
}

// Rows snapshots every row not in Viewing, keyed by submission id.
func (f *Flow) Rows() map[int64]RowState {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[int64]RowState, len(f.rows))
	for id, r := range f.rows {
		out[id] = RowState{Phase: r.phase, Buffer: r.buffer, Error: r.lastErr}
	}
	return out
}
