// Package reconcile holds the working state of one bulk attendance-marking
// session: the loaded roster, the set of students marked absent, and the
// submission snapshot built from them. The marking screens in the original
// portal each kept their own copy of this logic; here it lives once.
package reconcile

import (
	"fmt"
	"sync"
)

// ValidationError reports a missing or malformed caller-supplied argument.
// Surfaced inline to the form; never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UnknownStudentError reports a toggle against a roll number outside the
// loaded roster. In correct usage the UI only offers rostered students, so
// this signals a screen/state desync.
type UnknownStudentError struct {
	RollNo string
}

func (e *UnknownStudentError) Error() string {
	return fmt.Sprintf("roll number %s is not in the loaded roster", e.RollNo)
}

// StudentRecord is one roster row.
type StudentRecord struct {
	RollNo string `json:"rollNo"`
	Email  string `json:"email"`
}

// ClassKey identifies the class a roster belongs to.
type ClassKey struct {
	Department string
	ClassRoom  string
	Year       int
}

func (k ClassKey) validate() error {
	if k.Department == "" {
		return &ValidationError{Field: "department", Reason: "required"}
	}
	if k.ClassRoom == "" {
		return &ValidationError{Field: "classRoom", Reason: "required"}
	}
	if k.Year <= 0 {
		return &ValidationError{Field: "year", Reason: "must be positive"}
	}
	return nil
}

// Submission is an immutable snapshot handed to the API client. Success or
// failure of the dispatch both end its lifecycle; a retry builds a new one.
type Submission struct {
	Date          string
	ClassRoom     string
	Department    string
	Year          int
	Period        int
	AbsentRollNos []string
}

// Reconciler tracks the roster and absence set for one marking session.
//
// Session states: empty, roster loaded, toggling, submitted. LoadRoster (or
// a Begin/Complete pair) enters roster-loaded and clears absences; Reset is
// called after a confirmed-successful submit and clears absences only, so
// the same class can be marked for another period without a re-fetch. A
// failed submit changes nothing; the absences stay for the retry.
type Reconciler struct {
	mu sync.Mutex

	key     ClassKey
	roster  []StudentRecord
	rollSet map[string]struct{}
	absent  map[string]struct{}

	nextSeq     uint64
	acceptedSeq uint64
}

// New returns an empty reconciler.
func New() *Reconciler {
	return &Reconciler{
		rollSet: make(map[string]struct{}),
		absent:  make(map[string]struct{}),
	}
}

// Begin registers an in-flight roster fetch for key and returns its sequence
// number. Completions are applied in Complete only while their sequence is
// the newest one begun, so a late response from an abandoned fetch cannot
// overwrite a roster established by a later one.
func (r *Reconciler) Begin(key ClassKey) (uint64, error) {
	if err := key.validate(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	return r.nextSeq, nil
}

// Complete installs the fetched roster for the fetch identified by seq.
// Returns false when seq is stale and the result was discarded. Installing a
// roster replaces the previous one wholesale and clears the absence set.
func (r *Reconciler) Complete(seq uint64, key ClassKey, records []StudentRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.nextSeq || seq <= r.acceptedSeq {
		return false
	}
	r.acceptedSeq = seq
	r.install(key, records)
	return true
}

// LoadRoster is the synchronous form of Begin+Complete.
func (r *Reconciler) LoadRoster(key ClassKey, records []StudentRecord) error {
	seq, err := r.Begin(key)
	if err != nil {
		return err
	}
	r.Complete(seq, key, records)
	return nil
}

func (r *Reconciler) install(key ClassKey, records []StudentRecord) {
	r.key = key
	r.roster = make([]StudentRecord, len(records))
	copy(r.roster, records)
	r.rollSet = make(map[string]struct{}, len(records))
	for _, rec := range records {
		r.rollSet[rec.RollNo] = struct{}{}
	}
	r.absent = make(map[string]struct{})
}

// Roster returns a copy of the loaded roster.
func (r *Reconciler) Roster() []StudentRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StudentRecord, len(r.roster))
	copy(out, r.roster)
	return out
}

// ToggleAbsent marks or unmarks a student absent. Idempotent; repeating a
// call changes nothing. The absence set only ever references rostered roll
// numbers.
func (r *Reconciler) ToggleAbsent(rollNo string, absent bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rollSet[rollNo]; !ok {
		return &UnknownStudentError{RollNo: rollNo}
	}
	if absent {
		r.absent[rollNo] = struct{}{}
	} else {
		delete(r.absent, rollNo)
	}
	return nil
}

// AbsentRollNos returns the absent set in roster order.
func (r *Reconciler) AbsentRollNos() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.absentLocked()
}

func (r *Reconciler) absentLocked() []string {
	out := make([]string, 0, len(r.absent))
	for _, rec := range r.roster {
		if _, ok := r.absent[rec.RollNo]; ok {
			out = append(out, rec.RollNo)
		}
	}
	return out
}

// PresentRollNos returns the present partition in roster order.
func (r *Reconciler) PresentRollNos() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.roster)-len(r.absent))
	for _, rec := range r.roster {
		if _, ok := r.absent[rec.RollNo]; !ok {
			out = append(out, rec.RollNo)
		}
	}
	return out
}

// Counts returns (total, present, absent) for the current session.
func (r *Reconciler) Counts() (total, present, absent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total = len(r.roster)
	absent = len(r.absent)
	return total, total - absent, absent
}

// BuildSubmission snapshots the current session into a Submission. It does
// not mutate reconciler state; call Reset after the submit is confirmed.
func (r *Reconciler) BuildSubmission(date string, period int) (Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if date == "" {
		return Submission{}, &ValidationError{Field: "date", Reason: "required"}
	}
	if period <= 0 {
		return Submission{}, &ValidationError{Field: "period", Reason: "must be positive"}
	}
	if err := r.key.validate(); err != nil {
		return Submission{}, err
	}
	return Submission{
		Date:          date,
		ClassRoom:     r.key.ClassRoom,
		Department:    r.key.Department,
		Year:          r.key.Year,
		Period:        period,
		AbsentRollNos: r.absentLocked(),
	}, nil
}

// Reset clears the absence set. The roster stays loaded so the next period
// for the same class does not need a re-fetch.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.absent = make(map[string]struct{})
}
