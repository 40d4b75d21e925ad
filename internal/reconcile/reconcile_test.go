package reconcile

import (
	"errors"
	"reflect"
	"testing"
)

func cseA2() ClassKey {
	return ClassKey{Department: "CSE", ClassRoom: "A", Year: 2}
}

func roster101to103() []StudentRecord {
	return []StudentRecord{
		{RollNo: "101", Email: "101@college.edu"},
		{RollNo: "102", Email: "102@college.edu"},
		{RollNo: "103", Email: "103@college.edu"},
	}
}

func TestLoadRosterValidation(t *testing.T) {
	r := New()
	cases := []struct {
		name string
		key  ClassKey
	}{
		{"missing department", ClassKey{ClassRoom: "A", Year: 2}},
		{"missing classRoom", ClassKey{Department: "CSE", Year: 2}},
		{"zero year", ClassKey{Department: "CSE", ClassRoom: "A"}},
	}
	for _, tc := range cases {
		err := r.LoadRoster(tc.key, roster101to103())
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestToggleUnknownStudent(t *testing.T) {
	r := New()
	if err := r.LoadRoster(cseA2(), roster101to103()); err != nil {
		t.Fatalf("load roster: %v", err)
	}
	err := r.ToggleAbsent("999", true)
	var ue *UnknownStudentError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnknownStudentError, got %v", err)
	}
	if ue.RollNo != "999" {
		t.Errorf("expected roll 999 in error, got %s", ue.RollNo)
	}
	if got := r.AbsentRollNos(); len(got) != 0 {
		t.Errorf("absence set changed by failed toggle: %v", got)
	}
}

func TestToggleIdempotent(t *testing.T) {
	r := New()
	if err := r.LoadRoster(cseA2(), roster101to103()); err != nil {
		t.Fatalf("load roster: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := r.ToggleAbsent("102", true); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}
	if got := r.AbsentRollNos(); !reflect.DeepEqual(got, []string{"102"}) {
		t.Errorf("expected absent [102], got %v", got)
	}
	if err := r.ToggleAbsent("102", false); err != nil {
		t.Fatalf("untoggle: %v", err)
	}
	if got := r.AbsentRollNos(); len(got) != 0 {
		t.Errorf("expected empty absent set, got %v", got)
	}
}

func TestAbsenceSubsetOfRoster(t *testing.T) {
	r := New()
	if err := r.LoadRoster(cseA2(), roster101to103()); err != nil {
		t.Fatalf("load roster: %v", err)
	}
	_ = r.ToggleAbsent("101", true)
	_ = r.ToggleAbsent("103", true)
	_ = r.ToggleAbsent("999", true)
	_ = r.ToggleAbsent("101", false)

	rolls := make(map[string]bool)
	for _, rec := range r.Roster() {
		rolls[rec.RollNo] = true
	}
	for _, rollNo := range r.AbsentRollNos() {
		if !rolls[rollNo] {
			t.Errorf("absent roll %s not in roster", rollNo)
		}
	}
}

func TestLoadRosterClearsAbsences(t *testing.T) {
	r := New()
	if err := r.LoadRoster(cseA2(), roster101to103()); err != nil {
		t.Fatalf("load roster: %v", err)
	}
	_ = r.ToggleAbsent("102", true)

	key := ClassKey{Department: "CSE", ClassRoom: "B", Year: 2}
	if err := r.LoadRoster(key, []StudentRecord{{RollNo: "201"}}); err != nil {
		t.Fatalf("reload roster: %v", err)
	}
	if got := r.AbsentRollNos(); len(got) != 0 {
		t.Errorf("expected absences cleared by roster swap, got %v", got)
	}
}

func TestBuildSubmission(t *testing.T) {
	r := New()
	if err := r.LoadRoster(cseA2(), roster101to103()); err != nil {
		t.Fatalf("load roster: %v", err)
	}
	if err := r.ToggleAbsent("102", true); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if _, err := r.BuildSubmission("2024-05-01", 0); err == nil {
		t.Error("expected ValidationError for period 0")
	}
	if _, err := r.BuildSubmission("", 1); err == nil {
		t.Error("expected ValidationError for empty date")
	}

	sub, err := r.BuildSubmission("2024-05-01", 1)
	if err != nil {
		t.Fatalf("build submission: %v", err)
	}
	want := Submission{
		Date:          "2024-05-01",
		ClassRoom:     "A",
		Department:    "CSE",
		Year:          2,
		Period:        1,
		AbsentRollNos: []string{"102"},
	}
	if !reflect.DeepEqual(sub, want) {
		t.Errorf("submission mismatch:\n got %+v\nwant %+v", sub, want)
	}

	// Building is a snapshot; the working set is untouched.
	if got := r.AbsentRollNos(); !reflect.DeepEqual(got, []string{"102"}) {
		t.Errorf("BuildSubmission mutated state: %v", got)
	}
}

func TestBuildSubmissionWithoutRoster(t *testing.T) {
	r := New()
	if _, err := r.BuildSubmission("2024-05-01", 1); err == nil {
		t.Error("expected ValidationError with no roster loaded")
	}
}

func TestResetKeepsRoster(t *testing.T) {
	r := New()
	if err := r.LoadRoster(cseA2(), roster101to103()); err != nil {
		t.Fatalf("load roster: %v", err)
	}
	_ = r.ToggleAbsent("101", true)
	r.Reset()
	if got := r.AbsentRollNos(); len(got) != 0 {
		t.Errorf("expected absences cleared, got %v", got)
	}
	if got := len(r.Roster()); got != 3 {
		t.Errorf("expected roster retained after reset, got %d records", got)
	}
}

func TestStaleFetchDiscarded(t *testing.T) {
	r := New()
	keyA := ClassKey{Department: "CSE", ClassRoom: "A", Year: 1}
	keyB := ClassKey{Department: "CSE", ClassRoom: "B", Year: 1}

	seq1, err := r.Begin(keyA)
	if err != nil {
		t.Fatalf("begin #1: %v", err)
	}
	seq2, err := r.Begin(keyB)
	if err != nil {
		t.Fatalf("begin #2: %v", err)
	}

	if !r.Complete(seq2, keyB, []StudentRecord{{RollNo: "201"}}) {
		t.Fatal("fresh completion was discarded")
	}
	if r.Complete(seq1, keyA, roster101to103()) {
		t.Fatal("stale completion was applied")
	}

	got := r.Roster()
	if len(got) != 1 || got[0].RollNo != "201" {
		t.Errorf("late response overwrote newer roster: %v", got)
	}
}

func TestCounts(t *testing.T) {
	r := New()
	if err := r.LoadRoster(cseA2(), roster101to103()); err != nil {
		t.Fatalf("load roster: %v", err)
	}
	_ = r.ToggleAbsent("103", true)
	total, present, absent := r.Counts()
	if total != 3 || present != 2 || absent != 1 {
		t.Errorf("counts = (%d,%d,%d), want (3,2,1)", total, present, absent)
	}
	if got := r.PresentRollNos(); !reflect.DeepEqual(got, []string{"101", "102"}) {
		t.Errorf("present partition = %v", got)
	}
}
