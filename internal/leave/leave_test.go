package leave

import (
	"errors"
	"testing"

	"campusportal/internal/auth"
)

func pending() Request {
	return Request{ID: "r1", RollNo: "101", Status: StatusPending}
}

func TestStaffDecidesPending(t *testing.T) {
	for _, decision := range []Status{StatusApproved, StatusRejected} {
		got, err := pending().Decide(auth.RoleStaff, decision)
		if err != nil {
			t.Fatalf("decide %s: %v", decision, err)
		}
		if got.Status != decision {
			t.Errorf("status = %q, want %q", got.Status, decision)
		}
	}
}

func TestStaffForwardsToHOD(t *testing.T) {
	got, err := pending().Forward(auth.RoleStaff)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if got.Status != StatusPendingHOD || !got.Forwarded {
		t.Errorf("after forward: status=%q forwarded=%v", got.Status, got.Forwarded)
	}
}

func TestHODDecidesForwarded(t *testing.T) {
	forwarded, err := pending().Forward(auth.RoleStaff)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	got, err := forwarded.Decide(auth.RoleHOD, StatusApproved)
	if err != nil {
		t.Fatalf("hod decide: %v", err)
	}
	if got.Status != StatusApproved {
		t.Errorf("status = %q", got.Status)
	}
}

func TestInvalidTransitions(t *testing.T) {
	forwarded, _ := pending().Forward(auth.RoleStaff)
	approved, _ := pending().Decide(auth.RoleStaff, StatusApproved)

	cases := []struct {
		name string
		run  func() error
	}{
		{"staff decides forwarded", func() error { _, err := forwarded.Decide(auth.RoleStaff, StatusApproved); return err }},
		{"staff forwards twice", func() error { _, err := forwarded.Forward(auth.RoleStaff); return err }},
		{"hod decides unforwarded", func() error { _, err := pending().Decide(auth.RoleHOD, StatusApproved); return err }},
		{"hod forwards", func() error { _, err := pending().Forward(auth.RoleHOD); return err }},
		{"student decides", func() error { _, err := pending().Decide(auth.RoleStudent, StatusApproved); return err }},
		{"decide to pending", func() error { _, err := pending().Decide(auth.RoleStaff, StatusPending); return err }},
		{"decide settled request", func() error { _, err := approved.Decide(auth.RoleStaff, StatusRejected); return err }},
	}
	for _, tc := range cases {
		err := tc.run()
		var te *TransitionError
		if !errors.As(err, &te) {
			t.Errorf("%s: expected TransitionError, got %v", tc.name, err)
		}
	}
}

func TestActionableBy(t *testing.T) {
	forwarded, _ := pending().Forward(auth.RoleStaff)
	cases := []struct {
		name string
		req  Request
		role auth.Role
		want bool
	}{
		{"staff on pending", pending(), auth.RoleStaff, true},
		{"staff on forwarded", forwarded, auth.RoleStaff, false},
		{"hod on pending", pending(), auth.RoleHOD, false},
		{"hod on forwarded", forwarded, auth.RoleHOD, true},
		{"student on pending", pending(), auth.RoleStudent, false},
	}
	for _, tc := range cases {
		if got := tc.req.ActionableBy(tc.role); got != tc.want {
			t.Errorf("%s: ActionableBy = %v, want %v", tc.name, got, tc.want)
		}
	}
}
