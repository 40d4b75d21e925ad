package navigation

import (
	"reflect"
	"testing"

	"campusportal/internal/auth"
)

var allRoles = []auth.Role{auth.RoleStudent, auth.RoleStaff, auth.RoleHOD, auth.RoleUnknown}

func TestMenuNonEmptyAndDeterministic(t *testing.T) {
	for _, role := range allRoles {
		first := MenuFor(role)
		if len(first) == 0 {
			t.Errorf("role %q: empty menu", role)
		}
		second := MenuFor(role)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("role %q: menu not deterministic", role)
		}
	}
}

func TestMenuTables(t *testing.T) {
	destsOf := func(items []Item) []Destination {
		out := make([]Destination, len(items))
		for i, it := range items {
			out[i] = it.Destination
		}
		return out
	}

	cases := []struct {
		role auth.Role
		want []Destination
	}{
		{auth.RoleStudent, []Destination{Dashboard, Profile, Announcements, MarksView, LeaveRequest, StudentReports}},
		{auth.RoleStaff, []Destination{Dashboard, Profile, Announcements, UploadMarks, LeaveRequestAdmin, CCAttendance}},
		{auth.RoleHOD, []Destination{CumulativeReport, Profile, HodAnnouncements, LeaveRequestAdmin, CCAttendance}},
		{auth.RoleUnknown, []Destination{Dashboard, Profile}},
	}
	for _, tc := range cases {
		if got := destsOf(MenuFor(tc.role)); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("role %q:\n got %v\nwant %v", tc.role, got, tc.want)
		}
	}
}

func TestUnrecognizedRoleFallsBack(t *testing.T) {
	got := MenuFor(auth.ParseRole("principal"))
	if len(got) != 2 {
		t.Fatalf("expected minimal fallback menu, got %v", got)
	}
}

func TestCanNavigate(t *testing.T) {
	cases := []struct {
		role auth.Role
		dest Destination
		want bool
	}{
		{auth.RoleStaff, CCAttendance, true},
		{auth.RoleStudent, CCAttendance, false},
		{auth.RoleStudent, LeaveRequest, true},
		{auth.RoleStudent, LeaveRequestAdmin, false},
		{auth.RoleHOD, CumulativeReport, true},
		{auth.RoleHOD, UploadMarks, false},
		{auth.RoleUnknown, Profile, true},
		{auth.RoleUnknown, CCAttendance, false},
	}
	for _, tc := range cases {
		if got := CanNavigate(tc.role, tc.dest); got != tc.want {
			t.Errorf("CanNavigate(%q, %q) = %v, want %v", tc.role, tc.dest, got, tc.want)
		}
	}
}

func TestMenuCopyIsIsolated(t *testing.T) {
	menu := MenuFor(auth.RoleStudent)
	menu[0].Label = "mutated"
	if MenuFor(auth.RoleStudent)[0].Label == "mutated" {
		t.Error("MenuFor returned shared backing array")
	}
}
