// Package navigation maps a role onto the set of screens it may reach. The
// menu tables are the single source of truth for what each role sees; screen
// code asks CanNavigate instead of keeping its own role checks.
package navigation

import "campusportal/internal/auth"

// Destination identifies a screen.
type Destination string

const (
	Dashboard         Destination = "Dashboard"
	Profile           Destination = "Profile"
	Announcements     Destination = "Announcements"
	MarksView         Destination = "MarksView"
	LeaveRequest      Destination = "LeaveRequest"
	StudentReports    Destination = "StudentReports"
	UploadMarks       Destination = "UploadMarks"
	LeaveRequestAdmin Destination = "LeaveRequestAdmin"
	CCAttendance      Destination = "CCAttendance"
	CumulativeReport  Destination = "CumulativeReport"
	HodAnnouncements  Destination = "HodAnnouncements"
)

// Item is one entry in a role's menu.
type Item struct {
	Label       string
	Destination Destination
}

var studentMenu = []Item{
	{Label: "Dashboard", Destination: Dashboard},
	{Label: "Profile", Destination: Profile},
	{Label: "Announcements", Destination: Announcements},
	{Label: "Internal Marks", Destination: MarksView},
	{Label: "Leave/OD Request", Destination: LeaveRequest},
	{Label: "My Reports", Destination: StudentReports},
}

var staffMenu = []Item{
	{Label: "Dashboard", Destination: Dashboard},
	{Label: "Profile", Destination: Profile},
	{Label: "Announcements", Destination: Announcements},
	{Label: "Upload Marks", Destination: UploadMarks},
	{Label: "Leave/OD Approvals", Destination: LeaveRequestAdmin},
	{Label: "Class Report", Destination: CCAttendance},
}

var hodMenu = []Item{
	{Label: "Dashboard", Destination: CumulativeReport},
	{Label: "Profile", Destination: Profile},
	{Label: "Announcements", Destination: HodAnnouncements},
	{Label: "Leave Approvals", Destination: LeaveRequestAdmin},
	{Label: "Class Reports", Destination: CCAttendance},
}

// fallbackMenu keeps navigation alive for a role we do not recognize.
var fallbackMenu = []Item{
	{Label: "Dashboard", Destination: Dashboard},
	{Label: "Profile", Destination: Profile},
}

// MenuFor returns the ordered menu for a role. Total over all inputs: an
// unrecognized role gets the minimal fallback menu, never an empty one.
func MenuFor(role auth.Role) []Item {
	var src []Item
	switch role {
	case auth.RoleStudent:
		src = studentMenu
	case auth.RoleStaff:
		src = staffMenu
	case auth.RoleHOD:
		src = hodMenu
	default:
		src = fallbackMenu
	}
	out := make([]Item, len(src))
	copy(out, src)
	return out
}

// CanNavigate reports whether dest appears in the role's menu. Action-level
// guards (who may approve or forward a leave request) live with the action,
// not here; this only gates screen visibility.
func CanNavigate(role auth.Role, dest Destination) bool {
	for _, item := range MenuFor(role) {
		if item.Destination == dest {
			return true
		}
	}
	return false
}
