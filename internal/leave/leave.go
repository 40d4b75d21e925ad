// Package leave implements the leave/OD request workflow: a student files a
// request, staff approve, reject, or forward it to the HOD, and the HOD
// decides forwarded requests.
package leave

import (
	"fmt"
	"time"

	"campusportal/internal/auth"
)

// Status is a request's position in the workflow. The string values match
// the portal wire contract, including the lower-cased pendingHod.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusPendingHOD Status = "pendingHod"
	StatusApproved   Status = "Approved"
	StatusRejected   Status = "Rejected"
)

// TransitionError reports a workflow action the current state or role does
// not allow.
type TransitionError struct {
	From   Status
	Action string
	Role   auth.Role
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("leave: %s by role %q not allowed from status %q", e.Action, string(e.Role), string(e.From))
}

// Request is one leave/OD request.
type Request struct {
	ID        string    `json:"id"`
	RollNo    string    `json:"rollNo"`
	Reason    string    `json:"reason"`
	FromDate  string    `json:"fromDate"`
	ToDate    string    `json:"toDate"`
	FilePath  string    `json:"filePath,omitempty"`
	Status    Status    `json:"status"`
	Forwarded bool      `json:"forwarded"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActionableBy reports whether role can act on the request at all. Staff act
// on unforwarded Pending requests; the HOD acts on forwarded ones.
func (r Request) ActionableBy(role auth.Role) bool {
	switch role {
	case auth.RoleStaff:
		return r.Status == StatusPending && !r.Forwarded
	case auth.RoleHOD:
		return r.Status == StatusPendingHOD
	}
	return false
}

// Decide applies an approve/reject decision and returns the updated request.
// Staff decide unforwarded Pending requests, the HOD decides pendingHod ones.
func (r Request) Decide(role auth.Role, decision Status) (Request, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return Request{}, &TransitionError{From: r.Status, Action: "decide " + string(decision), Role: role}
	}
	if !r.ActionableBy(role) {
		return Request{}, &TransitionError{From: r.Status, Action: "decide", Role: role}
	}
	r.Status = decision
	return r, nil
}

// Forward escalates an unforwarded Pending request to the HOD. Staff only.
func (r Request) Forward(role auth.Role) (Request, error) {
	if role != auth.RoleStaff || !r.ActionableBy(role) {
		return Request{}, &TransitionError{From: r.Status, Action: "forward", Role: role}
	}
	r.Status = StatusPendingHOD
	r.Forwarded = true
	return r, nil
}
