// Package metrics exposes the portal's prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Logins counts login attempts by outcome.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	// SubmissionsAccepted counts attendance sheets accepted onto the queue.
	SubmissionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_attendance_submissions_total",
		Help: "Attendance sheets accepted for processing.",
	})

	// SubmissionsPersisted counts sheets the worker wrote to the database.
	SubmissionsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_attendance_persisted_total",
		Help: "Attendance sheets persisted by the worker, by outcome.",
	}, []string{"outcome"})

	// LeaveDecisions counts leave workflow actions by action name.
	LeaveDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_leave_decisions_total",
		Help: "Leave request workflow actions.",
	}, []string{"action"})
)
