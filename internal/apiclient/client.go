// Package apiclient calls the remote portal API. Field names are normalized
// at this boundary: the wire's `Year` query key, `percentCount`, and
// string-or-array `roles` never leak past it.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"campusportal/internal/leave"
	"campusportal/internal/reconcile"
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource func(ctx context.Context) (string, error)

// Client calls the portal API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   TokenSource
}

// New creates a client. token may be nil for unauthenticated use (login).
func New(baseURL string, token TokenSource) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// APIError is a response the server rejected (HTTP error status or
// success=false envelope).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal api: status %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (envelope, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var buf *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return envelope{}, err
		}
		buf = bytes.NewBuffer(payload)
	} else {
		buf = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return envelope{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != nil {
		token, err := c.Token(ctx)
		if err != nil {
			return envelope{}, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return envelope{}, &APIError{Status: resp.StatusCode, Message: resp.Status}
		}
		return envelope{}, err
	}
	if resp.StatusCode >= 400 || !env.Success {
		return envelope{}, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	return env, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, rollNo, password, role string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/login", nil, map[string]string{
		"rollNo":   rollNo,
		"password": password,
		"roles":    role,
	})
	if err != nil {
		return "", err
	}
	return env.Token, nil
}

// FetchRoster fetches the roster for a class.
func (c *Client) FetchRoster(ctx context.Context, key reconcile.ClassKey) ([]reconcile.StudentRecord, error) {
	q := url.Values{}
	q.Set("classRoom", key.ClassRoom)
	q.Set("department", key.Department)
	q.Set("Year", strconv.Itoa(key.Year))
	env, err := c.do(ctx, http.MethodGet, "/api/getAllAttendance", q, nil)
	if err != nil {
		return nil, err
	}
	var records []reconcile.StudentRecord
	if err := json.Unmarshal(env.Data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// MarkAttendance dispatches a bulk attendance submission.
func (c *Client) MarkAttendance(ctx context.Context, sub reconcile.Submission) error {
	_, err := c.do(ctx, http.MethodPost, "/api/markAttendance", nil, map[string]any{
		"attendanceDate": sub.Date,
		"classRoom":      sub.ClassRoom,
		"department":     sub.Department,
		"absent":         sub.AbsentRollNos,
		"period":         sub.Period,
		"Year":           sub.Year,
	})
	return err
}

// GetAttendance fetches the caller's cumulative attendance up to a date.
func (c *Client) GetAttendance(ctx context.Context, date string) (reconcile.CumulativeSummary, error) {
	q := url.Values{}
	q.Set("attendanceDate", date)
	env, err := c.do(ctx, http.MethodGet, "/api/getAttendance", q, nil)
	if err != nil {
		return reconcile.CumulativeSummary{}, err
	}
	var raw reconcile.RawCumulative
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return reconcile.CumulativeSummary{}, err
	}
	return reconcile.SummarizeCumulative(raw), nil
}

// ClassReport fetches the per-period present/absent partition for a class on
// one date, normalized into ordered summaries.
func (c *Client) ClassReport(ctx context.Context, date, classRoom, department string) ([]reconcile.PeriodSummary, error) {
	q := url.Values{}
	q.Set("attendanceDate", date)
	q.Set("classRoom", classRoom)
	q.Set("department", department)
	env, err := c.do(ctx, http.MethodGet, "/api/attendance/cc", q, nil)
	if err != nil {
		return nil, err
	}
	var byPeriod map[string]reconcile.PeriodRecord
	if err := json.Unmarshal(env.Data, &byPeriod); err != nil {
		return nil, err
	}
	return reconcile.SummarizeByPeriod(byPeriod), nil
}

// LeaveRequests lists the requests visible to an approver.
func (c *Client) LeaveRequests(ctx context.Context) ([]leave.Request, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/leaveRequestadmin", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []leave.Request
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateLeaveStatus approves or rejects a request.
func (c *Client) UpdateLeaveStatus(ctx context.Context, id string, status leave.Status) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/leaverequest/"+url.PathEscape(id), nil, map[string]string{
		"status": string(status),
	})
	return err
}

// ForwardLeave escalates a request to the HOD.
func (c *Client) ForwardLeave(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/leaverequest/forward/"+url.PathEscape(id), nil, nil)
	return err
}
