package leave

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a request id does not exist.
var ErrNotFound = errors.New("leave: request not found")

// Repository persists leave requests in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert files a new request with status Pending.
func (r *Repository) Insert(ctx context.Context, req Request) (Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = StatusPending
	req.Forwarded = false
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO leave_requests (id, roll_no, reason, from_date, to_date, file_path, status, forwarded)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, req.ID, req.RollNo, req.Reason, req.FromDate, req.ToDate, req.FilePath, req.Status, req.Forwarded)
	if err := row.Scan(&req.CreatedAt); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Get returns one request by id.
func (r *Repository) Get(ctx context.Context, id string) (Request, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, roll_no, reason, from_date, to_date, file_path, status, forwarded, created_at
		FROM leave_requests WHERE id = $1
	`, id)
	return scanRequest(row)
}

// ListForApprover returns the requests visible on the approval dashboard,
// newest first.
func (r *Repository) ListForApprover(ctx context.Context) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, roll_no, reason, from_date, to_date, file_path, status, forwarded, created_at
		FROM leave_requests
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ListForStudent returns a student's own requests, newest first.
func (r *Repository) ListForStudent(ctx context.Context, rollNo string) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, roll_no, reason, from_date, to_date, file_path, status, forwarded, created_at
		FROM leave_requests
		WHERE roll_no = $1
		ORDER BY created_at DESC
	`, rollNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Update writes back a request's status and forwarded flag.
func (r *Repository) Update(ctx context.Context, req Request) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leave_requests SET status = $2, forwarded = $3 WHERE id = $1
	`, req.ID, req.Status, req.Forwarded)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var req Request
	var status string
	err := row.Scan(&req.ID, &req.RollNo, &req.Reason, &req.FromDate, &req.ToDate, &req.FilePath, &status, &req.Forwarded, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, err
	}
	req.Status = Status(status)
	return req, nil
}
