// Package roster persists the class rosters and submitted attendance sheets
// behind the portal API.
package roster

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"campusportal/internal/reconcile"
)

// Repository persists roster and attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListStudents returns the roster for a class, ordered by roll number.
func (r *Repository) ListStudents(ctx context.Context, key reconcile.ClassKey) ([]reconcile.StudentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT roll_no, email
		FROM students
		WHERE department = $1 AND class_room = $2 AND year = $3
		ORDER BY roll_no
	`, key.Department, key.ClassRoom, key.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []reconcile.StudentRecord
	for rows.Next() {
		var rec reconcile.StudentRecord
		if err := rows.Scan(&rec.RollNo, &rec.Email); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveSheet stores a submitted attendance sheet. Re-submitting the same
// (date, class, period) replaces the previous absentee list.
func (r *Repository) SaveSheet(ctx context.Context, sub reconcile.Submission) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sheetID := uuid.NewString()
	row := tx.QueryRowContext(ctx, `
		INSERT INTO attendance_sheets (id, sheet_date, department, class_room, year, period)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (sheet_date, department, class_room, year, period)
		DO UPDATE SET id = attendance_sheets.id
		RETURNING id
	`, sheetID, sub.Date, sub.Department, sub.ClassRoom, sub.Year, sub.Period)
	if err := row.Scan(&sheetID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_absentees WHERE sheet_id = $1`, sheetID); err != nil {
		return err
	}
	for _, rollNo := range sub.AbsentRollNos {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_absentees (sheet_id, roll_no) VALUES ($1, $2)
		`, sheetID, rollNo); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PeriodReport returns the per-period present/absent partition for a class
// on one date. Present is the roster minus that period's absentees.
func (r *Repository) PeriodReport(ctx context.Context, date, department, classRoom string) (map[string]reconcile.PeriodRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.period, s.year, a.roll_no
		FROM attendance_sheets s
		LEFT JOIN attendance_absentees a ON a.sheet_id = s.id
		WHERE s.sheet_date = $1 AND s.department = $2 AND s.class_room = $3
		ORDER BY s.period, a.roll_no
	`, date, department, classRoom)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type sheet struct {
		year   int
		absent []string
	}
	sheets := make(map[string]*sheet)
	for rows.Next() {
		var period string
		var year int
		var rollNo sql.NullString
		if err := rows.Scan(&period, &year, &rollNo); err != nil {
			return nil, err
		}
		sh, ok := sheets[period]
		if !ok {
			sh = &sheet{year: year}
			sheets[period] = sh
		}
		if rollNo.Valid {
			sh.absent = append(sh.absent, rollNo.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]reconcile.PeriodRecord, len(sheets))
	for period, sh := range sheets {
		roster, err := r.ListStudents(ctx, reconcile.ClassKey{Department: department, ClassRoom: classRoom, Year: sh.year})
		if err != nil {
			return nil, err
		}
		absentSet := make(map[string]struct{}, len(sh.absent))
		for _, rollNo := range sh.absent {
			absentSet[rollNo] = struct{}{}
		}
		var present []string
		for _, rec := range roster {
			if _, ok := absentSet[rec.RollNo]; !ok {
				present = append(present, rec.RollNo)
			}
		}
		out[period] = reconcile.PeriodRecord{Present: present, Absent: sh.absent}
	}
	return out, nil
}

// StudentCumulative aggregates one student's attendance up to and including
// the given date (all time when date is empty).
func (r *Repository) StudentCumulative(ctx context.Context, rollNo, date string) (reconcile.RawCumulative, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE a.roll_no IS NULL) AS present
		FROM attendance_sheets s
		JOIN students st ON st.department = s.department AND st.class_room = s.class_room AND st.year = s.year
		LEFT JOIN attendance_absentees a ON a.sheet_id = s.id AND a.roll_no = st.roll_no
		WHERE st.roll_no = $1
	`
	args := []any{rollNo}
	if date != "" {
		query += ` AND s.sheet_date <= $2`
		args = append(args, date)
	}
	var raw reconcile.RawCumulative
	row := r.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&raw.Total, &raw.PercentCount); err != nil {
		return reconcile.RawCumulative{}, err
	}
	return raw, nil
}

// DepartmentRow is one line of the HOD's cumulative dashboard.
type DepartmentRow struct {
	RollNo       string  `json:"rollNo"`
	Total        int     `json:"total"`
	PresentCount int     `json:"presentCount"`
	Percentage   float64 `json:"percentage"`
}

// DepartmentCumulative aggregates per-student attendance for a department.
func (r *Repository) DepartmentCumulative(ctx context.Context, department string) ([]DepartmentRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			st.roll_no,
			COUNT(s.id) AS total,
			COUNT(s.id) FILTER (WHERE a.roll_no IS NULL) AS present
		FROM students st
		LEFT JOIN attendance_sheets s
			ON s.department = st.department AND s.class_room = st.class_room AND s.year = st.year
		LEFT JOIN attendance_absentees a ON a.sheet_id = s.id AND a.roll_no = st.roll_no
		WHERE st.department = $1
		GROUP BY st.roll_no
		ORDER BY st.roll_no
	`, department)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DepartmentRow
	for rows.Next() {
		var dr DepartmentRow
		if err := rows.Scan(&dr.RollNo, &dr.Total, &dr.PresentCount); err != nil {
			return nil, err
		}
		if dr.Total > 0 {
			dr.Percentage = float64(dr.PresentCount) / float64(dr.Total) * 100
		}
		out = append(out, dr)
	}
	return out, rows.Err()
}

// Announcement is a posted notice.
type Announcement struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	PostedBy  string `json:"postedBy"`
	CreatedAt string `json:"createdAt"`
}

// ListAnnouncements returns announcements, newest first.
func (r *Repository) ListAnnouncements(ctx context.Context, limit int) ([]Announcement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, body, posted_by, created_at::text
		FROM announcements
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Announcement
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.PostedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertAnnouncement posts a notice.
func (r *Repository) InsertAnnouncement(ctx context.Context, a Announcement) (Announcement, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO announcements (id, title, body, posted_by)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at::text
	`, a.ID, a.Title, a.Body, a.PostedBy)
	if err := row.Scan(&a.CreatedAt); err != nil {
		return Announcement{}, err
	}
	return a, nil
}

// ErrNoSuchUser is returned when the roll number has no account.
var ErrNoSuchUser = errors.New("roster: no such user")

// UserAccount holds a login account's stored credentials.
type UserAccount struct {
	RollNo       string
	PasswordHash string
	Role         string
}

// GetUser fetches an account by roll number.
func (r *Repository) GetUser(ctx context.Context, rollNo string) (UserAccount, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT roll_no, password_hash, role FROM users WHERE roll_no = $1
	`, rollNo)
	var u UserAccount
	if err := row.Scan(&u.RollNo, &u.PasswordHash, &u.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserAccount{}, ErrNoSuchUser
		}
		return UserAccount{}, err
	}
	return u, nil
}
