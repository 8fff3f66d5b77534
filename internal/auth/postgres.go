package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	_ UserStore   = (*PGStore)(nil)
	_ ReportStore = (*PGStore)(nil)
)

// PGStore implements the credential and reporting stores over PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `id, name, email, password_hash, role, is_verified,
	verification_token, verification_token_expires,
	reset_token, reset_token_expires,
	last_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsVerified,
		&u.VerificationToken, &u.VerificationTokenExpires,
		&u.ResetToken, &u.ResetTokenExpires,
		&u.LastActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) CreateUser(ctx context.Context, u *User) error {
	row := s.db.QueryRowContext(ctx,
		`insert into users(name, email, password_hash, verification_token, verification_token_expires)
		 values($1,$2,$3,$4,$5)
		 returning id, role, is_verified, created_at, updated_at`,
		u.Name, u.Email, u.PasswordHash, u.VerificationToken, u.VerificationTokenExpires,
	)
	return row.Scan(&u.ID, &u.Role, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
}

func (s *PGStore) UserByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *PGStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email))
}

func (s *PGStore) UserByResetToken(ctx context.Context, token string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where reset_token=$1`, token))
}

func (s *PGStore) SetVerificationToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update users set verification_token=$1, verification_token_expires=$2, updated_at=now() where id=$3`,
		token, expires, userID)
	return err
}

func (s *PGStore) MarkVerified(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx,
		`update users
		 set is_verified=true, verification_token=null, verification_token_expires=null, updated_at=now()
		 where verification_token=$1 and verification_token_expires > now()`,
		token)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidToken
	}
	return nil
}

func (s *PGStore) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update users set reset_token=$1, reset_token_expires=$2, updated_at=now() where id=$3`,
		token, expires, userID)
	return err
}

func (s *PGStore) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`update users set password_hash=$1, updated_at=now() where id=$2`,
		passwordHash, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`update users set reset_token=null, reset_token_expires=null where id=$1`,
		userID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) UpdateName(ctx context.Context, userID int64, name string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`update users set name=$1, updated_at=now() where id=$2 returning `+userColumns,
		name, userID))
}

func (s *PGStore) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`update users set password_hash=$1, updated_at=now() where id=$2`,
		passwordHash, userID)
	return err
}

func (s *PGStore) TouchLastActive(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`update users set last_active=now() where id=$1`, userID)
	return err
}

func (s *PGStore) RecordVisit(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`insert into site_visits(visited_at) values (now())`)
	return err
}

// Reporting ----------------------------------------------------------------

func (s *PGStore) Stats(ctx context.Context, activeWindow time.Duration) (Stats, error) {
	var out Stats
	counts := []struct {
		query string
		args  []any
		dest  *int64
	}{
		{`select count(*) from users`, nil, &out.Users},
		{`select count(*) from conversion_logs`, nil, &out.Conversions},
		{`select count(*) from site_visits`, nil, &out.Visits},
		{`select count(*) from users where last_active > now() - make_interval(secs => $1)`,
			[]any{activeWindow.Seconds()}, &out.ActiveUsers},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return Stats{}, err
		}
	}
	return out, nil
}

func (s *PGStore) RecentConversions(ctx context.Context, limit int) ([]ConversionLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`select cl.id, cl.user_id, u.email as user_email,
		        cl.original_file_name, cl.converted_file_name, cl.conversion_type, cl.status,
		        to_char(cl.created_at, 'YYYY-MM-DD HH24:MI:SS') as created_at,
		        to_char(cl.updated_at, 'YYYY-MM-DD HH24:MI:SS') as updated_at
		 from conversion_logs cl
		 left join users u on cl.user_id = u.id
		 order by cl.created_at desc
		 limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ConversionLog
	for rows.Next() {
		var l ConversionLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.UserEmail,
			&l.OriginalFileName, &l.ConvertedFileName, &l.ConversionType, &l.Status,
			&l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *PGStore) ActiveUsers(ctx context.Context, window time.Duration) ([]ActiveUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, email, last_active from users
		 where last_active > now() - make_interval(secs => $1)
		 order by last_active desc`, window.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []ActiveUser
	for rows.Next() {
		var u ActiveUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.LastActive); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PGStore) MonthlySiteViews(ctx context.Context, months int) ([]MonthlyViews, error) {
	// Buckets are zero-filled on the database side so the chart always gets
	// a full trailing window.
	rows, err := s.db.QueryContext(ctx,
		`select to_char(m.month, 'YYYY-MM') as month, count(v.id) as views
		 from generate_series(
		     date_trunc('month', now()) - make_interval(months => $1::int - 1),
		     date_trunc('month', now()),
		     interval '1 month') as m(month)
		 left join site_visits v on date_trunc('month', v.visited_at) = m.month
		 group by m.month
		 order by m.month`, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []MonthlyViews
	for rows.Next() {
		var v MonthlyViews
		if err := rows.Scan(&v.Month, &v.Views); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
