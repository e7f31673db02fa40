package indexdb

import (
	"context"
	"database/sql"
)

// QueryInputs returns the newest inputs first. An empty user matches everyone.
func QueryInputs(ctx context.Context, db *sql.DB, user string, limit int) ([]InputRow, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT frame,ts,user,button FROM inputs`
	args := []any{}
	if user != "" {
		q += ` WHERE user=?`
		args = append(args, user)
	}
	q += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InputRow
	for rows.Next() {
		var r InputRow
		var frame int64
		if err := rows.Scan(&frame, &r.TS, &r.User, &r.Button); err != nil {
			return nil, err
		}
		r.Frame = uint64(frame)
		out = append(out, r)
	}
	return out, rows.Err()
}

// QuerySaves returns the newest saves first.
func QuerySaves(ctx context.Context, db *sql.DB, limit int) ([]SaveRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `SELECT path,game_code,frame,bytes,ts FROM saves ORDER BY ts DESC, path DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SaveRow
	for rows.Next() {
		var r SaveRow
		var frame int64
		if err := rows.Scan(&r.Path, &r.GameCode, &frame, &r.Bytes, &r.TS); err != nil {
			return nil, err
		}
		r.Frame = uint64(frame)
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopUsers counts inputs per user, busiest first.
func TopUsers(ctx context.Context, db *sql.DB, limit int) (map[string]int64, []string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx, `SELECT user, COUNT(*) AS n FROM inputs GROUP BY user ORDER BY n DESC, user ASC LIMIT ?`, limit)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	counts := map[string]int64{}
	var order []string
	for rows.Next() {
		var u string
		var n int64
		if err := rows.Scan(&u, &n); err != nil {
			return nil, nil, err
		}
		counts[u] = n
		order = append(order, u)
	}
	return counts, order, rows.Err()
}

// QuerySessions returns the newest server starts first.
func QuerySessions(ctx context.Context, db *sql.DB, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT started_at,clean_prev,core,game_code FROM sessions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		var clean int
		if err := rows.Scan(&r.StartedAt, &clean, &r.Core, &r.GameCode); err != nil {
			return nil, err
		}
		r.CleanPrev = clean != 0
		out = append(out, r)
	}
	return out, rows.Err()
}
