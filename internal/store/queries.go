package store

import (
	"context"
	"database/sql"
	_ "embed"
)

//go:embed schema.sql
var Schema string

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// MakeTx is a function that creates a db transaction
type MakeTx = func() (tx *Queries, discard, commit func() error, err error)

func NewMakeTx(dbtx *sql.DB) MakeTx {
	return func() (tx *Queries, discard, commit func() error, err error) {
		sqltx, err := dbtx.Begin()
		if err != nil {
			return nil, nil, nil, err
		}
		txqry := New(sqltx)
		return txqry,
			func() error {
				return sqltx.Rollback()
			},
			func() error {
				return sqltx.Commit()
			},
			nil
	}
}

type MonthlySnapshotRow struct {
	ID        string
	Year      int64
	Month     int64
	FetchedAt int64
	Payload   string
}

const createMonthlySnapshot = `insert into monthly_snapshot (id, year, month, fetched_at, payload)
values (?, ?, ?, ?, ?)`

func (q *Queries) CreateMonthlySnapshot(ctx context.Context, row MonthlySnapshotRow) error {
	_, err := q.db.ExecContext(ctx, createMonthlySnapshot,
		row.ID,
		row.Year,
		row.Month,
		row.FetchedAt,
		row.Payload,
	)
	return err
}

const getLatestMonthlySnapshot = `select id, year, month, fetched_at, payload from monthly_snapshot
where year = ? and month = ?
order by fetched_at desc, rowid desc
limit 1`

func (q *Queries) GetLatestMonthlySnapshot(ctx context.Context, year, month int64) (MonthlySnapshotRow, error) {
	row := q.db.QueryRowContext(ctx, getLatestMonthlySnapshot, year, month)
	var r MonthlySnapshotRow
	err := row.Scan(&r.ID, &r.Year, &r.Month, &r.FetchedAt, &r.Payload)
	return r, err
}

const listMonthlySnapshots = `select id, year, month, fetched_at from monthly_snapshot
order by fetched_at desc, rowid desc
limit ?`

func (q *Queries) ListMonthlySnapshots(ctx context.Context, limit int64) ([]MonthlySnapshotRow, error) {
	rows, err := q.db.QueryContext(ctx, listMonthlySnapshots, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MonthlySnapshotRow
	for rows.Next() {
		var r MonthlySnapshotRow
		err := rows.Scan(&r.ID, &r.Year, &r.Month, &r.FetchedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// keeps the newest `keep` snapshots of a month
const pruneMonthlySnapshots = `delete from monthly_snapshot
where year = ? and month = ? and id not in (
    select id from monthly_snapshot
    where year = ? and month = ?
    order by fetched_at desc, rowid desc
    limit ?
)`

func (q *Queries) PruneMonthlySnapshots(ctx context.Context, year, month, keep int64) error {
	_, err := q.db.ExecContext(ctx, pruneMonthlySnapshots, year, month, year, month, keep)
	return err
}
