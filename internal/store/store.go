// Package store keeps the monthly shift aggregates that were served, so the last
// known month can still be shown while a portal is unreachable.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"portalbot-backend/internal/components/assert"
	"portalbot-backend/internal/components/chrono"
	"portalbot-backend/internal/shiftcal"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("snapshot not found")

const DefaultKeepPerMonth = 5

type Snapshot struct {
	Id        string                `json:"id"`
	FetchedAt time.Time             `json:"fetched_at"`
	Shift     shiftcal.MonthlyShift `json:"shift"`
}

// SnapshotInfo is a Snapshot without its payload.
type SnapshotInfo struct {
	Id        string
	Year      int
	Month     int
	FetchedAt time.Time
}

type Store struct {
	db     *sql.DB
	qry    *Queries
	makeTx MakeTx
	time   chrono.API
	keep   int
}

// Open opens (or creates) the sqlite database at path, ":memory:" is allowed.
func Open(path string, time chrono.API, keepPerMonth int) (*Store, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every new connection to :memory: is a new empty database
		database.SetMaxOpenConns(1)
	}
	_, err = database.Exec(Schema)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return NewStore(database, time, keepPerMonth), nil
}

func NewStore(database *sql.DB, time chrono.API, keepPerMonth int) *Store {
	assert.NotNil(database, "database")
	assert.NotNil(time, "time")
	if keepPerMonth <= 0 {
		keepPerMonth = DefaultKeepPerMonth
	}
	return &Store{
		db:     database,
		qry:    New(database),
		makeTx: NewMakeTx(database),
		time:   time,
		keep:   keepPerMonth,
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a month and drops the oldest snapshots of the same month beyond the
// configured amount.
func (s *Store) Save(ctx context.Context, month shiftcal.MonthlyShift) (Snapshot, error) {
	payload, err := json.Marshal(month)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot := Snapshot{
		Id:        uuid.NewString(),
		FetchedAt: s.time.Now(),
		Shift:     month,
	}

	tx, discard, commit, err := s.makeTx()
	if err != nil {
		return Snapshot{}, err
	}
	defer discard()

	err = tx.CreateMonthlySnapshot(ctx, MonthlySnapshotRow{
		ID:        snapshot.Id,
		Year:      int64(month.Year),
		Month:     int64(month.Month),
		FetchedAt: snapshot.FetchedAt.UnixMilli(),
		Payload:   string(payload),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	err = tx.PruneMonthlySnapshots(ctx, int64(month.Year), int64(month.Month), int64(s.keep))
	if err != nil {
		return Snapshot{}, fmt.Errorf("prune snapshots: %w", err)
	}
	err = commit()
	if err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// Latest returns the most recently saved snapshot of a month or ErrNotFound.
func (s *Store) Latest(ctx context.Context, year, month int) (Snapshot, error) {
	row, err := s.qry.GetLatestMonthlySnapshot(ctx, int64(year), int64(month))
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}

	var shift shiftcal.MonthlyShift
	err = json.Unmarshal([]byte(row.Payload), &shift)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", row.ID, err)
	}
	return Snapshot{
		Id:        row.ID,
		FetchedAt: time.UnixMilli(row.FetchedAt).In(s.time.Location()),
		Shift:     shift,
	}, nil
}

// List returns the newest snapshots across all months.
func (s *Store) List(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	rows, err := s.qry.ListMonthlySnapshots(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	infos := make([]SnapshotInfo, len(rows))
	for i, r := range rows {
		infos[i] = SnapshotInfo{
			Id:        r.ID,
			Year:      int(r.Year),
			Month:     int(r.Month),
			FetchedAt: time.UnixMilli(r.FetchedAt).In(s.time.Location()),
		}
	}
	return infos, nil
}
