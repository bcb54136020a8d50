package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"transitmon/internal/config"
)

var (
	ErrNotFound  = errors.New("entry not found")
	ErrDuplicate = errors.New("station already configured")
)

// Entry is a persisted station configuration.
type Entry struct {
	ID        string         `json:"id"`
	UniqueID  string         `json:"unique_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	Station   config.Station `json:"station"`
}

const entryColumns = `id, unique_id, title, provider, station_id, place, name,
	departures, scan_interval, transport_types, api_key, api_key_secondary, created_at`

// InsertEntry stores a new entry for st and returns it. A station that is
// already configured yields ErrDuplicate.
func (db *DB) InsertEntry(ctx context.Context, st config.Station) (Entry, error) {
	types, err := json.Marshal(st.TransportTypes)
	if err != nil {
		return Entry{}, fmt.Errorf("encode transport types: %w", err)
	}

	e := Entry{
		ID:        uuid.NewString(),
		UniqueID:  st.UniqueID(),
		Title:     st.Title(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Station:   st,
	}
	_, err = db.ExecContext(ctx, `INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UniqueID, e.Title, st.Provider, st.StationID, st.Place, st.Name,
		st.Departures, st.ScanInterval, string(types), st.APIKey, st.APIKeySecondary,
		e.CreatedAt.Unix(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return Entry{}, fmt.Errorf("%s: %w", e.UniqueID, ErrDuplicate)
		}
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	db.logger.Info("entry stored", "id", e.ID, "unique_id", e.UniqueID)
	return e, nil
}

// GetEntry returns the entry with the given id.
func (db *DB) GetEntry(ctx context.Context, id string) (Entry, error) {
	row := db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// ListEntries returns all entries, oldest first.
func (db *DB) ListEntries(ctx context.Context) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteEntry removes the entry with the given id.
func (db *DB) DeleteEntry(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// HasEntries reports whether any entry is stored.
func (db *DB) HasEntries(ctx context.Context) bool {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n)
	return err == nil && n > 0
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e       Entry
		st      config.Station
		types   string
		created int64
	)
	err := s.Scan(&e.ID, &e.UniqueID, &e.Title, &st.Provider, &st.StationID, &st.Place, &st.Name,
		&st.Departures, &st.ScanInterval, &types, &st.APIKey, &st.APIKeySecondary, &created)
	if err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(types), &st.TransportTypes); err != nil {
		return Entry{}, fmt.Errorf("decode transport types of %s: %w", e.ID, err)
	}
	e.Station = st
	e.CreatedAt = time.Unix(created, 0).UTC()
	return e, nil
}
