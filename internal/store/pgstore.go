package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kapu/glicko-ladder-go/pkg/ladderdto"
)

// PostgresStore persists players and matches as rows. A Save deletes and
// re-inserts everything inside one transaction, which keeps the whole-state
// overwrite semantics of the other backends.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS ladder_meta (
			key   TEXT PRIMARY KEY,
			value BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS ladder_players (
			name       TEXT PRIMARY KEY,
			rating     DOUBLE PRECISION NOT NULL,
			deviation  DOUBLE PRECISION NOT NULL,
			volatility DOUBLE PRECISION NOT NULL,
			wins       INTEGER NOT NULL,
			losses     INTEGER NOT NULL,
			draws      INTEGER NOT NULL,
			pending    JSONB NOT NULL,
			history    JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS ladder_matches (
			id        UUID PRIMARY KEY,
			player_a  TEXT NOT NULL,
			player_b  TEXT NOT NULL,
			outcome   DOUBLE PRECISION NOT NULL,
			seq       INTEGER NOT NULL,
			played_at TIMESTAMPTZ NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, st *ladderdto.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"ladder_players", "ladder_matches"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	const insertPlayer = `
		INSERT INTO ladder_players
			(name, rating, deviation, volatility, wins, losses, draws, pending, history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, p := range st.Players {
		pending, err := json.Marshal(p.Pending)
		if err != nil {
			return fmt.Errorf("marshal pending for %s: %w", p.Name, err)
		}
		history, err := json.Marshal(p.History)
		if err != nil {
			return fmt.Errorf("marshal history for %s: %w", p.Name, err)
		}
		if _, err := tx.ExecContext(ctx, insertPlayer,
			p.Name, p.Rating, p.Deviation, p.Volatility,
			p.Wins, p.Losses, p.Draws, pending, history,
		); err != nil {
			return fmt.Errorf("insert player %s: %w", p.Name, err)
		}
	}

	const insertMatch = `
		INSERT INTO ladder_matches (id, player_a, player_b, outcome, seq, played_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, m := range st.Matches {
		if _, err := tx.ExecContext(ctx, insertMatch,
			m.ID, m.PlayerA, m.PlayerB, m.Outcome, m.Seq, m.PlayedAt,
		); err != nil {
			return fmt.Errorf("insert match %s: %w", m.ID, err)
		}
	}

	const upsertCycle = `
		INSERT INTO ladder_meta (key, value) VALUES ('cycle', $1)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := tx.ExecContext(ctx, upsertCycle, st.Cycle); err != nil {
		return fmt.Errorf("upsert cycle: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*ladderdto.State, error) {
	st := &ladderdto.State{}

	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM ladder_meta WHERE key = 'cycle'`).Scan(&st.Cycle)
	if errors.Is(err, sql.ErrNoRows) {
		// Never saved.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select cycle: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, rating, deviation, volatility, wins, losses, draws, pending, history
		FROM ladder_players ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p       ladderdto.PlayerState
			pending []byte
			history []byte
		)
		if err := rows.Scan(&p.Name, &p.Rating, &p.Deviation, &p.Volatility,
			&p.Wins, &p.Losses, &p.Draws, &pending, &history); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		if err := json.Unmarshal(pending, &p.Pending); err != nil {
			return nil, fmt.Errorf("unmarshal pending for %s: %w", p.Name, err)
		}
		if err := json.Unmarshal(history, &p.History); err != nil {
			return nil, fmt.Errorf("unmarshal history for %s: %w", p.Name, err)
		}
		st.Players = append(st.Players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}

	mrows, err := s.db.QueryContext(ctx, `
		SELECT id, player_a, player_b, outcome, seq, played_at
		FROM ladder_matches ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var m ladderdto.MatchRecord
		if err := mrows.Scan(&m.ID, &m.PlayerA, &m.PlayerB, &m.Outcome, &m.Seq, &m.PlayedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		st.Matches = append(st.Matches, m)
	}
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}

	return st, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
