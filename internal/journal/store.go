package journal

// #region imports
import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #endregion

// #region errors

// ErrNotFound reports a lookup for a round that was never journaled.
var ErrNotFound = errors.New("journal: round not found")

// #endregion

// #region schema

const roundsSchema = `
CREATE TABLE IF NOT EXISTS rounds (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id      TEXT NOT NULL,
    round           INTEGER NOT NULL,
    input_text      TEXT NOT NULL,
    response_text   TEXT NOT NULL,
    corrected       INTEGER NOT NULL DEFAULT 0,
    is_violation    INTEGER NOT NULL DEFAULT 0,
    violation_type  TEXT NOT NULL DEFAULT '',
    reward_total    REAL NOT NULL,
    reward_immediate REAL NOT NULL,
    reward_delayed  REAL NOT NULL,
    satisfaction    REAL NOT NULL DEFAULT 0,
    theta           REAL NOT NULL,
    tau             REAL NOT NULL,
    r               REAL NOT NULL,
    stage           TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    UNIQUE(session_id, round)
);
`

const roundsIndex = `
CREATE INDEX IF NOT EXISTS idx_rounds_session
ON rounds(session_id, round);
`

// #endregion

// #region record

// Record is one journaled round. The journal is append-only: rows are
// never updated except for late user feedback on satisfaction.
type Record struct {
	SessionID       string
	Round           int
	InputText       string
	ResponseText    string
	Corrected       bool
	IsViolation     bool
	ViolationType   string
	RewardTotal     float64
	RewardImmediate float64
	RewardDelayed   float64
	Satisfaction    float64
	Theta           float64
	Tau             float64
	R               float64
	Stage           string
	CreatedAt       time.Time
}

// #endregion

// #region store

// Store persists the experiment log in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path and runs
// migrations. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(roundsSchema); err != nil {
		return nil, fmt.Errorf("migrate rounds: %w", err)
	}
	if _, err := db.Exec(roundsIndex); err != nil {
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// #endregion

// #region append

// Append writes one round row.
func (s *Store) Append(rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO rounds
		(session_id, round, input_text, response_text, corrected,
		 is_violation, violation_type, reward_total, reward_immediate,
		 reward_delayed, satisfaction, theta, tau, r, stage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Round, rec.InputText, rec.ResponseText,
		boolInt(rec.Corrected), boolInt(rec.IsViolation), rec.ViolationType,
		rec.RewardTotal, rec.RewardImmediate, rec.RewardDelayed,
		rec.Satisfaction, rec.Theta, rec.Tau, rec.R, rec.Stage,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append round %d: %w", rec.Round, err)
	}
	return nil
}

// #endregion

// #region get

// Get retrieves one round, or ErrNotFound.
func (s *Store) Get(sessionID string, round int) (Record, error) {
	row := s.db.QueryRow(selectCols+` WHERE session_id = ? AND round = ?`, sessionID, round)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// #endregion

// #region queries

const selectCols = `
	SELECT session_id, round, input_text, response_text, corrected,
	       is_violation, violation_type, reward_total, reward_immediate,
	       reward_delayed, satisfaction, theta, tau, r, stage, created_at
	FROM rounds`

// Range returns rounds in [startRound, endRound] for the session, in
// round order.
func (s *Store) Range(sessionID string, startRound, endRound int) ([]Record, error) {
	rows, err := s.db.Query(selectCols+`
		WHERE session_id = ? AND round >= ? AND round <= ?
		ORDER BY round`, sessionID, startRound, endRound)
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}
	return collect(rows)
}

// Violations returns only violation-flagged rounds for the session.
func (s *Store) Violations(sessionID string) ([]Record, error) {
	rows, err := s.db.Query(selectCols+`
		WHERE session_id = ? AND is_violation = 1
		ORDER BY round`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("violations query: %w", err)
	}
	return collect(rows)
}

// Recent returns the last n rounds for the session, in round order.
func (s *Store) Recent(sessionID string, n int) ([]Record, error) {
	rows, err := s.db.Query(selectCols+`
		WHERE session_id = ?
		ORDER BY round DESC LIMIT ?`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("recent query: %w", err)
	}
	recs, err := collect(rows)
	if err != nil {
		return nil, err
	}
	// Flip back to ascending round order.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// #endregion

// #region feedback

// RecordFeedback attaches late user satisfaction to an existing round.
// Unknown rounds are a validation error, reported as ErrNotFound rather
// than silently ignored.
func (s *Store) RecordFeedback(sessionID string, round int, satisfaction float64) error {
	res, err := s.db.Exec(`
		UPDATE rounds SET satisfaction = ?
		WHERE session_id = ? AND round = ?`,
		satisfaction, sessionID, round)
	if err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// #endregion

// #region stats

// SessionStats aggregates one session's journal.
type SessionStats struct {
	Rounds        int
	Violations    int
	Corrections   int
	ViolationRate float64
	AvgReward     float64
	FinalStage    string
}

// Stats computes aggregate figures for the session.
func (s *Store) Stats(sessionID string) (SessionStats, error) {
	var st SessionStats
	var avgReward sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(is_violation), 0),
		       COALESCE(SUM(corrected), 0),
		       AVG(reward_total)
		FROM rounds WHERE session_id = ?`, sessionID).
		Scan(&st.Rounds, &st.Violations, &st.Corrections, &avgReward)
	if err != nil {
		return SessionStats{}, fmt.Errorf("stats query: %w", err)
	}
	if avgReward.Valid {
		st.AvgReward = avgReward.Float64
	}
	if st.Rounds > 0 {
		st.ViolationRate = float64(st.Violations) / float64(st.Rounds)
		err = s.db.QueryRow(`
			SELECT stage FROM rounds
			WHERE session_id = ? ORDER BY round DESC LIMIT 1`, sessionID).
			Scan(&st.FinalStage)
		if err != nil {
			return SessionStats{}, fmt.Errorf("stats stage: %w", err)
		}
	}
	return st, nil
}

// #endregion

// #region helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var corrected, isViolation int
	var createdStr string
	err := row.Scan(
		&rec.SessionID, &rec.Round, &rec.InputText, &rec.ResponseText,
		&corrected, &isViolation, &rec.ViolationType,
		&rec.RewardTotal, &rec.RewardImmediate, &rec.RewardDelayed,
		&rec.Satisfaction, &rec.Theta, &rec.Tau, &rec.R, &rec.Stage,
		&createdStr,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Corrected = corrected != 0
	rec.IsViolation = isViolation != 0
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

func collect(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion
