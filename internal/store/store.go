// Package store persists user records in SQLite. Each logical update
// is a single transaction: a crash mid-write can lose the update but
// never leaves a half-written record visible to a later read.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meredith/compass/internal/answers"
	"github.com/meredith/compass/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Logger receives defensive-repair warnings for corrupt rows.
type Logger interface {
	Warnf(format string, args ...any)
}

// Store manages the SQLite database holding user records.
type Store struct {
	db     *sql.DB
	dbPath string
	log    Logger
}

// NewStore opens (creating if needed) the database at dbPath and
// initializes the schema. Pass ":memory:" for an ephemeral store.
func NewStore(dbPath string, log Logger) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout first so the remaining pragmas wait on locks.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath, log: log}, nil
}

// execWithRetry retries a statement with exponential backoff on
// "database is locked" errors during concurrent initialization.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the record for userID, or nil when none exists.
//
// Corrupt sections degrade rather than fail: a column that does not
// decode is replaced with its default shape and a warning is logged,
// so a damaged row still loads with everything salvageable intact.
func (s *Store) Load(userID string) (*models.Record, error) {
	var answersJSON, contractsJSON, ledgerJSON string
	var updatedAt time.Time
	err := s.db.QueryRow(
		`SELECT answers_json, contracts_json, ledger_json, updated_at FROM records WHERE user_id = ?`,
		userID,
	).Scan(&answersJSON, &contractsJSON, &ledgerJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load record %s: %w", userID, err)
	}

	rec := models.NewRecord(userID)
	rec.UpdatedAt = updatedAt

	if err := json.Unmarshal([]byte(answersJSON), &rec.Answers); err != nil {
		s.warnf("user %s: answers section corrupt, resetting: %v", userID, err)
		rec.Answers = make(map[string]answers.Set)
	}
	if err := json.Unmarshal([]byte(contractsJSON), &rec.Contracts); err != nil {
		s.warnf("user %s: contracts section corrupt, resetting: %v", userID, err)
		rec.Contracts = make(map[string]*models.Contract)
	}
	if err := json.Unmarshal([]byte(ledgerJSON), &rec.Ledger); err != nil {
		s.warnf("user %s: ledger section corrupt, resetting: %v", userID, err)
		rec.Ledger = models.JourneyLedger{}
	}

	rec.Repair(userID)
	return rec, nil
}

// Save writes the full record in one statement.
func (s *Store) Save(userID string, rec *models.Record) error {
	answersJSON, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	contractsJSON, err := json.Marshal(rec.Contracts)
	if err != nil {
		return fmt.Errorf("encode contracts: %w", err)
	}
	ledgerJSON, err := json.Marshal(rec.Ledger)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	_, err = s.db.Exec(upsertSQL, userID, string(answersJSON), string(contractsJSON), string(ledgerJSON), time.Now())
	if err != nil {
		return fmt.Errorf("save record %s: %w", userID, err)
	}
	return nil
}

const upsertSQL = `
INSERT INTO records (user_id, answers_json, contracts_json, ledger_json, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    answers_json = excluded.answers_json,
    contracts_json = excluded.contracts_json,
    ledger_json = excluded.ledger_json,
    updated_at = excluded.updated_at`

// SaveAnswers replaces one module namespace of the user's answers in
// a read-modify-write transaction, leaving contracts and ledger
// untouched.
func (s *Store) SaveAnswers(userID, stateKey string, set answers.Set) error {
	return s.withRecord(userID, func(rec *models.Record) {
		rec.Answers[stateKey] = set.Clone()
	})
}

// ClearAnswers removes one module namespace from the user's answers.
func (s *Store) ClearAnswers(userID, stateKey string) error {
	return s.withRecord(userID, func(rec *models.Record) {
		delete(rec.Answers, stateKey)
	})
}

// SaveContracts replaces the contract set and ledger snapshot in a
// read-modify-write transaction, leaving answers untouched.
func (s *Store) SaveContracts(userID string, contracts map[string]*models.Contract, ledger models.JourneyLedger) error {
	return s.withRecord(userID, func(rec *models.Record) {
		rec.Contracts = make(map[string]*models.Contract, len(contracts))
		for id, c := range contracts {
			rec.Contracts[id] = c.Clone()
		}
		rec.Ledger = ledger.Clone()
	})
}

// withRecord runs a scoped read-modify-write: load inside a
// transaction, mutate, write back. No interleaving is possible within
// one logical update.
func (s *Store) withRecord(userID string, mutate func(rec *models.Record)) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin update for %s: %w", userID, err)
	}
	defer tx.Rollback()

	rec := models.NewRecord(userID)
	var answersJSON, contractsJSON, ledgerJSON string
	var updatedAt time.Time
	err = tx.QueryRow(
		`SELECT answers_json, contracts_json, ledger_json, updated_at FROM records WHERE user_id = ?`,
		userID,
	).Scan(&answersJSON, &contractsJSON, &ledgerJSON, &updatedAt)
	switch {
	case err == sql.ErrNoRows:
		// First write for this user.
	case err != nil:
		return fmt.Errorf("read record %s: %w", userID, err)
	default:
		if err := json.Unmarshal([]byte(answersJSON), &rec.Answers); err != nil {
			s.warnf("user %s: answers section corrupt, resetting: %v", userID, err)
			rec.Answers = make(map[string]answers.Set)
		}
		if err := json.Unmarshal([]byte(contractsJSON), &rec.Contracts); err != nil {
			s.warnf("user %s: contracts section corrupt, resetting: %v", userID, err)
			rec.Contracts = make(map[string]*models.Contract)
		}
		if err := json.Unmarshal([]byte(ledgerJSON), &rec.Ledger); err != nil {
			s.warnf("user %s: ledger section corrupt, resetting: %v", userID, err)
			rec.Ledger = models.JourneyLedger{}
		}
		rec.Repair(userID)
	}

	mutate(rec)

	newAnswers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	newContracts, err := json.Marshal(rec.Contracts)
	if err != nil {
		return fmt.Errorf("encode contracts: %w", err)
	}
	newLedger, err := json.Marshal(rec.Ledger)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if _, err := tx.Exec(upsertSQL, userID, string(newAnswers), string(newContracts), string(newLedger), time.Now()); err != nil {
		return fmt.Errorf("write record %s: %w", userID, err)
	}
	return tx.Commit()
}

// AnswerSaver binds a user id to the store so a module runner can
// autosave without knowing which user it serves.
type AnswerSaver struct {
	store  *Store
	userID string
}

// AnswerSaver returns an engine-facing saver for one user.
func (s *Store) AnswerSaver(userID string) *AnswerSaver {
	return &AnswerSaver{store: s, userID: userID}
}

// SaveAnswers persists one module namespace for the bound user.
func (a *AnswerSaver) SaveAnswers(stateKey string, set answers.Set) error {
	return a.store.SaveAnswers(a.userID, stateKey, set)
}

func (s *Store) warnf(format string, args ...any) {
	if s.log != nil {
		s.log.Warnf(format, args...)
	}
}
