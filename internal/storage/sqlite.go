package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the interaction log and memory
// snapshots.
type Store struct {
	db *sql.DB

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "aide.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// newID returns a ULID for t. IDs sort by time, and IDs minted within the
// same millisecond keep their creation order.
func (s *Store) newID(t time.Time) string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Interactions ---

// SaveInteraction stores i and returns its ID. Empty ID and CreatedAt are
// filled in.
func (s *Store) SaveInteraction(i Interaction) (string, error) {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now()
	}
	if i.ID == "" {
		i.ID = s.newID(i.CreatedAt)
	}
	if i.IntentType == "" {
		i.IntentType = "general"
	}
	_, err := s.db.Exec(`
		INSERT INTO interactions (id, session_id, created_at, user_input, intent_type, confidence, tool, response, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.SessionID, i.CreatedAt.UTC().Format(time.RFC3339), i.UserInput, i.IntentType,
		i.Confidence, i.Tool, i.Response, i.DurationMs,
	)
	if err != nil {
		return "", fmt.Errorf("saving interaction: %w", err)
	}
	return i.ID, nil
}

const interactionColumns = `id, session_id, created_at, user_input, intent_type, confidence, tool, response, duration_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanInteraction(row scanner) (Interaction, error) {
	var i Interaction
	var createdAt string
	if err := row.Scan(&i.ID, &i.SessionID, &createdAt, &i.UserInput, &i.IntentType, &i.Confidence, &i.Tool, &i.Response, &i.DurationMs); err != nil {
		return Interaction{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Interaction{}, fmt.Errorf("parsing created_at: %w", err)
	}
	i.CreatedAt = t
	return i, nil
}

func (s *Store) GetInteraction(id string) (Interaction, error) {
	i, err := scanInteraction(s.db.QueryRow(`SELECT `+interactionColumns+` FROM interactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Interaction{}, ErrNotFound
	}
	return i, err
}

// GetRecentInteractions returns up to limit interactions, newest first. An
// empty sessionID spans all sessions.
func (s *Store) GetRecentInteractions(sessionID string, limit int) ([]Interaction, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if sessionID == "" {
		rows, err = s.db.Query(`SELECT `+interactionColumns+` FROM interactions ORDER BY id DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(`SELECT `+interactionColumns+` FROM interactions WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Interaction
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, i)
	}
	return results, rows.Err()
}

// CountInteractions returns how many interactions a session has logged.
func (s *Store) CountInteractions(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM interactions WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// --- Memory snapshots ---

// SaveSnapshot stores payload as the newest snapshot for sessionID.
func (s *Store) SaveSnapshot(sessionID string, payload []byte) (string, error) {
	now := time.Now()
	id := s.newID(now)
	_, err := s.db.Exec(`
		INSERT INTO memory_snapshots (id, session_id, created_at, payload) VALUES (?, ?, ?, ?)`,
		id, sessionID, now.UTC().Format(time.RFC3339), string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}
	return id, nil
}

// LatestSnapshot returns the most recent snapshot for sessionID.
func (s *Store) LatestSnapshot(sessionID string) (MemorySnapshot, error) {
	var snap MemorySnapshot
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, session_id, created_at, payload FROM memory_snapshots
		WHERE session_id = ? ORDER BY id DESC LIMIT 1`, sessionID,
	).Scan(&snap.ID, &snap.SessionID, &createdAt, &snap.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return MemorySnapshot{}, ErrNotFound
	}
	if err != nil {
		return MemorySnapshot{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return MemorySnapshot{}, fmt.Errorf("parsing created_at: %w", err)
	}
	snap.CreatedAt = t
	return snap, nil
}

// DeleteSession removes every interaction and snapshot for sessionID.
func (s *Store) DeleteSession(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM interactions WHERE session_id = ?`, sessionID); err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting interactions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM memory_snapshots WHERE session_id = ?`, sessionID); err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting snapshots: %w", err)
	}
	return tx.Commit()
}
