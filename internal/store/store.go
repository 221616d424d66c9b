package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iaeduca/provagen/internal/model"

	_ "modernc.org/sqlite"
)

// Persistence keys. The exam collection and the settings object are each one
// JSON record, overwritten wholesale on every mutation.
const (
	examsKey    = "iaeduca_exams"
	settingsKey = "iaeduca_settings"
)

// savedFlagTTL is how long the settings "saved" acknowledgment stays visible.
const savedFlagTTL = 3 * time.Second

// Store owns the exam collection and the user settings. All mutations go
// through it and are persisted synchronously, whole-record at a time.
type Store struct {
	db *sql.DB

	mu         sync.Mutex
	exams      []model.Exam
	settings   model.UserSettings
	savedUntil time.Time

	now func() time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{
		db:       db,
		settings: model.DefaultSettings(),
		now:      time.Now,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads the persisted exam collection and settings. Absent or malformed
// records fail soft: the collection starts empty and settings fall back to
// the built-in defaults. Corrupted local state must never block startup.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.getRecord(examsKey)
	if err != nil {
		return fmt.Errorf("read exams record: %w", err)
	}
	s.exams = nil
	if raw != "" {
		var exams []model.Exam
		if err := json.Unmarshal([]byte(raw), &exams); err != nil {
			slog.Warn("malformed exams record, starting empty", "error", err)
		} else {
			s.exams = exams
		}
	}

	raw, err = s.getRecord(settingsKey)
	if err != nil {
		return fmt.Errorf("read settings record: %w", err)
	}
	s.settings = model.DefaultSettings()
	if raw != "" {
		var settings model.UserSettings
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			slog.Warn("malformed settings record, using defaults", "error", err)
		} else {
			s.settings = settings
		}
	}

	slog.Info("store loaded", "exams", len(s.exams))
	return nil
}

// Exams returns a copy of the exam collection, newest first.
func (s *Store) Exams() []model.Exam {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Exam, len(s.exams))
	copy(out, s.exams)
	return out
}

// GetExam returns the exam with the given identifier.
func (s *Store) GetExam(id string) (model.Exam, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.exams {
		if e.ID == id {
			return e, true
		}
	}
	return model.Exam{}, false
}

// ReplaceAll overwrites the full exam collection and persists it.
func (s *Store) ReplaceAll(exams []model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceAllLocked(exams)
}

// AddExam prepends a new exam to the collection and persists it.
func (s *Store) AddExam(exam model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceAllLocked(append([]model.Exam{exam}, s.exams...))
}

// UpdateExam replaces the stored exam with the same identifier and persists
// the collection. Unknown identifiers are an error.
func (s *Store) UpdateExam(exam model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.exams {
		if e.ID == exam.ID {
			updated := make([]model.Exam, len(s.exams))
			copy(updated, s.exams)
			updated[i] = exam
			return s.replaceAllLocked(updated)
		}
	}
	return fmt.Errorf("exam %s not found", exam.ID)
}

// DeleteExam removes the exam with the given identifier and persists the
// collection. Returns false (and does nothing) when no exam matches.
// Confirmation is the caller's responsibility.
func (s *Store) DeleteExam(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.exams {
		if e.ID == id {
			updated := make([]model.Exam, 0, len(s.exams)-1)
			updated = append(updated, s.exams[:i]...)
			updated = append(updated, s.exams[i+1:]...)
			return true, s.replaceAllLocked(updated)
		}
	}
	return false, nil
}

// replaceAllLocked persists the given collection and adopts it on success.
// Caller holds s.mu.
func (s *Store) replaceAllLocked(exams []model.Exam) error {
	data, err := json.Marshal(exams)
	if err != nil {
		return fmt.Errorf("marshal exams: %w", err)
	}
	if err := s.setRecord(examsKey, string(data)); err != nil {
		return fmt.Errorf("persist exams: %w", err)
	}
	s.exams = exams
	return nil
}

// Settings returns the current user settings.
func (s *Store) Settings() model.UserSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SaveSettings overwrites the settings and persists them immediately. It arms
// the transient saved acknowledgment flag for UI feedback.
func (s *Store) SaveSettings(settings model.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.setRecord(settingsKey, string(data)); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	s.settings = settings
	s.savedUntil = s.now().Add(savedFlagTTL)
	return nil
}

// SettingsSaved reports whether the saved acknowledgment flag is still armed.
// UI feedback only, not a correctness signal.
func (s *Store) SettingsSaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Before(s.savedUntil)
}

func (s *Store) getRecord(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *Store) setRecord(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO records (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}
