package store

import (
	"testing"
	"time"

	"github.com/iaeduca/provagen/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testExam(id, title string) model.Exam {
	return model.Exam{
		ID:      id,
		Title:   title,
		Subject: "Matemática",
		Grade:   "8º ano",
		Questions: []model.Question{
			{ID: id + "-q1", Type: model.TypeOpen, Question: "Explique.", CorrectAnswer: "Resposta.", Weight: 1},
		},
	}
}

func TestLoadEmpty(t *testing.T) {
	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Exams()) != 0 {
		t.Errorf("expected empty collection, got %d exams", len(s.Exams()))
	}
	if s.Settings().DefaultInstructions == "" {
		t.Error("expected default instructions after empty load")
	}
}

func TestLoadMalformedRecordsFailSoft(t *testing.T) {
	s := newTestStore(t)
	if err := s.setRecord(examsKey, "{not json"); err != nil {
		t.Fatalf("setRecord: %v", err)
	}
	if err := s.setRecord(settingsKey, "also not json"); err != nil {
		t.Fatalf("setRecord: %v", err)
	}

	if err := s.Load(); err != nil {
		t.Fatalf("Load should not fail on malformed records: %v", err)
	}
	if len(s.Exams()) != 0 {
		t.Errorf("expected empty collection, got %d exams", len(s.Exams()))
	}
	if s.Settings() != model.DefaultSettings() {
		t.Error("expected default settings")
	}
}

func TestExamPersistenceRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddExam(testExam("e1", "Prova 1")); err != nil {
		t.Fatalf("AddExam: %v", err)
	}
	if err := s.AddExam(testExam("e2", "Prova 2")); err != nil {
		t.Fatalf("AddExam: %v", err)
	}

	// New exams go to the front.
	exams := s.Exams()
	if len(exams) != 2 {
		t.Fatalf("expected 2 exams, got %d", len(exams))
	}
	if exams[0].ID != "e2" {
		t.Errorf("expected newest exam first, got %q", exams[0].ID)
	}

	// A reload from the same records sees the same collection.
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	exams = s.Exams()
	if len(exams) != 2 || exams[0].ID != "e2" || exams[1].ID != "e1" {
		t.Fatalf("unexpected collection after reload: %+v", exams)
	}
}

func TestUpdateExam(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddExam(testExam("e1", "Original")); err != nil {
		t.Fatalf("AddExam: %v", err)
	}

	updated := testExam("e1", "Renomeada")
	if err := s.UpdateExam(updated); err != nil {
		t.Fatalf("UpdateExam: %v", err)
	}
	got, ok := s.GetExam("e1")
	if !ok {
		t.Fatal("GetExam: not found")
	}
	if got.Title != "Renomeada" {
		t.Errorf("expected updated title, got %q", got.Title)
	}

	if err := s.UpdateExam(testExam("missing", "X")); err == nil {
		t.Error("expected error for unknown exam")
	}
}

func TestDeleteExam(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddExam(testExam("e1", "Prova 1")); err != nil {
		t.Fatalf("AddExam: %v", err)
	}
	if err := s.AddExam(testExam("e2", "Prova 2")); err != nil {
		t.Fatalf("AddExam: %v", err)
	}

	deleted, err := s.DeleteExam("e1")
	if err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion")
	}
	if _, ok := s.GetExam("e1"); ok {
		t.Error("e1 still present after delete")
	}
	if _, ok := s.GetExam("e2"); !ok {
		t.Error("e2 removed by unrelated delete")
	}

	// Unknown id is a no-op.
	deleted, err = s.DeleteExam("e1")
	if err != nil {
		t.Fatalf("DeleteExam twice: %v", err)
	}
	if deleted {
		t.Error("expected no-op for unknown exam")
	}
	if len(s.Exams()) != 1 {
		t.Errorf("expected 1 exam, got %d", len(s.Exams()))
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	settings := model.UserSettings{
		TeacherName:         "Maria Silva",
		SchoolName:          "Escola Central",
		DefaultInstructions: "Use caneta azul.",
	}
	if err := s.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	// Reload simulates a restart over the same database.
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Settings() != settings {
		t.Errorf("settings mismatch after reload: %+v", s.Settings())
	}
}

func TestSettingsSavedFlagExpires(t *testing.T) {
	s := newTestStore(t)

	current := time.Now()
	s.now = func() time.Time { return current }

	if s.SettingsSaved() {
		t.Error("flag armed before any save")
	}
	if err := s.SaveSettings(model.DefaultSettings()); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if !s.SettingsSaved() {
		t.Error("flag not armed right after save")
	}

	current = current.Add(savedFlagTTL - time.Millisecond)
	if !s.SettingsSaved() {
		t.Error("flag cleared before TTL")
	}
	current = current.Add(2 * time.Millisecond)
	if s.SettingsSaved() {
		t.Error("flag still armed after TTL")
	}
}
