package store

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/fieldmin/internal/config"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	return store, tempDir
}

// createTestCheckpoint creates a checkpoint with test data.
func createTestCheckpoint(runID string) *Checkpoint {
	cfg := config.Default()
	cfg.Dim = 3
	return &Checkpoint{
		RunID: runID,
		Point: PointSnapshot{
			Kind:       KindVector,
			Sites:      1,
			Components: 3,
			Values:     []float64{0.5, -0.25, 1e-3},
		},
		Residual:   4.2e-7,
		Value:      1.5e-9,
		Iterations: 77,
		Converged:  true,
		Timestamp:  time.Now(),
		Config:     cfg,
	}
}

func TestNewFSStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.BaseDir() != dir {
		t.Errorf("Expected base dir %s, got %s", dir, store.BaseDir())
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveCheckpoint(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := "test-run-123"
	if err := store.SaveCheckpoint(runID, createTestCheckpoint(runID)); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "runs", runID, "checkpoint.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Checkpoint file was not created at %s", expectedPath)
	}
	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Temp file should not exist after save")
	}
}

func TestSaveCheckpoint_Diverged(t *testing.T) {
	store, _ := setupTestStore(t)

	checkpoint := createTestCheckpoint("diverged-run")
	checkpoint.Residual = math.NaN()
	checkpoint.Value = math.Inf(1)
	checkpoint.Converged = false
	checkpoint.Point.Values = []float64{math.NaN(), math.NaN(), math.Inf(-1)}

	if err := store.SaveCheckpoint("diverged-run", checkpoint); err != nil {
		t.Fatalf("Failed to save diverged checkpoint: %v", err)
	}

	loaded, err := store.LoadCheckpoint("diverged-run")
	if err != nil {
		t.Fatalf("Failed to load diverged checkpoint: %v", err)
	}
	if !math.IsNaN(loaded.Residual) || !math.IsInf(loaded.Value, 1) {
		t.Errorf("Expected NaN residual and +Inf value, got %v and %v", loaded.Residual, loaded.Value)
	}

	infos, err := store.ListCheckpoints()
	if err != nil {
		t.Fatalf("Failed to list checkpoints: %v", err)
	}
	if len(infos) != 1 || infos[0].RunID != "diverged-run" {
		t.Errorf("Expected the diverged run to be listed, got %+v", infos)
	}
}

func TestSaveCheckpoint_InvalidArguments(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveCheckpoint("", createTestCheckpoint("any-id")); err == nil {
		t.Error("Expected error for empty runID")
	}
	if err := store.SaveCheckpoint("test-run", nil); err == nil {
		t.Error("Expected error for nil checkpoint")
	}
}

func TestSaveCheckpoint_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "test-run-overwrite"
	first := createTestCheckpoint(runID)
	first.Residual = 0.5
	second := createTestCheckpoint(runID)
	second.Residual = 0.1

	if err := store.SaveCheckpoint(runID, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.SaveCheckpoint(runID, second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadCheckpoint(runID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Residual != 0.1 {
		t.Errorf("Expected Residual=0.1, got %g", loaded.Residual)
	}
}

func TestLoadCheckpoint(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "test-run-load"
	original := createTestCheckpoint(runID)
	if err := store.SaveCheckpoint(runID, original); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	loaded, err := store.LoadCheckpoint(runID)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}

	if loaded.RunID != original.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", original.RunID, loaded.RunID)
	}
	if loaded.Iterations != original.Iterations {
		t.Errorf("Iterations mismatch: expected %d, got %d", original.Iterations, loaded.Iterations)
	}
	if loaded.Converged != original.Converged {
		t.Errorf("Converged mismatch: expected %v, got %v", original.Converged, loaded.Converged)
	}
	for i, v := range original.Point.Values {
		if loaded.Point.Values[i] != v {
			t.Errorf("Value %d mismatch: expected %g, got %g", i, v, loaded.Point.Values[i])
		}
	}
	if loaded.Config != original.Config {
		t.Errorf("Config mismatch: expected %+v, got %+v", original.Config, loaded.Config)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("Loaded checkpoint should validate: %v", err)
	}
}

func TestLoadCheckpoint_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadCheckpoint("nonexistent-run")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError, got %T: %v", err, err)
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) && notFound.RunID != "nonexistent-run" {
		t.Errorf("Expected run ID in error, got %q", notFound.RunID)
	}
}

func TestLoadCheckpoint_Corrupt(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "corrupt-run"
	if err := os.MkdirAll(store.RunDir(runID), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store.RunDir(runID), "checkpoint.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.LoadCheckpoint(runID); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Expected decode error, got %v", err)
	}
}

func TestListCheckpoints_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty list, got %d checkpoints", len(infos))
	}
}

func TestListCheckpoints_SkipsInvalidEntries(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runs := []string{"run-1", "run-2"}
	for _, runID := range runs {
		if err := store.SaveCheckpoint(runID, createTestCheckpoint(runID)); err != nil {
			t.Fatalf("Failed to save checkpoint %s: %v", runID, err)
		}
	}

	// a run that only has a trace
	writer, err := NewTraceWriter(tempDir, "trace-only", false)
	if err != nil {
		t.Fatal(err)
	}
	writer.Close()

	// a stray file
	if err := os.WriteFile(filepath.Join(tempDir, "runs", "dummy.txt"), []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	// an unreadable checkpoint
	if err := os.MkdirAll(store.RunDir("broken"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store.RunDir("broken"), "checkpoint.json"), []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}

	infos, err := store.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(infos) != len(runs) {
		t.Fatalf("Expected %d checkpoints, got %d", len(runs), len(infos))
	}

	found := make(map[string]bool)
	for _, info := range infos {
		found[info.RunID] = true
		if info.Problem != "quadratic" {
			t.Errorf("Expected problem quadratic, got %s", info.Problem)
		}
	}
	for _, runID := range runs {
		if !found[runID] {
			t.Errorf("Run %s not found in list", runID)
		}
	}
}

func TestDeleteCheckpoint(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := "test-run-delete"
	if err := store.SaveCheckpoint(runID, createTestCheckpoint(runID)); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}
	writer, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatal(err)
	}
	writer.Write(TraceEntry{Iteration: 0, Residual: 1, Timestamp: time.Now()})
	writer.Close()

	if err := store.DeleteCheckpoint(runID); err != nil {
		t.Fatalf("DeleteCheckpoint failed: %v", err)
	}

	if _, err := os.Stat(store.RunDir(runID)); !os.IsNotExist(err) {
		t.Error("Run directory still exists after delete")
	}
	if _, err := NewTraceReader(tempDir, runID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected trace to be deleted, got %v", err)
	}

	if err := store.DeleteCheckpoint(runID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError on second delete, got %v", err)
	}
	if err := store.DeleteCheckpoint(""); err == nil {
		t.Error("Expected error for empty runID")
	}
}
