package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/fieldmin/internal/config"
	"github.com/cwbudde/fieldmin/internal/store"
)

// testCommand returns a command whose output is captured in the buffer.
func testCommand(input string) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(input))
	return cmd, &out
}

// withDataDir points the commands at dir for the duration of the test.
func withDataDir(t *testing.T, dir string) {
	t.Helper()
	original := dataDir
	dataDir = dir
	t.Cleanup(func() { dataDir = original })
}

func saveTestCheckpoint(t *testing.T, s *store.FSStore, runID string, age time.Duration) {
	t.Helper()
	point := store.PointSnapshot{Kind: store.KindVector, Sites: 2, Components: 1, Values: []float64{1, 2}}
	cp := store.NewCheckpoint(runID, point, 0.5, 1.0, 10, false, config.Default())
	cp.Timestamp = time.Now().Add(-age)
	if err := s.SaveCheckpoint(runID, cp); err != nil {
		t.Fatalf("Failed to save checkpoint: %v", err)
	}
}

func TestSelectCheckpointsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)}, // 10 days old
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},  // 5 days old
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},  // 1 day old
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)}, // 30 days old
	}

	toDelete := selectCheckpointsForDeletion(infos, 0, 7, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 checkpoints to delete, got %d", len(toDelete))
	}
	if toDelete[0].RunID != "run1" || toDelete[1].RunID != "run4" {
		t.Errorf("Expected run1 and run4 to be selected for deletion, got %s and %s", toDelete[0].RunID, toDelete[1].RunID)
	}
}

func TestSelectCheckpointsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}

	// Keep only the 2 most recent
	toDelete := selectCheckpointsForDeletion(infos, 2, 0, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 checkpoints to delete, got %d", len(toDelete))
	}
	// oldest first
	if toDelete[0].RunID != "run4" || toDelete[1].RunID != "run1" {
		t.Errorf("Expected run4 and run1 to be selected for deletion, got %s and %s", toDelete[0].RunID, toDelete[1].RunID)
	}
}

func TestSelectCheckpointsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
		{RunID: "run5", Timestamp: now.AddDate(0, 0, -2)},
	}

	// Age selects run1 and run4; keeping 2 also selects run2, without
	// listing run1 and run4 twice.
	toDelete := selectCheckpointsForDeletion(infos, 2, 7, now)

	if len(toDelete) != 3 {
		t.Fatalf("Expected 3 checkpoints to delete, got %d", len(toDelete))
	}
	seen := make(map[string]bool)
	for _, info := range toDelete {
		if seen[info.RunID] {
			t.Errorf("Checkpoint %s selected twice", info.RunID)
		}
		seen[info.RunID] = true
	}
	for _, id := range []string{"run1", "run2", "run4"} {
		if !seen[id] {
			t.Errorf("Expected %s to be selected for deletion", id)
		}
	}
}

func TestSelectCheckpointsForDeletion_NothingToDo(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -1)},
	}

	if toDelete := selectCheckpointsForDeletion(infos, 5, 7, now); len(toDelete) != 0 {
		t.Errorf("Expected nothing to delete, got %d", len(toDelete))
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("Hello, World!")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}

	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(abc) = %s", got)
	}
	if got := shortID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("shortID truncated to %s", got)
	}
}

func TestCheckpointsListCommand_NoCheckpoints(t *testing.T) {
	withDataDir(t, t.TempDir())

	cmd, out := testCommand("")
	if err := runListCheckpoints(cmd, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "No checkpoints found.") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}

func TestCheckpointsListCommand_WithCheckpoints(t *testing.T) {
	tmpDir := t.TempDir()
	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestCheckpoint(t, checkpointStore, "test-run-id", 0)

	withDataDir(t, tmpDir)

	cmd, out := testCommand("")
	if err := runListCheckpoints(cmd, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "test-run-id") {
		t.Errorf("Expected run ID in output, got %q", out.String())
	}
	if !strings.Contains(out.String(), "Total checkpoints: 1") {
		t.Errorf("Expected total in output, got %q", out.String())
	}
}

func TestCheckpointsCleanCommand_NoFlags(t *testing.T) {
	withDataDir(t, t.TempDir())

	keepLast = 0
	olderThanDays = 0

	cmd, _ := testCommand("")
	if err := runCleanCheckpoints(cmd, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestCheckpointsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()
	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestCheckpoint(t, checkpointStore, "old-run", 30*24*time.Hour)
	saveTestCheckpoint(t, checkpointStore, "new-run", time.Hour)

	withDataDir(t, tmpDir)

	keepLast = 0
	olderThanDays = 7
	forceClean = true
	defer func() { olderThanDays, forceClean = 0, false }()

	cmd, _ := testCommand("")
	if err := runCleanCheckpoints(cmd, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := checkpointStore.LoadCheckpoint("old-run"); err == nil {
		t.Error("Expected old checkpoint to be deleted")
	}
	if _, err := checkpointStore.LoadCheckpoint("new-run"); err != nil {
		t.Errorf("Expected new checkpoint to survive, got %v", err)
	}
}

func TestCheckpointsCleanCommand_Aborted(t *testing.T) {
	tmpDir := t.TempDir()
	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestCheckpoint(t, checkpointStore, "old-run", 30*24*time.Hour)

	withDataDir(t, tmpDir)

	keepLast = 0
	olderThanDays = 7
	forceClean = false
	defer func() { olderThanDays = 0 }()

	cmd, out := testCommand("n\n")
	if err := runCleanCheckpoints(cmd, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "Aborted.") {
		t.Errorf("Expected abort message, got %q", out.String())
	}
	if _, err := checkpointStore.LoadCheckpoint("old-run"); err != nil {
		t.Errorf("Expected checkpoint to survive, got %v", err)
	}
}
