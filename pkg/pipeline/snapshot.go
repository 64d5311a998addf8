package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const SnapshotDirectory = ".forge-snapshots"

// SnapshotPath is where the snapshot of one cycle of v lives under root.
func SnapshotPath(root string, v Variant, cycle int) string {
	return filepath.Join(root, v.Challenge, v.Name, fmt.Sprintf("cycle_%d", cycle))
}

// WriteAttemptSnapshot stores the reply and failure of one failed cycle under
// root so a run can be inspected afterwards. root must lie outside the
// variant directory, which is handed out as the finished challenge.
func WriteAttemptSnapshot(root string, v Variant, cycle int, state *RetryState) error {
	snapDir := SnapshotPath(root, v, cycle)
	if err := os.MkdirAll(snapDir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	meta := map[string]interface{}{
		"cycle":          cycle,
		"attempts_used":  state.AttemptsUsed,
		"max_retries":    state.MaxRetries,
		"status":         state.LastOutcome.Status,
		"health_url":     state.LastOutcome.HealthURL,
		"failure":        state.LastFailure,
		"verify_seconds": state.LastOutcome.Duration.Seconds(),
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(snapDir, "metadata.json"), metaJSON, 0644); err != nil {
		return fmt.Errorf("writing metadata.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(snapDir, "reply.md"), []byte(state.LastReply), 0644); err != nil {
		return fmt.Errorf("writing reply snapshot: %w", err)
	}
	return nil
}
