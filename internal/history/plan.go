package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauern/permisync/internal/plan"
)

const lastPlanFile = "last_plan.json"

// StoredPlan is the most recently executed plan plus its per-item
// outcomes, kept so a later run can retry only the failed items.
type StoredPlan struct {
	Plan    *plan.ExecutionPlan        `json:"plan"`
	Status  map[string]plan.ItemStatus `json:"status,omitempty"`
	SavedAt time.Time                  `json:"saved_at"`
}

// SaveLastPlan overwrites the stored plan snapshot.
func (s *Store) SaveLastPlan(p *plan.ExecutionPlan, status map[string]plan.ItemStatus, savedAt time.Time) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	data, err := json.MarshalIndent(StoredPlan{Plan: p, Status: status, SavedAt: savedAt}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, lastPlanFile), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write plan snapshot: %w", err)
	}
	return nil
}

// LoadLastPlan returns the stored plan snapshot, reporting absence
// separately from errors.
func (s *Store) LoadLastPlan() (*StoredPlan, bool, error) {
	path := filepath.Join(s.dir, lastPlanFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read plan snapshot: %w", err)
	}

	var stored StoredPlan
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, false, fmt.Errorf("decode plan snapshot: %w", err)
	}
	return &stored, true, nil
}
