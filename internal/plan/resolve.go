package plan

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauern/permisync/internal/logging"
)

// Decision is a user's verdict on one conflicted row.
type Decision string

const (
	// DecisionKeepLocal writes the local version, overwriting the remote.
	DecisionKeepLocal Decision = "keep_local"

	// DecisionKeepRemote keeps the worksheet version, discarding the local
	// change from this plan.
	DecisionKeepRemote Decision = "keep_remote"
)

// IsValid returns true if the decision is recognized.
func (d Decision) IsValid() bool {
	return d == DecisionKeepLocal || d == DecisionKeepRemote
}

// DecisionRecord is one line of the conflict-decision audit trail.
type DecisionRecord struct {
	ItemUUID  string `json:"item_uuid"`
	Decision  string `json:"decision"`
	DecidedAt string `json:"decided_at"`
}

// Resolver applies conflict decisions to a plan and records every decision
// received in a daily append-only JSONL audit file.
type Resolver struct {
	auditDir string
	now      func() time.Time
}

// NewResolver creates a resolver writing audit records under auditDir
// (conventionally logs/sync_history).
func NewResolver(auditDir string) *Resolver {
	return &Resolver{auditDir: auditDir, now: time.Now}
}

// NewResolverWithClock creates a resolver with an injectable clock.
func NewResolverWithClock(auditDir string, now func() time.Time) *Resolver {
	return &Resolver{auditDir: auditDir, now: now}
}

// AuditPath returns today's audit file path.
func (r *Resolver) AuditPath() string {
	return filepath.Join(r.auditDir, fmt.Sprintf("conflict_decisions_%s.jsonl", r.now().Format("20060102")))
}

// Apply adjusts the plan according to the given per-uuid decisions:
// keep_local moves the item into ToUpdate, keep_remote into Unchanged, and
// rows with no decision stay in Conflicts and are returned as unresolved.
// The input plan is not modified. Every decision received is appended to the
// audit file, resolved or not; an audit write failure aborts before any
// adjustment so the trail never lags the plan.
func (r *Resolver) Apply(base *ExecutionPlan, decisions map[string]Decision) (*ExecutionPlan, []string, error) {
	decidedAt := r.now().Format(time.RFC3339)
	auditPath := r.AuditPath()
	for _, uuid := range sortedKeys(decisions) {
		rec := DecisionRecord{
			ItemUUID:  uuid,
			Decision:  string(decisions[uuid]),
			DecidedAt: decidedAt,
		}
		if err := logging.AppendJSONLine(auditPath, rec); err != nil {
			return nil, nil, fmt.Errorf("failed to record conflict decision: %w", err)
		}
	}

	adjusted := base.Clone()
	var unresolved []string
	remaining := adjusted.Conflicts[:0]
	for _, item := range adjusted.Conflicts {
		switch decisions[item.UUID] {
		case DecisionKeepLocal:
			item.Action = ActionUpdate
			item.Reason = "conflict resolved: keep local"
			adjusted.ToUpdate = append(adjusted.ToUpdate, item)
		case DecisionKeepRemote:
			item.Action = ActionUnchanged
			item.Reason = "conflict resolved: keep remote"
			adjusted.Unchanged = append(adjusted.Unchanged, item)
		default:
			unresolved = append(unresolved, item.UUID)
			remaining = append(remaining, item)
		}
		logging.Debug("conflict decision applied",
			logging.UUID(item.UUID),
			logging.Operation("resolve"),
		)
	}
	adjusted.Conflicts = remaining

	return adjusted, unresolved, nil
}

func sortedKeys(decisions map[string]Decision) []string {
	keys := make([]string, 0, len(decisions))
	for k := range decisions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
