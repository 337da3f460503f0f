package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/klauern/permisync/internal/conflict"
	"github.com/klauern/permisync/internal/dedupe"
	"github.com/klauern/permisync/internal/logging"
	"github.com/klauern/permisync/internal/model"
	"github.com/klauern/permisync/internal/plan"
)

// Engine implements Dispatcher over the local and remote stores. Push
// decides writes through the plan builder; pull classifies each worksheet
// row through the dedupe decision table. Only the execute paths are
// effectful; planning never writes.
type Engine struct {
	local     LocalStore
	remote    RemoteStore
	config    ConfigStore
	builder   *plan.Builder
	worksheet string
	header    []string
	now       func() time.Time
}

// NewEngine creates an engine targeting the named worksheet.
func NewEngine(local LocalStore, remote RemoteStore, config ConfigStore, worksheet string) *Engine {
	return &Engine{
		local:     local,
		remote:    remote,
		config:    config,
		builder:   plan.NewBuilder(),
		worksheet: worksheet,
		header:    model.CanonicalHeader(),
		now:       time.Now,
	}
}

// Dispatch runs one attempt of the requested operation.
func (e *Engine) Dispatch(ctx context.Context, op Operation) (*Summary, error) {
	if e.worksheet == "" {
		return nil, fmt.Errorf("%w: worksheet name is not set", ErrConfigIncomplete)
	}

	switch op {
	case OperationPull:
		return e.pull(ctx)
	case OperationPush:
		return e.push(ctx)
	case OperationBidirectional:
		summary, err := e.pull(ctx)
		if err != nil {
			return nil, err
		}
		pushed, err := e.push(ctx)
		if err != nil {
			return nil, err
		}
		summary.merge(pushed)
		return summary, nil
	default:
		return nil, fmt.Errorf("unsupported sync operation: %q", op)
	}
}

// Plan simulates a push without writing anything: the dry-run and
// conflict-resolution surfaces work from this.
func (e *Engine) Plan(ctx context.Context) (*plan.ExecutionPlan, error) {
	watermark, err := e.config.LastSyncAt()
	if err != nil {
		return nil, fmt.Errorf("read watermark: %w", err)
	}
	local, err := e.local.ChangedSince(ctx, watermark)
	if err != nil {
		return nil, fmt.Errorf("read local changes: %w", err)
	}
	remoteRows, err := e.remote.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}

	return e.builder.Build(plan.BuildInput{
		Worksheet:   e.worksheet,
		Local:       local,
		Remote:      indexByUUID(remoteRows),
		LastSyncAt:  watermark,
		GeneratedAt: e.now(),
	}), nil
}

// push rewrites the worksheet from local changes following a fresh plan.
func (e *Engine) push(ctx context.Context) (*Summary, error) {
	p, err := e.Plan(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		InsertedRemote: len(p.ToCreate),
		UpdatedRemote:  len(p.ToUpdate),
		Conflicts:      len(p.Conflicts),
		Errors:         append([]string(nil), p.PotentialErrors...),
	}
	for _, item := range p.Conflicts {
		summary.ConflictLabels = append(summary.ConflictLabels, item.UUID)
		if err := e.local.RecordConflict(ctx, item.UUID, item.Reason); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("record conflict %s: %v", item.UUID, err))
		}
	}

	if !p.HasChanges() {
		logging.Debug("push plan has no changes",
			logging.Worksheet(e.worksheet),
			logging.Count(p.ItemCount()),
		)
		return summary, nil
	}

	if err := e.remote.Overwrite(ctx, p.ValuesMatrix); err != nil {
		return nil, fmt.Errorf("overwrite worksheet: %w", err)
	}
	return summary, nil
}

// pull imports worksheet rows into the local store. Legacy rows without a
// uuid are matched through the composite dedupe key; matched rows get their
// uuid backfilled onto the sheet in one trailing whole-range rewrite.
func (e *Engine) pull(ctx context.Context) (*Summary, error) {
	watermark, err := e.config.LastSyncAt()
	if err != nil {
		return nil, fmt.Errorf("read watermark: %w", err)
	}
	remoteRows, err := e.remote.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}
	localRows, err := e.local.ChangedSince(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("read local rows: %w", err)
	}

	byUUID := indexByUUID(localRows)
	byKey := make(map[dedupe.Key]model.Record, len(localRows))
	for _, rec := range localRows {
		byKey[dedupe.KeyFor(rec)] = rec
	}

	summary := &Summary{}
	rewritten := make([]model.Record, len(remoteRows))
	copy(rewritten, remoteRows)
	backfilled := false

	for i, row := range remoteRows {
		rowUUID := row.UUID()

		var local model.Record
		var found bool
		if rowUUID != "" {
			local, found = byUUID[rowUUID]
		} else {
			local, found = byKey[dedupe.KeyFor(row)]
		}

		in := dedupe.Inputs{
			HasUUID:                   rowUUID != "",
			HasExistingEmptyUUIDMatch: rowUUID == "" && found,
			HasLocalUUID:              rowUUID != "" && found,
		}
		if found {
			in.SkipDuplicate = model.RecordsEqual(local, row, e.header)
			in.ConflictDetected = conflict.IsConflict(local.UpdatedAt(), row.UpdatedAt(), watermark)
			in.RemoteIsNewer = remoteIsNewer(local, row)
		}

		action := dedupe.Classify(in)
		if err := e.applyPullAction(ctx, action, row, local, summary, rewritten, i); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		if action == dedupe.ActionBackfillWithoutUUID {
			backfilled = true
		}
	}

	if backfilled {
		matrix := make([][]any, 0, len(rewritten)+1)
		headerRow := make([]any, len(e.header))
		for i, field := range e.header {
			headerRow[i] = field
		}
		matrix = append(matrix, headerRow)
		for _, rec := range rewritten {
			matrix = append(matrix, rec.Row(e.header))
		}
		if err := e.remote.Overwrite(ctx, matrix); err != nil {
			return nil, fmt.Errorf("backfill uuids: %w", err)
		}
	}

	return summary, nil
}

func (e *Engine) applyPullAction(
	ctx context.Context,
	action dedupe.PullAction,
	row, local model.Record,
	summary *Summary,
	rewritten []model.Record,
	idx int,
) error {
	switch action {
	case dedupe.ActionInsertWithUUID:
		if err := e.local.Insert(ctx, row); err != nil {
			return fmt.Errorf("insert %s: %w", row.UUID(), err)
		}
		summary.InsertedLocal++

	case dedupe.ActionInsertWithoutUUID:
		rec := row.Clone()
		rec[model.FieldUUID] = uuid.NewString()
		if err := e.local.Insert(ctx, rec); err != nil {
			return fmt.Errorf("insert legacy row: %w", err)
		}
		summary.InsertedLocal++

	case dedupe.ActionBackfillWithoutUUID:
		rec := row.Clone()
		rec[model.FieldUUID] = local.UUID()
		rewritten[idx] = rec
		summary.UpdatedRemote++
		logging.Debug("backfilling uuid onto legacy worksheet row",
			logging.UUID(local.UUID()),
			logging.Worksheet(e.worksheet),
		)

	case dedupe.ActionUpdateLocal:
		if err := e.local.Update(ctx, row); err != nil {
			return fmt.Errorf("update %s: %w", row.UUID(), err)
		}
		summary.UpdatedLocal++

	case dedupe.ActionStoreConflict:
		label := row.UUID()
		if err := e.local.RecordConflict(ctx, label, "diverged during pull"); err != nil {
			return fmt.Errorf("record conflict %s: %w", label, err)
		}
		summary.Conflicts++
		summary.ConflictLabels = append(summary.ConflictLabels, label)

	case dedupe.ActionSkipDuplicate, dedupe.ActionSkipWithoutUUID:
		summary.DuplicatesSkipped++

	case dedupe.ActionNoop:
		// Nothing to do.
	}
	return nil
}

// ExecutePlan writes an adjusted plan (after conflict resolution) back to
// the worksheet. The matrix is rebuilt so rows resolved keep_local carry
// the local payload while rows still conflicted keep their remote content.
func (e *Engine) ExecutePlan(ctx context.Context, p *plan.ExecutionPlan) (*Summary, error) {
	remoteRows, err := e.remote.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}
	remote := indexByUUID(remoteRows)

	headerRow := make([]any, len(e.header))
	for i, field := range e.header {
		headerRow[i] = field
	}
	matrix := [][]any{headerRow}
	written := make(map[string]bool)

	appendLocal := func(items []plan.Item) error {
		for _, item := range items {
			rec, found, err := e.local.ByUUID(ctx, item.UUID)
			if err != nil {
				return fmt.Errorf("read local row %s: %w", item.UUID, err)
			}
			if !found {
				continue
			}
			matrix = append(matrix, rec.Row(e.header))
			written[item.UUID] = true
		}
		return nil
	}
	if err := appendLocal(p.ToCreate); err != nil {
		return nil, err
	}
	if err := appendLocal(p.ToUpdate); err != nil {
		return nil, err
	}
	for _, item := range p.Unchanged {
		if rec, ok := remote[item.UUID]; ok {
			matrix = append(matrix, rec.Row(e.header))
			written[item.UUID] = true
		}
	}
	// Rows still conflicted and rows the plan never saw keep their remote
	// content.
	for _, rec := range remoteRows {
		if id := rec.UUID(); id == "" || !written[id] {
			matrix = append(matrix, rec.Row(e.header))
		}
	}

	if err := e.remote.Overwrite(ctx, matrix); err != nil {
		return nil, fmt.Errorf("overwrite worksheet: %w", err)
	}

	return &Summary{
		InsertedRemote: len(p.ToCreate),
		UpdatedRemote:  len(p.ToUpdate),
		Conflicts:      len(p.Conflicts),
	}, nil
}

func indexByUUID(rows []model.Record) map[string]model.Record {
	out := make(map[string]model.Record, len(rows))
	for _, rec := range rows {
		if id := rec.UUID(); id != "" {
			out[id] = rec
		}
	}
	return out
}

// remoteIsNewer reports whether the remote row's updated_at sorts after the
// local one. A remote timestamp that parses beats a local one that does not.
func remoteIsNewer(local, remote model.Record) bool {
	rt, rok := model.ParseTimestamp(remote.UpdatedAt())
	if !rok {
		return false
	}
	lt, lok := model.ParseTimestamp(local.UpdatedAt())
	if !lok {
		return true
	}
	return rt.After(lt)
}
