package dedupe

// PullAction is what the pull pass does with one remote row.
type PullAction string

const (
	// ActionBackfillWithoutUUID pairs a legacy uuid-less row with its local
	// match and writes the uuid back to the worksheet.
	ActionBackfillWithoutUUID PullAction = "backfill_without_uuid"

	// ActionInsertWithoutUUID imports a legacy row with a freshly generated
	// uuid; no local match exists.
	ActionInsertWithoutUUID PullAction = "insert_without_uuid"

	// ActionSkipWithoutUUID leaves a matched legacy row alone.
	ActionSkipWithoutUUID PullAction = "skip_without_uuid"

	// ActionInsertWithUUID imports a row whose uuid is unknown locally.
	ActionInsertWithUUID PullAction = "insert_with_uuid"

	// ActionSkipDuplicate drops a row already present locally.
	ActionSkipDuplicate PullAction = "skip_duplicate"

	// ActionStoreConflict records a divergent row for explicit resolution.
	ActionStoreConflict PullAction = "store_conflict"

	// ActionUpdateLocal overwrites the local row with newer remote content.
	ActionUpdateLocal PullAction = "update_local"

	// ActionNoop leaves both sides untouched.
	ActionNoop PullAction = "noop"
)

// Inputs are the six predicates the pull classification depends on. They
// are computed by the caller (store lookups, key matching, conflict policy)
// so Classify itself stays a pure function.
type Inputs struct {
	// HasUUID is true when the remote row carries a uuid.
	HasUUID bool

	// HasExistingEmptyUUIDMatch is true when a uuid-less remote row matches
	// a local row through the composite key.
	HasExistingEmptyUUIDMatch bool

	// HasLocalUUID is true when a local row with the remote row's uuid
	// exists.
	HasLocalUUID bool

	// SkipDuplicate is true when the row's content already matches the
	// local side and importing it would only duplicate data.
	SkipDuplicate bool

	// ConflictDetected is true when the conflict policy flagged the pair.
	ConflictDetected bool

	// RemoteIsNewer is true when the remote updated_at sorts after the
	// local one.
	RemoteIsNewer bool
}

// Classify maps the six predicates onto one pull action. Uuid presence is
// checked first; the composite-key duplicate/backfill outcomes apply only
// when the uuid is absent, and a detected conflict wins over staleness.
func Classify(in Inputs) PullAction {
	if !in.HasUUID {
		if in.HasExistingEmptyUUIDMatch {
			if in.SkipDuplicate {
				return ActionSkipWithoutUUID
			}
			return ActionBackfillWithoutUUID
		}
		return ActionInsertWithoutUUID
	}

	if !in.HasLocalUUID {
		return ActionInsertWithUUID
	}
	if in.SkipDuplicate {
		return ActionSkipDuplicate
	}
	if in.ConflictDetected {
		return ActionStoreConflict
	}
	if in.RemoteIsNewer {
		return ActionUpdateLocal
	}
	return ActionNoop
}
