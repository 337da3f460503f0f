package dedupe

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want PullAction
	}{
		{
			name: "uuid-less row with local match backfills",
			in:   Inputs{HasUUID: false, HasExistingEmptyUUIDMatch: true},
			want: ActionBackfillWithoutUUID,
		},
		{
			name: "uuid-less row with local match skips when marked duplicate",
			in:   Inputs{HasUUID: false, HasExistingEmptyUUIDMatch: true, SkipDuplicate: true},
			want: ActionSkipWithoutUUID,
		},
		{
			name: "uuid-less row without local match inserts",
			in:   Inputs{HasUUID: false},
			want: ActionInsertWithoutUUID,
		},
		{
			name: "unknown uuid inserts",
			in:   Inputs{HasUUID: true, HasLocalUUID: false},
			want: ActionInsertWithUUID,
		},
		{
			name: "known uuid marked duplicate skips",
			in:   Inputs{HasUUID: true, HasLocalUUID: true, SkipDuplicate: true},
			want: ActionSkipDuplicate,
		},
		{
			name: "conflict wins over staleness",
			in:   Inputs{HasUUID: true, HasLocalUUID: true, ConflictDetected: true, RemoteIsNewer: true},
			want: ActionStoreConflict,
		},
		{
			name: "newer remote row updates local",
			in:   Inputs{HasUUID: true, HasLocalUUID: true, RemoteIsNewer: true},
			want: ActionUpdateLocal,
		},
		{
			name: "known uuid with nothing to do is a noop",
			in:   Inputs{HasUUID: true, HasLocalUUID: true},
			want: ActionNoop,
		},
		{
			name: "duplicate flag beats conflict for known uuid",
			in:   Inputs{HasUUID: true, HasLocalUUID: true, SkipDuplicate: true, ConflictDetected: true},
			want: ActionSkipDuplicate,
		},
		{
			name: "composite-key match is ignored when the row has a uuid",
			in:   Inputs{HasUUID: true, HasLocalUUID: false, HasExistingEmptyUUIDMatch: true},
			want: ActionInsertWithUUID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.in); got != tt.want {
				t.Errorf("Classify(%+v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
