package conflict

import "testing"

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name     string
		local    string
		remote   string
		lastSync string
		want     bool
	}{
		{
			name:     "both sides changed after last sync",
			local:    "2026-01-03T10:00:00",
			remote:   "2026-01-03T11:00:00",
			lastSync: "2026-01-02T00:00:00",
			want:     true,
		},
		{
			name:     "only local changed",
			local:    "2026-01-03T10:00:00",
			remote:   "2026-01-01T09:00:00",
			lastSync: "2026-01-02T00:00:00",
			want:     false,
		},
		{
			name:     "only remote changed",
			local:    "2026-01-01T10:00:00",
			remote:   "2026-01-03T09:00:00",
			lastSync: "2026-01-02T00:00:00",
			want:     false,
		},
		{
			name:     "missing remote timestamp fails open",
			local:    "2026-01-03T10:00:00",
			remote:   "",
			lastSync: "2026-01-02T00:00:00",
			want:     false,
		},
		{
			name:     "unparsable local timestamp fails open",
			local:    "not-a-date",
			remote:   "2026-01-03T11:00:00",
			lastSync: "2026-01-02T00:00:00",
			want:     false,
		},
		{
			name:     "no watermark fails open",
			local:    "2026-01-03T10:00:00",
			remote:   "2026-01-03T11:00:00",
			lastSync: "",
			want:     false,
		},
		{
			name:     "change exactly at the watermark is not divergent",
			local:    "2026-01-02T00:00:00",
			remote:   "2026-01-03T11:00:00",
			lastSync: "2026-01-02T00:00:00",
			want:     false,
		},
		{
			name:     "RFC3339 timestamps accepted",
			local:    "2026-01-03T10:00:00Z",
			remote:   "2026-01-03T11:00:00Z",
			lastSync: "2026-01-02T00:00:00Z",
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsConflict(tt.local, tt.remote, tt.lastSync)
			if got != tt.want {
				t.Errorf("IsConflict(%q, %q, %q) = %v, want %v",
					tt.local, tt.remote, tt.lastSync, got, tt.want)
			}
		})
	}
}
