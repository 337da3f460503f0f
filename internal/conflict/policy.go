// Package conflict implements divergence detection between the local store
// and the remote worksheet.
package conflict

import "github.com/klauern/permisync/internal/model"

// IsConflict reports whether a row diverged: both replicas changed it after
// the last successful sync. All three arguments are ISO-8601 timestamp text.
//
// The policy is fail-open: a missing or unparsable timestamp yields false,
// letting the write proceed rather than blocking it. Clock skew between the
// local machine and the remote service can therefore produce false
// negatives; callers that need stronger guarantees must supply trusted
// timestamps.
func IsConflict(localUpdatedAt, remoteUpdatedAt, lastSyncAt string) bool {
	local, ok := model.ParseTimestamp(localUpdatedAt)
	if !ok {
		return false
	}
	remote, ok := model.ParseTimestamp(remoteUpdatedAt)
	if !ok {
		return false
	}
	lastSync, ok := model.ParseTimestamp(lastSyncAt)
	if !ok {
		return false
	}
	return local.After(lastSync) && remote.After(lastSync)
}
