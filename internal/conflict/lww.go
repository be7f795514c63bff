// Package conflict implements the last-write-wins policy used to decide
// whether an incoming remote change overwrites local state.
package conflict

// ShouldApplyRemote reports whether a remote change should overwrite the
// local copy of an object. Newer timestamp always wins; on an exact
// timestamp tie the higher version wins. A later write fully supersedes the
// earlier one's property bag, there is no field-level merge.
//
// Callers must accept the remote unconditionally when the object does not
// exist locally yet (bootstrap).
func ShouldApplyRemote(localVersion, remoteVersion int64, localUpdatedAt, remoteUpdatedAt int64) bool {
	if remoteUpdatedAt > localUpdatedAt {
		return true
	}
	if remoteUpdatedAt < localUpdatedAt {
		return false
	}
	return remoteVersion > localVersion
}
