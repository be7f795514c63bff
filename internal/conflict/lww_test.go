package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldApplyRemote(t *testing.T) {
	tests := []struct {
		name          string
		localVersion  int64
		remoteVersion int64
		localTs       int64
		remoteTs      int64
		want          bool
	}{
		{"newer timestamp wins", 5, 2, 1000, 2000, true},
		{"older timestamp loses", 2, 5, 2000, 1000, false},
		{"equal timestamp higher version wins", 2, 3, 1000, 1000, true},
		{"equal timestamp equal version loses", 2, 2, 1000, 1000, false},
		{"equal timestamp lower version loses", 3, 2, 1000, 1000, false},
		{"newer timestamp wins regardless of version", 10, 1, 1000, 1001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldApplyRemote(tt.localVersion, tt.remoteVersion, tt.localTs, tt.remoteTs)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Local object at version 2, T1; a stale duplicate arrives with version 2
// but the older timestamp T0. The comparator must reject it.
func TestShouldApplyRemoteStaleDuplicate(t *testing.T) {
	const (
		t0 = int64(1000)
		t1 = int64(2000)
	)
	assert.False(t, ShouldApplyRemote(2, 2, t1, t0))
}
