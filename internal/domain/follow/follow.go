// internal/domain/follow/follow.go
package follow

import (
	"database/sql"
	"strings"
	"time"
)

// RefreshMode controls whether a followed flight is proactively kept warm.
type RefreshMode string

const (
	ModeT12Only    RefreshMode = "T12_ONLY"    // checked only at the 12h mark
	ModeT72Refresh RefreshMode = "T72_REFRESH" // refreshed every bucket from 72h out
)

func (m RefreshMode) Valid() bool {
	return m == ModeT12Only || m == ModeT72Refresh
}

// ParseRefreshMode accepts the stored names as well as the short "t12"/"t72" forms.
func ParseRefreshMode(raw string) (RefreshMode, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "T12", "T12_ONLY":
		return ModeT12Only, true
	case "T72", "T72_REFRESH":
		return ModeT72Refresh, true
	}
	return "", false
}

// Follow is a user's subscription to one FlightRequest, unique per (UserID, RequestID).
type Follow struct {
	ID                 int64
	UserID             int64
	RequestID          int64
	Mode               RefreshMode
	BaselineSnapshotID sql.NullInt64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PinBaseline sets the baseline snapshot only if none is set yet.
func (f *Follow) PinBaseline(snapshotID int64) bool {
	if f.BaselineSnapshotID.Valid {
		return false
	}
	f.BaselineSnapshotID = sql.NullInt64{Int64: snapshotID, Valid: true}
	return true
}
