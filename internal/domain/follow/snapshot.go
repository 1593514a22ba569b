// internal/domain/follow/snapshot.go
package follow

import "time"

// SnapshotSource records how a user came to see a prediction.
type SnapshotSource string

const (
	SourceUserQuery     SnapshotSource = "USER_QUERY"
	SourceCSVImport     SnapshotSource = "CSV_IMPORT"
	SourceSystemRefresh SnapshotSource = "SYSTEM_REFRESH"
)

// UserPrediction binds a user to a specific Prediction they were shown.
// Corresponds to the 'user_predictions' table.
type UserPrediction struct {
	ID           int64
	UserID       int64
	RequestID    int64
	PredictionID int64
	Source       SnapshotSource
	CreatedAt    time.Time
}
