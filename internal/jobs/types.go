// Package jobs defines the asynq task names and payloads shared by the
// API (enqueue side) and the worker (handle side).
package jobs

const (
	TaskSyncStrava  = "sync:strava"
	TaskWeeklyRecap = "recap:weekly"
)

type SyncStravaPayload struct {
	SinceUnix int64 `json:"since_unix,omitempty"`
}

type WeeklyRecapPayload struct {
	Email string `json:"email"`
}
