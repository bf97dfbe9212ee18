// Package ingest holds what third-party workout history importers share.
package ingest

// Result holds the outcome of a history import.
type Result struct {
	SessionsReceived int `json:"sessions_received"`
	SessionsInserted int `json:"sessions_inserted"`
	SessionsReplaced int `json:"sessions_replaced"`

	SetsReceived int `json:"sets_received"`
	SetsInserted int `json:"sets_inserted"`
	// WarmupsSkipped counts warm-up sets, which the journal does not record.
	WarmupsSkipped int `json:"warmups_skipped"`

	ExercisesCreated []string `json:"exercises_created,omitempty"`

	Message string `json:"message,omitempty"`
}
