package model

import "time"

// StatusPending marks a stored run whose test has started but not finished yet.
const StatusPending Status = "pending"

// RunRecord is the persisted result of one execution of a test method.
type RunRecord struct {
	ID          string      `json:"id"`
	Test        Description `json:"test"`
	TriggeredBy string      `json:"triggeredBy"`
	Status      Status      `json:"status"`
	Message     string      `json:"message,omitempty"`
	Logs        string      `json:"logs,omitempty"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	// DurationInMS is calculated from Start and End.
	DurationInMS int64 `json:"durationInMs"`
}

// Finished reports whether the record holds a terminal outcome.
func (r RunRecord) Finished() bool {
	return r.Status != "" && r.Status != StatusPending
}

// Outcome returns the terminal outcome of the record. The cause of an error outcome is
// not persisted, only its message.
func (r RunRecord) Outcome() Outcome {
	return Outcome{Status: r.Status, Message: r.Message, Logs: r.Logs}
}

// Complete returns a copy of r that holds o as its result.
func (r RunRecord) Complete(o Outcome, end time.Time) RunRecord {
	r.Status = o.Status
	r.Message = o.Message
	r.Logs = o.Logs
	r.End = end
	r.DurationInMS = end.Sub(r.Start).Milliseconds()

	return r
}
