package pipeline

import (
	"time"

	"github.com/joseph-ayodele/debitsheet-import/constants"
)

// Event is one timestamped note from a stage.
type Event struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// ExtractionContext carries the state of one extraction through the stages.
// It belongs to a single request and is never shared.
type ExtractionContext struct {
	RequestID    string
	DocumentName string
	SubmittedBy  string
	Started      time.Time
	Format       constants.DocumentFormat
	Method       constants.ExtractionMethod
	RawReply     string
	Warnings     []string
	Events       []Event
}

func NewExtractionContext(requestID, documentName string, started time.Time) *ExtractionContext {
	return &ExtractionContext{
		RequestID:    requestID,
		DocumentName: documentName,
		Started:      started,
		Method:       constants.MethodNone,
		Warnings:     []string{},
	}
}

// Record appends an event for stage.
func (c *ExtractionContext) Record(stage, message string) {
	c.Events = append(c.Events, Event{Stage: stage, Message: message, At: time.Now()})
}

// Warn appends warnings not already present, keeping first-seen order.
func (c *ExtractionContext) Warn(warnings ...string) {
	for _, w := range warnings {
		if w == "" || c.hasWarning(w) {
			continue
		}
		c.Warnings = append(c.Warnings, w)
	}
}

func (c *ExtractionContext) hasWarning(w string) bool {
	for _, existing := range c.Warnings {
		if existing == w {
			return true
		}
	}
	return false
}

// Elapsed is the time since the extraction started.
func (c *ExtractionContext) Elapsed() time.Duration {
	return time.Since(c.Started)
}
