package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"famfin/internal/anomaly"
)

type JobKind string

const (
	JobAnomalyScan  JobKind = "anomaly_scan"
	JobHealthReport JobKind = "health_report"
)

var ErrInvalidMessage = errors.New("invalid message")

// AnalyticsJobMessage asks the worker to run one analytics job for a family.
// Months overrides the configured analysis window when positive.
type AnalyticsJobMessage struct {
	ID          string    `json:"id"`
	FamilyID    string    `json:"family_id"`
	Job         JobKind   `json:"job"`
	Months      int       `json:"months,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewAnalyticsJobMessage(familyID string, job JobKind) *AnalyticsJobMessage {
	return &AnalyticsJobMessage{
		ID:          uuid.NewString(),
		FamilyID:    familyID,
		Job:         job,
		RequestedAt: time.Now().UTC(),
	}
}

func (m *AnalyticsJobMessage) Validate() error {
	if m.FamilyID == "" {
		return fmt.Errorf("%w: family_id is required", ErrInvalidMessage)
	}
	switch m.Job {
	case JobAnomalyScan, JobHealthReport:
	default:
		return fmt.Errorf("%w: unknown job %q", ErrInvalidMessage, m.Job)
	}
	if m.Months < 0 {
		return fmt.Errorf("%w: months cannot be negative", ErrInvalidMessage)
	}
	return nil
}

func (m *AnalyticsJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AnalyticsJobMessageFromJSON decodes and validates a job.
func AnalyticsJobMessageFromJSON(data []byte) (*AnalyticsJobMessage, error) {
	var msg AnalyticsJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AnomalyAlertMessage reports the anomalies found by one scan.
type AnomalyAlertMessage struct {
	ID         string                   `json:"id"`
	JobID      string                   `json:"job_id,omitempty"`
	FamilyID   string                   `json:"family_id"`
	Count      int                      `json:"count"`
	BySeverity map[anomaly.Severity]int `json:"by_severity"`
	Anomalies  []anomaly.Anomaly        `json:"anomalies"`
	DetectedAt time.Time                `json:"detected_at"`
}

func NewAnomalyAlertMessage(familyID, jobID string, found []anomaly.Anomaly, at time.Time) *AnomalyAlertMessage {
	return &AnomalyAlertMessage{
		ID:         uuid.NewString(),
		JobID:      jobID,
		FamilyID:   familyID,
		Count:      len(found),
		BySeverity: anomaly.Count(found),
		Anomalies:  found,
		DetectedAt: at.UTC(),
	}
}

func (m *AnomalyAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AnomalyAlertMessageFromJSON(data []byte) (*AnomalyAlertMessage, error) {
	var msg AnomalyAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
