package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusProcessing JobStatus = "Processing"
	JobStatusComplete   JobStatus = "Complete"
	JobStatusFailed     JobStatus = "Failed"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// AssessmentJob tracks one pipeline run. The result stays empty while the job is Processing
// and is written together with the terminal status.
type AssessmentJob struct {
	ID            uuid.UUID `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     *time.Time
	Status        JobStatus `gorm:"not null;type:VARCHAR(32);index:assessment_jobs_status_idx"`
	RepositoryURL string    `gorm:"not null;type:TEXT"`
	DocumentName  *string   `gorm:"type:VARCHAR(255)"`
	ResultJSON    *string   `gorm:"column:result_json;type:TEXT"`
}

type AssessmentJobList []AssessmentJob

func (j AssessmentJob) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}
