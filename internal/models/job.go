package models

import (
	"time"

	"gorm.io/datatypes"
)

// Status enumerates the job lifecycle states. The numeric values are
// part of the persisted and monitoring-facing contract.
type Status int

const (
	StatusNotStarted Status = 0
	StatusRunning    Status = 1
	StatusComplete   Status = 2
	StatusError      Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusRunning:
		return "running"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status absorbs all further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// CanTransition reports whether moving from s to next is legal.
// The machine is strictly monotonic:
// NotStarted -> Running -> {Complete, Error}.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusNotStarted:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusComplete || next == StatusError
	default:
		return false
	}
}

// Job records one requested transformation stage and its lifecycle.
// Jobs are never deleted, only soft-deleted for listing.
type Job struct {
	ID          int64             `gorm:"primaryKey;autoIncrement" json:"job_id"`
	BindingID   int64             `gorm:"index;not null" json:"binding_id"`
	StageType   StageType         `gorm:"type:text;not null" json:"stage_type"`
	Options     datatypes.JSONMap `gorm:"type:json" json:"options,omitempty"`
	Status      Status            `gorm:"index;not null;default:0" json:"status"`
	ParentJobID int64             `gorm:"not null;default:-1" json:"parent_job_id"`
	IsDeleted   bool              `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	StartedAt   int64             `gorm:"not null;default:-1" json:"started_at"`
	EndedAt     int64             `gorm:"not null;default:-1" json:"ended_at"`
}

type Jobs []*Job

// JobDetail is a Job joined with its binding, as returned by list
// queries that filter on dataset/project/user.
type JobDetail struct {
	Job       `gorm:"embedded"`
	DatasetID int64 `json:"dataset_id"`
	VersionID int64 `json:"version_id"`
	ProjectID int64 `json:"project_id"`
	UserID    int64 `json:"user_id"`
}

type JobDetails []*JobDetail
