package models

import "time"

// DatasetVersion is one immutable node in a dataset's lineage chain.
// Version ids are per-dataset, monotonically increasing from 0 (raw
// ingestion). A version is never mutated or renumbered; deletion is a
// tombstone only.
type DatasetVersion struct {
	DatasetID       int64     `gorm:"primaryKey;autoIncrement:false" json:"dataset_id"`
	VersionID       int64     `gorm:"primaryKey;autoIncrement:false" json:"version_id"`
	ParentVersionID int64     `gorm:"not null;default:-1" json:"parent_version_id"`
	Location        string    `gorm:"type:text;not null" json:"location"`
	CreatingJobID   int64     `gorm:"not null;default:-1" json:"creating_job_id"`
	ProfilingDone   bool      `gorm:"not null;default:false" json:"profiling_done"`
	ProfilingJobID  int64     `gorm:"not null;default:-1" json:"profiling_job_id"`
	IsDeleted       bool      `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
}

type DatasetVersions []*DatasetVersion

// Root reports whether the version is the raw ingested dataset.
func (v *DatasetVersion) Root() bool {
	return v.ParentVersionID < 0
}
