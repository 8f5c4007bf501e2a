package models

import "time"

// ModelVersion links a trained model version back to the job that
// produced it. The pipeline resolver starts its backward walk here.
type ModelVersion struct {
	ModelID   int64     `gorm:"primaryKey;autoIncrement:false" json:"model_id"`
	VersionID int64     `gorm:"primaryKey;autoIncrement:false" json:"version_id"`
	JobID     int64     `gorm:"index;not null" json:"job_id"`
	Location  string    `gorm:"type:text;not null;default:''" json:"location"`
	IsDeleted bool      `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

type ModelVersions []*ModelVersion
