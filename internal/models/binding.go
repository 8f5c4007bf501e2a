package models

import "time"

// Binding maps a (project, user) pair to the dataset version they are
// currently working on. At most one binding per pair has
// IsCurrent=true; superseded bindings stay queryable for lineage and
// job listing. The partial unique index makes the database reject a
// second current row outright, so concurrent rebinds for one pair
// cannot both commit.
type Binding struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"binding_id"`
	ProjectID    int64     `gorm:"index:idx_binding_proj_user;index:idx_binding_one_current,unique,where:is_current;not null" json:"project_id"`
	UserID       int64     `gorm:"index:idx_binding_proj_user;index:idx_binding_one_current,unique,where:is_current;not null" json:"user_id"`
	DatasetID    int64     `gorm:"index;not null" json:"dataset_id"`
	VersionID    int64     `gorm:"not null" json:"version_id"`
	TargetColumn string    `gorm:"type:text;not null;default:''" json:"target_column"`
	IsCurrent    bool      `gorm:"index;not null;default:true" json:"is_current"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

type Bindings []*Binding
