package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WorkflowSnapshot struct {
	UserId       uuid.UUID      `gorm:"type:uuid;primaryKey"`
	StorageKey   string         `gorm:"type:varchar(255);not null;uniqueIndex"`
	SessionId    string         `gorm:"type:varchar(64);index"`
	Mode         string         `gorm:"type:varchar(32)"`
	CurrentStage string         `gorm:"type:varchar(32);not null"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
}

func (WorkflowSnapshot) TableName() string {
	return "workflow_snapshots"
}
