package models

import (
	"time"

	"github.com/trendjack/core/internal/modules/pipeline/history"
	"github.com/trendjack/core/internal/modules/processing/brand"
	"github.com/trendjack/core/internal/modules/processing/generator"
	"github.com/trendjack/core/internal/modules/processing/trend"
	"github.com/trendjack/core/internal/modules/processing/voice"
)

// RunStatus is the lifecycle state of a generation run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Finished reports whether the run can no longer change.
func (s RunStatus) Finished() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// TopicSelection is a business topic chosen for a run.
type TopicSelection struct {
	Topic         string  `json:"topic"          binding:"required"`
	Explanation   string  `json:"explanation"`
	LinkedInAngle string  `json:"linkedin_angle"`
	Confidence    float64 `json:"confidence"`
}

// TopicOutput is everything generated for one selected topic.
type TopicOutput struct {
	Topic      string                   `json:"topic"`
	Approaches []generator.Approach     `json:"approaches"`
	Posts      []voice.AdaptedPost      `json:"voice_adapted_posts"`
	Concise    *generator.ConciseResult `json:"viral_posts,omitempty"`
	Examples   []brand.Example          `json:"brand_examples"`
	PostIDs    []string                 `json:"post_ids"`
	Error      string                   `json:"error,omitempty"`
}

// RunModel is one trendjacking generation run.
type RunModel struct {
	Base
	TranscriptID     string           `json:"transcript_id"               gorm:"type:char(36);index"`
	TaskID           string           `json:"task_id,omitempty"           gorm:"size:64;index"`
	Status           RunStatus        `json:"status"                      gorm:"size:16;index"`
	Progress         float64          `json:"progress"`
	Step             string           `json:"step"`
	Error            string           `json:"error,omitempty"             gorm:"type:text"`
	CompanyType      string           `json:"company_type"`
	Goal             string           `json:"goal"                        gorm:"type:text"`
	BrandPersonality string           `json:"brand_personality"`
	TrendContext     string           `json:"trend_context"               gorm:"type:text"`
	URLs             StringArray      `json:"urls"                        gorm:"type:longtext"`
	Topics           []TopicSelection `json:"topics"                      gorm:"type:longtext;serializer:json"`
	PrimaryTopic     string           `json:"primary_topic"               gorm:"type:text"`
	Trend            *trend.Analysis  `json:"trend,omitempty"             gorm:"type:longtext;serializer:json"`
	Profile          *voice.Profile   `json:"voice_profile,omitempty"     gorm:"type:longtext;serializer:json"`
	Brands           *brand.Responses `json:"brand_responses,omitempty"   gorm:"type:longtext;serializer:json"`
	History          *history.History `json:"-"                           gorm:"type:longtext;serializer:json"`
	Outputs          []TopicOutput    `json:"results"                     gorm:"type:longtext;serializer:json"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	FinishedAt       *time.Time       `json:"finished_at,omitempty"`
}

func (RunModel) TableName() string { return "runs" }
