package models

import "github.com/trendjack/core/internal/modules/processing/refine"

// PostModel is a voice-adapted post that can be refined.
type PostModel struct {
	Base
	RunID             string              `json:"run_id"             gorm:"type:char(36);index"`
	Topic             string              `json:"topic"`
	Number            int                 `json:"post_number"`
	Approach          string              `json:"approach"`
	Hook              string              `json:"viral_hook"         gorm:"type:text"`
	Hashtags          string              `json:"hashtags"           gorm:"type:text"`
	Content           string              `json:"content"            gorm:"type:longtext"`
	OriginalContent   string              `json:"original_content"   gorm:"type:longtext"`
	AuthenticityScore float64             `json:"authenticity_score"`
	Refinements       int                 `json:"refinements"`
	Context           *refine.PostContext `json:"-"                  gorm:"type:longtext;serializer:json"`
}

func (PostModel) TableName() string { return "posts" }

// Sync copies the refinable state from Context onto the flat columns.
func (m *PostModel) Sync() {
	if m.Context == nil {
		return
	}
	m.Content = m.Context.CurrentPost
	m.OriginalContent = m.Context.OriginalPost
	m.Refinements = len(m.Context.Refinements)
}
