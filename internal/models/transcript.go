package models

import (
	"strings"

	"github.com/trendjack/core/internal/modules/processing/transcript"
)

// TranscriptModel is an uploaded or pasted company transcript.
type TranscriptModel struct {
	Base
	Filename   string `json:"filename"`
	Format     string `json:"format"     gorm:"size:16"`
	Text       string `json:"text"       gorm:"type:longtext"`
	Characters int    `json:"characters"`
	Words      int    `json:"words"`
}

func (TranscriptModel) TableName() string { return "transcripts" }

// NewTranscript builds a model from an extracted document.
func NewTranscript(doc transcript.Document) *TranscriptModel {
	return &TranscriptModel{
		Filename:   doc.Filename,
		Format:     doc.Format,
		Text:       doc.Text,
		Characters: len([]rune(doc.Text)),
		Words:      len(strings.Fields(doc.Text)),
	}
}

// TopicModel is one evaluated business topic extracted from a transcript.
type TopicModel struct {
	Base
	TranscriptID    string      `json:"transcript_id"    gorm:"type:char(36);index"`
	Goal            string      `json:"goal"             gorm:"type:text"`
	Position        int         `json:"position"`
	Topic           string      `json:"topic"`
	Explanation     string      `json:"explanation"      gorm:"type:text"`
	AlignsWithGoal  bool        `json:"aligns_with_goal" gorm:"index"`
	AlignmentReason string      `json:"alignment_reason" gorm:"type:text"`
	LinkedInAngle   string      `json:"linkedin_angle"   gorm:"type:text"`
	Confidence      float64     `json:"confidence"`
	Reasoning       string      `json:"reasoning"        gorm:"type:text"`
	Evidence        StringArray `json:"evidence_used"    gorm:"type:longtext"`
	Mock            bool        `json:"mock"`
}

func (TopicModel) TableName() string { return "transcript_topics" }

// NewTopic converts an evaluated topic for storage.
func NewTopic(transcriptID, goal string, position int, t transcript.Topic, mock bool) *TopicModel {
	return &TopicModel{
		TranscriptID:    transcriptID,
		Goal:            goal,
		Position:        position,
		Topic:           t.Topic,
		Explanation:     t.Explanation,
		AlignsWithGoal:  t.AlignsWithGoal,
		AlignmentReason: t.AlignmentReason,
		LinkedInAngle:   t.LinkedInAngle,
		Confidence:      t.Confidence,
		Reasoning:       t.Reasoning,
		Evidence:        StringArray(t.Evidence),
		Mock:            mock,
	}
}

// Domain converts the row back to the processing type.
func (m *TopicModel) Domain() transcript.Topic {
	return transcript.Topic{
		Topic:           m.Topic,
		Explanation:     m.Explanation,
		AlignsWithGoal:  m.AlignsWithGoal,
		AlignmentReason: m.AlignmentReason,
		LinkedInAngle:   m.LinkedInAngle,
		Confidence:      m.Confidence,
		Reasoning:       m.Reasoning,
		Evidence:        []string(m.Evidence),
	}
}
