package run

import (
	"context"
	"errors"
	"fmt"

	"github.com/trendjack/core/internal/models"
	"github.com/trendjack/core/internal/modules/processing/transcript"
	"github.com/trendjack/core/internal/pkg/pagination"
	"github.com/trendjack/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateTranscript stores an extracted document.
func (s *Service) CreateTranscript(ctx context.Context, doc transcript.Document) (*models.TranscriptModel, error) {
	m := models.NewTranscript(doc)
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	s.logger.Info("transcript stored", zap.String("id", m.ID), zap.String("filename", m.Filename))
	return m, nil
}

// GetTranscript returns a transcript, or nil when it does not exist.
func (s *Service) GetTranscript(id string) (*models.TranscriptModel, error) {
	if id == "" {
		return nil, nil
	}
	var m models.TranscriptModel
	err := s.db.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) ListTranscripts(q pagination.Query) ([]models.TranscriptModel, response.Pagination, error) {
	var items []models.TranscriptModel
	tx := s.db.Model(&models.TranscriptModel{}).Omit("text").Order("created_at DESC")
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// DeleteTranscript removes a transcript and its extracted topics. Runs keep
// their results.
func (s *Service) DeleteTranscript(id string) error {
	res := s.db.Delete(&models.TranscriptModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTranscriptNotFound
	}
	return s.db.Where("transcript_id = ?", id).Delete(&models.TopicModel{}).Error
}

// ExtractTopics evaluates a transcript against goal and replaces its stored
// topics with the result.
func (s *Service) ExtractTopics(ctx context.Context, transcriptID, goal string) ([]models.TopicModel, transcript.Extraction, error) {
	tr, err := s.GetTranscript(transcriptID)
	if err != nil {
		return nil, transcript.Extraction{}, err
	}
	if tr == nil {
		return nil, transcript.Extraction{}, ErrTranscriptNotFound
	}
	if goal == "" {
		goal = s.cfg.PromotionalGoal
	}
	ex, err := s.extractor.Extract(ctx, tr.Text, goal)
	if err != nil {
		return nil, transcript.Extraction{}, fmt.Errorf("extract topics: %w", err)
	}

	rows := make([]models.TopicModel, len(ex.Topics))
	for i, t := range ex.Topics {
		rows[i] = *models.NewTopic(transcriptID, ex.Goal, i, t, ex.Mock)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transcript_id = ?", transcriptID).Delete(&models.TopicModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, transcript.Extraction{}, err
	}
	return rows, ex, nil
}

// ListTopics returns the stored topics of a transcript. alignedOnly keeps
// aligned topics ordered by confidence.
func (s *Service) ListTopics(transcriptID string, alignedOnly bool) ([]models.TopicModel, error) {
	tx := s.db.Where("transcript_id = ?", transcriptID)
	if alignedOnly {
		tx = tx.Where("aligns_with_goal = ?", true).Order("confidence DESC")
	}
	var rows []models.TopicModel
	if err := tx.Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Selections converts stored topics into run topic selections.
func Selections(rows []models.TopicModel) []models.TopicSelection {
	out := make([]models.TopicSelection, len(rows))
	for i, r := range rows {
		out[i] = models.TopicSelection{
			Topic:         r.Topic,
			Explanation:   r.Explanation,
			LinkedInAngle: r.LinkedInAngle,
			Confidence:    r.Confidence,
		}
	}
	return out
}
