package run

import (
	"context"
	"errors"
	"sync"

	"github.com/trendjack/core/internal/models"
	"github.com/trendjack/core/internal/modules/pipeline/history"
	"github.com/trendjack/core/internal/modules/processing/markdown"
	"github.com/trendjack/core/internal/modules/processing/refine"
	"github.com/trendjack/core/internal/modules/processing/voice"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetPost returns a post, or nil when it does not exist.
func (s *Service) GetPost(id string) (*models.PostModel, error) {
	var p models.PostModel
	err := s.db.First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PostsForRun lists a run's posts in generation order.
func (s *Service) PostsForRun(runID string) ([]models.PostModel, error) {
	var posts []models.PostModel
	err := s.db.Where("run_id = ?", runID).Order("created_at ASC").Order("number ASC").Find(&posts).Error
	return posts, err
}

func (s *Service) loadRefinable(id string) (*models.PostModel, error) {
	p, err := s.GetPost(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPostNotFound
	}
	if p.Context == nil {
		// Rows written without a context are rebuilt from their run.
		var profile voice.Profile
		trendingTopic := ""
		if r, err := s.GetRun(p.RunID); err == nil && r != nil {
			trendingTopic = r.PrimaryTopic
			if r.Profile != nil {
				profile = *r.Profile
			}
		}
		p.Context = refine.NewPostContext(trendingTopic, p.Topic, p.Hook, p.Approach, profile, p.OriginalContent, nil)
		p.Context.CurrentPost = p.Content
	}
	return p, nil
}

// RefinePost applies a user request to a post and stores the new version.
// Refinements of one post run one at a time so none is lost.
func (s *Service) RefinePost(ctx context.Context, id, request string) (*models.PostModel, refine.Result, error) {
	defer s.postLocks.lock(id)()
	p, err := s.loadRefinable(id)
	if err != nil {
		return nil, refine.Result{}, err
	}
	res, err := s.refiner.Refine(ctx, p.Context, request)
	if err != nil {
		return nil, refine.Result{}, err
	}
	p.Sync()
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, refine.Result{}, err
	}
	s.logger.Info("post refined", zap.String("post", p.ID), zap.Int("refinements", p.Refinements))
	return p, res, nil
}

// ResetPost restores a post to its generated version.
func (s *Service) ResetPost(ctx context.Context, id string) (*models.PostModel, error) {
	defer s.postLocks.lock(id)()
	p, err := s.loadRefinable(id)
	if err != nil {
		return nil, err
	}
	refine.Reset(p.Context)
	p.Sync()
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

// lock blocks until key is free and returns its unlock func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// PostHistory returns the conversation history behind a post.
func (s *Service) PostHistory(id string) (*history.History, error) {
	p, err := s.loadRefinable(id)
	if err != nil {
		return nil, err
	}
	if p.Context.History == nil {
		return &history.History{}, nil
	}
	return p.Context.History, nil
}

// Report converts a stored run into an export report.
func Report(r *models.RunModel) markdown.Report {
	rep := markdown.Report{
		Title:       "Trendjacking Results",
		CompanyType: r.CompanyType,
		Goal:        r.Goal,
		CreatedAt:   r.CreatedAt,
		Trend:       r.Trend,
		Profile:     r.Profile,
		Topics:      make([]markdown.TopicReport, len(r.Outputs)),
	}
	if r.PrimaryTopic != "" {
		rep.Title = "Trendjacking Results: " + r.PrimaryTopic
	}
	for i, t := range r.Outputs {
		rep.Topics[i] = markdown.TopicReport{
			Topic:    t.Topic,
			Posts:    t.Posts,
			Concise:  t.Concise,
			Examples: t.Examples,
			Error:    t.Error,
		}
	}
	return rep
}
