// Package refine applies user feedback to a generated post, keeping the
// hook, the trend tie-in and the company voice intact.
package refine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trendjack/core/internal/modules/pipeline/history"
	"github.com/trendjack/core/internal/modules/processing/llm"
	"github.com/trendjack/core/internal/modules/processing/voice"
	"go.uber.org/zap"
)

var ErrEmptyRequest = errors.New("refinement request is empty")

// Refinement is one applied user request.
type Refinement struct {
	Request   string    `json:"request"`
	Changes   []string  `json:"changes_made"`
	Preserved []string  `json:"preserved_elements"`
	Reasoning string    `json:"reasoning"`
	Timestamp time.Time `json:"timestamp"`
}

// PostContext is the refinable state of one generated post.
type PostContext struct {
	TrendingTopic    string           `json:"trending_topic"`
	BusinessTopic    string           `json:"business_topic"`
	ViralHook        string           `json:"viral_hook"`
	OriginalApproach string           `json:"original_approach"`
	VoiceProfile     voice.Profile    `json:"voice_profile"`
	OriginalPost     string           `json:"original_post"`
	CurrentPost      string           `json:"current_post"`
	Refinements      []Refinement     `json:"refinement_history"`
	History          *history.History `json:"conversation_history"`
}

// NewPostContext starts a context whose current post is the final post.
func NewPostContext(trendingTopic, businessTopic, hook, approach string, profile voice.Profile, finalPost string, h *history.History) *PostContext {
	if h == nil {
		h = &history.History{}
	}
	return &PostContext{
		TrendingTopic:    trendingTopic,
		BusinessTopic:    businessTopic,
		ViralHook:        hook,
		OriginalApproach: approach,
		VoiceProfile:     profile,
		OriginalPost:     finalPost,
		CurrentPost:      finalPost,
		Refinements:      []Refinement{},
		History:          h,
	}
}

// Result is the outcome of one refinement.
type Result struct {
	RefinedPost       string   `json:"refined_post"`
	Changes           []string `json:"changes_made"`
	Preserved         []string `json:"preserved_elements"`
	Reasoning         string   `json:"refinement_reasoning"`
	ContextReferences []string `json:"context_references_used"`
}

// Constraints lists what a refinement must keep.
func Constraints(pc *PostContext) string {
	hook := []rune(pc.ViralHook)
	if len(hook) > 50 {
		hook = hook[:50]
	}
	return fmt.Sprintf(`CRITICAL CONSTRAINTS - MUST BE PRESERVED:
1. Maintain the viral hook opening: "%s..."
2. Preserve trendjacking connection to: %s
3. Keep business connection to: %s
4. Maintain company voice characteristics from voice profile
5. Keep professional LinkedIn tone and credibility
6. Preserve the %s approach structure

REFINEMENT FLEXIBILITY:
- Adjust wording, tone, emphasis within constraints
- Reorganize content structure if requested
- Add or modify details as requested
- Change hashtags, formatting, or style elements`,
		string(hook), pc.TrendingTopic, pc.BusinessTopic, pc.OriginalApproach)
}

type Refiner struct {
	client llm.Client
	logger *zap.Logger
}

func NewRefiner(client llm.Client, logger *zap.Logger) *Refiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refiner{client: client, logger: logger.Named("Refiner")}
}

type refineOutput struct {
	RefinedPost       llm.FlexString  `json:"refined_post"`
	Changes           llm.FlexStrings `json:"changes_made"`
	Preserved         llm.FlexStrings `json:"preserved_elements"`
	Reasoning         llm.FlexString  `json:"refinement_reasoning"`
	ContextReferences llm.FlexStrings `json:"context_references_used"`
}

// Refine rewrites pc.CurrentPost according to request. On success pc is
// updated in place: the current post, the refinement list and the history.
func (r *Refiner) Refine(ctx context.Context, pc *PostContext, request string) (Result, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return Result{}, ErrEmptyRequest
	}
	if r.client == nil {
		return Result{}, llm.ErrNoLLMKey
	}
	if pc.History == nil {
		pc.History = &history.History{}
	}

	profileJSON, err := json.Marshal(pc.VoiceProfile)
	if err != nil {
		return Result{}, err
	}

	var out refineOutput
	err = llm.CompleteJSON(ctx, r.client, llm.Request{
		System: refineSystemPrompt,
		Prompt: buildRefinePrompt(pc, request, string(profileJSON), Constraints(pc), pc.History.Text()),
	}, &out)
	if err != nil {
		return Result{}, fmt.Errorf("refine post: %w", err)
	}
	if out.RefinedPost.String() == "" {
		return Result{}, fmt.Errorf("refine post: %w", llm.ErrEmptyResponse)
	}

	res := Result{
		RefinedPost:       out.RefinedPost.String(),
		Changes:           orEmpty(out.Changes),
		Preserved:         orEmpty(out.Preserved),
		Reasoning:         out.Reasoning.String(),
		ContextReferences: orEmpty(out.ContextReferences),
	}

	pc.History.UserRefinement(request, pc.CurrentPost, res.RefinedPost, res.Changes)
	pc.CurrentPost = res.RefinedPost
	pc.Refinements = append(pc.Refinements, Refinement{
		Request:   request,
		Changes:   res.Changes,
		Preserved: res.Preserved,
		Reasoning: res.Reasoning,
		Timestamp: time.Now(),
	})

	r.logger.Info("post refined",
		zap.Int("changes", len(res.Changes)),
		zap.Int("preserved", len(res.Preserved)),
		zap.Int("references", len(res.ContextReferences)),
		zap.Int("refinements", len(pc.Refinements)))
	return res, nil
}

// Reset restores the original post and drops every refinement.
func Reset(pc *PostContext) {
	pc.CurrentPost = pc.OriginalPost
	pc.Refinements = []Refinement{}
	if pc.History != nil {
		pc.History = pc.History.WithoutRefinements()
	}
}

func orEmpty(list llm.FlexStrings) []string {
	if list == nil {
		return []string{}
	}
	return list
}
