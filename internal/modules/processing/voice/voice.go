// Package voice extracts a company's speaking style from a transcript and
// rewrites generated posts in that style.
package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/trendjack/core/internal/modules/processing/llm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Profile captures how a company talks.
type Profile struct {
	CommunicationStyle      string   `json:"communication_style"`
	VocabularyPreferences   []string `json:"vocabulary_preferences"`
	SentenceStructure       string   `json:"sentence_structure"`
	PersonalityTraits       []string `json:"personality_traits"`
	ProfessionalToneMarkers []string `json:"professional_tone_markers"`
	SpeakingPatterns        []string `json:"speaking_patterns"`
	ExpertiseDemonstration  string   `json:"expertise_demonstration"`
	EngagementApproach      string   `json:"engagement_approach"`
	AnalysisReasoning       string   `json:"analysis_reasoning"`
}

// Draft is a generated post before voice adaptation.
type Draft struct {
	Approach string `json:"approach"`
	Content  string `json:"content"`
	Hashtags string `json:"hashtags"`
	Hook     string `json:"viral_hook"`
}

// AdaptRequest carries everything needed to rewrite a batch of drafts.
type AdaptRequest struct {
	Drafts      []Draft
	Profile     Profile
	Transcript  string
	CoreMessage string
	Topic       string
	Hooks       []string
}

// AdaptedPost is a draft rewritten in the company's voice.
type AdaptedPost struct {
	Number                    int      `json:"post_number"`
	OriginalApproach          string   `json:"original_approach"`
	OriginalContent           string   `json:"original_content"`
	OriginalHashtags          string   `json:"original_hashtags"`
	OriginalHook              string   `json:"original_viral_hook"`
	Content                   string   `json:"voice_adapted_content"`
	Changes                   []string `json:"voice_changes_made"`
	TrendjackingPreserved     string   `json:"trendjacking_preserved"`
	HookPreserved             string   `json:"viral_hook_preserved"`
	AuthenticityScore         float64  `json:"authenticity_score"`
	ProfessionalismMaintained bool     `json:"professionalism_maintained"`
	Reasoning                 string   `json:"adaptation_reasoning"`
	Failed                    bool     `json:"failed,omitempty"`
}

// Adapter runs profile extraction and post adaptation.
type Adapter struct {
	client      llm.Client
	concurrency int
	logger      *zap.Logger
}

func NewAdapter(client llm.Client, concurrency int, logger *zap.Logger) *Adapter {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{client: client, concurrency: concurrency, logger: logger.Named("Voice")}
}

// CompanyContext formats the context string passed to profile extraction.
func CompanyContext(companyType, goal string) string {
	return companyType + " - " + goal
}

type profileOutput struct {
	CommunicationStyle      llm.FlexString  `json:"communication_style"`
	VocabularyPreferences   llm.FlexStrings `json:"vocabulary_preferences"`
	SentenceStructure       llm.FlexString  `json:"sentence_structure"`
	PersonalityTraits       llm.FlexStrings `json:"personality_traits"`
	ProfessionalToneMarkers llm.FlexStrings `json:"professional_tone_markers"`
	SpeakingPatterns        llm.FlexStrings `json:"speaking_patterns"`
	ExpertiseDemonstration  llm.FlexString  `json:"expertise_demonstration"`
	EngagementApproach      llm.FlexString  `json:"engagement_approach"`
	Reasoning               llm.FlexString  `json:"voice_analysis_reasoning"`
}

// ExtractProfile analyses the transcript's voice.
func (a *Adapter) ExtractProfile(ctx context.Context, transcript, companyContext string) (Profile, error) {
	if strings.TrimSpace(transcript) == "" {
		return Profile{}, fmt.Errorf("extract voice profile: empty transcript")
	}
	if a.client == nil {
		return Profile{}, llm.ErrNoLLMKey
	}
	var out profileOutput
	err := llm.CompleteJSON(ctx, a.client, llm.Request{
		System: profileSystemPrompt,
		Prompt: buildProfilePrompt(companyContext, transcript),
	}, &out)
	if err != nil {
		return Profile{}, fmt.Errorf("extract voice profile: %w", err)
	}
	p := Profile{
		CommunicationStyle:      out.CommunicationStyle.String(),
		VocabularyPreferences:   nonNil(out.VocabularyPreferences),
		SentenceStructure:       out.SentenceStructure.String(),
		PersonalityTraits:       nonNil(out.PersonalityTraits),
		ProfessionalToneMarkers: nonNil(out.ProfessionalToneMarkers),
		SpeakingPatterns:        nonNil(out.SpeakingPatterns),
		ExpertiseDemonstration:  out.ExpertiseDemonstration.String(),
		EngagementApproach:      out.EngagementApproach.String(),
		AnalysisReasoning:       out.Reasoning.String(),
	}
	a.logger.Info("voice profile extracted",
		zap.String("style", p.CommunicationStyle),
		zap.Int("vocabulary", len(p.VocabularyPreferences)),
		zap.Int("traits", len(p.PersonalityTraits)))
	return p, nil
}

type adaptOutput struct {
	Post                      llm.FlexString  `json:"voice_adapted_post"`
	Changes                   llm.FlexStrings `json:"voice_changes_made"`
	TrendjackingPreserved     llm.FlexString  `json:"trendjacking_preserved"`
	HookPreserved             llm.FlexString  `json:"viral_hook_preserved"`
	AuthenticityScore         llm.FlexFloat   `json:"authenticity_score"`
	ProfessionalismMaintained llm.FlexBool    `json:"professionalism_maintained"`
	Reasoning                 llm.FlexString  `json:"adaptation_reasoning"`
}

// Adapt rewrites every draft. Drafts are processed concurrently and results
// keep the input order. A draft whose rewrite fails keeps its original text.
func (a *Adapter) Adapt(ctx context.Context, req AdaptRequest) ([]AdaptedPost, error) {
	profileJSON, err := json.Marshal(req.Profile)
	if err != nil {
		return nil, err
	}
	examples := TranscriptExamples(req.Transcript, defaultExampleCount)
	strategy := Strategy(req.Topic)
	requirements := ProfessionalRequirements(req.Topic)

	out := make([]AdaptedPost, len(req.Drafts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, d := range req.Drafts {
		i, d := i, d
		g.Go(func() error {
			hook := d.Hook
			if i < len(req.Hooks) {
				hook = req.Hooks[i]
			}
			out[i] = a.adaptOne(gctx, i+1, d, hook, req, string(profileJSON), examples, strategy, requirements)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Adapter) adaptOne(ctx context.Context, number int, d Draft, hook string, req AdaptRequest, profileJSON, examples, strategy, requirements string) AdaptedPost {
	post := AdaptedPost{
		Number:           number,
		OriginalApproach: d.Approach,
		OriginalContent:  d.Content,
		OriginalHashtags: d.Hashtags,
		OriginalHook:     hook,
	}

	var out adaptOutput
	err := llm.CompleteJSON(ctx, a.client, llm.Request{
		System: adaptSystemPrompt,
		Prompt: buildAdaptPrompt(d, hook, req, profileJSON, examples, strategy, requirements),
	}, &out)
	if err == nil && out.Post.String() == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		a.logger.Warn("voice adaptation failed, keeping original", zap.Int("post", number), zap.Error(err))
		post.Content = d.Content
		post.Changes = []string{}
		post.Reasoning = "voice adaptation failed: " + err.Error()
		post.Failed = true
		return post
	}

	post.Content = out.Post.String()
	post.Changes = nonNil(out.Changes)
	post.TrendjackingPreserved = out.TrendjackingPreserved.String()
	post.HookPreserved = out.HookPreserved.String()
	post.AuthenticityScore = out.AuthenticityScore.Clamp01()
	post.ProfessionalismMaintained = bool(out.ProfessionalismMaintained)
	post.Reasoning = out.Reasoning.String()
	return post
}

const defaultExampleCount = 5

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// TranscriptExamples picks up to max evenly spaced sentences longer than 20
// characters.
func TranscriptExamples(transcript string, max int) string {
	var sentences []string
	for _, s := range sentenceSplit.Split(transcript, -1) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > 20 {
			sentences = append(sentences, s)
		}
	}

	selected := sentences
	if max > 0 && len(sentences) > max {
		step := len(sentences) / max
		selected = make([]string, 0, max)
		for i := 0; i < max; i++ {
			selected = append(selected, sentences[i*step])
		}
	}

	lines := make([]string, len(selected))
	for i, s := range selected {
		lines[i] = "• " + s
	}
	return "Representative speaking examples:\n" + strings.Join(lines, "\n")
}

// Strategy describes how the trending topic should be used in a post.
func Strategy(topic string) string {
	lower := strings.ToLower(topic)
	switch {
	case strings.Contains(lower, "engagement") || strings.Contains(lower, "taylor swift"):
		return "Use 'engagement' as a double meaning - both the romantic engagement and technical engagement/commitment to production AI systems. Maintain the clever wordplay while keeping it business-focused."
	case strings.Contains(lower, "logo") || strings.Contains(lower, "rebrand") || strings.Contains(lower, "cracker barrel"):
		return "Use brand identity/change themes to discuss AI system evolution and transformation. Connect visual/brand changes to technical architecture changes."
	case strings.Contains(lower, "controversy") || strings.Contains(lower, "backlash"):
		return "Use the concept of 'challenging decisions' or 'bold moves' to discuss making tough technical choices in AI implementation."
	case strings.Contains(lower, "super bowl") || strings.Contains(lower, "sports"):
		return "Use sports metaphors like 'game-changing,' 'winning strategy,' 'championship-level performance' for AI systems."
	case strings.Contains(lower, "movie") || strings.Contains(lower, "trailer") || strings.Contains(lower, "entertainment"):
		return "Use entertainment/storytelling concepts like 'plot development,' 'behind the scenes,' 'production value' for AI development."
	default:
		return fmt.Sprintf("Create strategic wordplay, clever analogy, or witty professional connection between '%s' and AI/technology concepts while maintaining business relevance.", topic)
	}
}

// ProfessionalRequirements lists the LinkedIn rules an adapted post must keep.
func ProfessionalRequirements(topic string) string {
	return fmt.Sprintf(`- Maintain professional LinkedIn tone and credibility
- PRESERVE the strategic trendjacking of '%s' - do NOT remove the pop culture reference
- CRITICALLY IMPORTANT: PRESERVE the viral hook as the opening line - adapt its style to match voice but keep the core hook structure
- Use the pop culture reference strategically (wordplay, clever analogy, witty connection) but keep it professional
- Remove any overly casual language while keeping BOTH the viral hook AND trendjacking elements
- Ensure industry-appropriate terminology and expertise demonstration
- Keep engaging but business-focused messaging with strategic pop culture hook
- Preserve authentic voice while elevating professionalism AND maintaining trendjacking value AND viral hook impact
- The viral hook should remain attention-grabbing but professional`, topic)
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
