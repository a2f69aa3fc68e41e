package trend

import (
	"strings"
)

const (
	maxThemes            = 10
	themesPerURL         = 3
	highOpportunityScore = 0.7
	defaultTopic         = "Trending topic analysis"
)

// Summary aggregates the per-URL results.
type Summary struct {
	Successful         int      `json:"successful_extractions"`
	Failed             int      `json:"failed_extractions"`
	Total              int      `json:"total_urls"`
	TrendingThemes     []string `json:"trending_themes"`
	ViralElements      []string `json:"viral_elements"`
	AverageBrandScore  float64  `json:"average_brand_opportunity"`
	HighOpportunityURL int      `json:"high_opportunity_count"`
}

// Analysis is the trend stage output consumed by the rest of the pipeline.
type Analysis struct {
	TrendContext string             `json:"trend_context"`
	PrimaryTopic string             `json:"primary_topic"`
	Contents     []ExtractedContent `json:"contents"`
	Summary      Summary            `json:"summary"`
}

// NewAnalysis bundles contents with their summary and primary topic.
func NewAnalysis(contents []ExtractedContent, trendContext string, urls []string) Analysis {
	return Analysis{
		TrendContext: strings.TrimSpace(trendContext),
		PrimaryTopic: PrimaryTopic(contents, trendContext, urls),
		Contents:     contents,
		Summary:      Summarize(contents),
	}
}

// Summarize counts outcomes and collects deduplicated themes and viral
// elements in first-seen order.
func Summarize(contents []ExtractedContent) Summary {
	s := Summary{
		Total:          len(contents),
		TrendingThemes: []string{},
		ViralElements:  []string{},
	}
	var (
		scoreSum   float64
		scoreCount int
	)
	themes := newOrderedSet(maxThemes)
	elements := newOrderedSet(maxThemes)
	for _, c := range contents {
		if !c.Success {
			s.Failed++
			continue
		}
		s.Successful++
		for i, phrase := range c.KeyPhrases {
			if i == themesPerURL {
				break
			}
			themes.add(phrase)
		}
		if strings.TrimSpace(c.TextContent) == "" {
			continue
		}
		scoreSum += c.BrandScore
		scoreCount++
		if c.BrandScore > highOpportunityScore {
			s.HighOpportunityURL++
		}
		for _, e := range c.ViralElements {
			elements.add(e)
		}
	}
	s.TrendingThemes = themes.items
	s.ViralElements = elements.items
	if scoreCount > 0 {
		s.AverageBrandScore = scoreSum / float64(scoreCount)
	} else {
		s.AverageBrandScore = 0.5
	}
	return s
}

// PrimaryTopic picks the trend the posts should ride. A user supplied
// context always wins.
func PrimaryTopic(contents []ExtractedContent, trendContext string, urls []string) string {
	if tc := strings.TrimSpace(trendContext); tc != "" {
		return tc
	}
	for _, c := range contents {
		if !c.Success {
			continue
		}
		if len(c.KeyPhrases) > 0 {
			n := len(c.KeyPhrases)
			if n > 4 {
				n = 4
			}
			return strings.Join(c.KeyPhrases[:n], ", ")
		}
		if c.TextContent != "" {
			lines := strings.Split(c.TextContent, "\n")
			if len(lines) > 5 {
				lines = lines[:5]
			}
			for _, line := range lines {
				line = strings.TrimSpace(line)
				if len(line) > 10 && len(line) < 150 {
					return line
				}
			}
		}
	}
	if len(urls) > 0 {
		return TopicFromURL(urls[0])
	}
	return defaultTopic
}

type orderedSet struct {
	limit int
	seen  map[string]struct{}
	items []string
}

func newOrderedSet(limit int) *orderedSet {
	return &orderedSet{limit: limit, seen: map[string]struct{}{}, items: []string{}}
}

func (s *orderedSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" || len(s.items) >= s.limit {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
