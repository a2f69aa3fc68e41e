package brand

import "strings"

// differentiatedTactics are the angles a B2B post can take that consumer
// brands rarely use.
var differentiatedTactics = []string{
	"educational_content", "behind_scenes", "customer_stories",
	"product_demo", "industry_insight", "contrarian_take",
}

type Strategy struct {
	PrimaryTactic              string   `json:"primary_tactic"`
	AlternativeTactics         []string `json:"alternative_tactics"`
	Timing                     string   `json:"timing_strategy"`
	ContentFormat              string   `json:"content_format"`
	DifferentiationOpportunity bool     `json:"differentiation_opportunity"`
	RiskLevel                  string   `json:"risk_level"`
}

// LandscapeReport describes how crowded a trend already is.
type LandscapeReport struct {
	CompetitionLevel  string   `json:"competition_level"`
	CompetingBrands   int      `json:"total_competing_brands"`
	DominantTactics   []string `json:"dominant_tactics"`
	Recommendation    string   `json:"strategic_recommendation"`
	OpportunityWindow string   `json:"opportunity_window"`
	Strategy          Strategy `json:"response_strategy"`
}

// Landscape rates the competition in resp and proposes a response strategy.
// contentType is the trend's content type (video_content, image_meme, ...).
func Landscape(resp Responses, contentType string) LandscapeReport {
	total := len(resp.Posts)
	report := LandscapeReport{CompetingBrands: total, DominantTactics: []string{}}

	switch {
	case total > 8:
		report.CompetitionLevel = "Very High"
		report.Recommendation = "Focus on unique angle or skip this trend"
	case total > 5:
		report.CompetitionLevel = "High"
		report.Recommendation = "Need creative differentiation"
	case total > 2:
		report.CompetitionLevel = "Medium"
		report.Recommendation = "Good opportunity with proper positioning"
	default:
		report.CompetitionLevel = "Low"
		report.Recommendation = "Excellent first-mover opportunity"
	}
	report.OpportunityWindow = "good"
	if report.CompetitionLevel == "High" || report.CompetitionLevel == "Very High" {
		report.OpportunityWindow = "narrow"
	}

	used := map[string]struct{}{}
	for _, p := range resp.Posts {
		if _, ok := used[p.TacticUsed]; !ok {
			used[p.TacticUsed] = struct{}{}
			report.DominantTactics = append(report.DominantTactics, p.TacticUsed)
		}
	}

	unused := make([]string, 0, len(differentiatedTactics))
	for _, t := range differentiatedTactics {
		if _, ok := used[t]; !ok {
			unused = append(unused, t)
		}
	}

	strategy := Strategy{
		PrimaryTactic:              "contrarian_take",
		AlternativeTactics:         []string{},
		DifferentiationOpportunity: len(unused) > 0,
		RiskLevel:                  "low",
	}
	if len(unused) > 0 {
		strategy.PrimaryTactic = unused[0]
	}
	if len(unused) > 1 {
		end := 3
		if end > len(unused) {
			end = len(unused)
		}
		strategy.AlternativeTactics = append(strategy.AlternativeTactics, unused[1:end]...)
	}
	switch {
	case total < 3:
		strategy.Timing = "Act quickly - first mover advantage available"
	case total < 6:
		strategy.Timing = "Move fast with differentiated angle"
	default:
		strategy.Timing = "Consider waiting for next trend cycle"
	}
	switch strings.ToLower(contentType) {
	case "image_meme", "meme_page":
		strategy.ContentFormat = "Visual meme adaptation or parody"
	case "video_content":
		strategy.ContentFormat = "Video response or reaction content"
	default:
		strategy.ContentFormat = "Text-based thought leadership post"
	}
	if total >= 5 {
		strategy.RiskLevel = "medium"
	}
	report.Strategy = strategy
	return report
}
