package brand

// Example is a brand post fed to the concise generator as a style reference.
type Example struct {
	Brand      string `json:"brand"`
	Content    string `json:"content"`
	Tactic     string `json:"tactic"`
	Engagement int    `json:"engagement"`
}

// FallbackExamples are used when no simulated posts exist.
func FallbackExamples() []Example {
	return []Example{
		{Brand: "Nike", Content: "Just do it.", Tactic: "motivational", Engagement: 1000},
		{Brand: "Wendys", Content: "Spicy take incoming.", Tactic: "sassy", Engagement: 500},
	}
}

// Examples returns the first n simulated posts as examples.
func Examples(resp *Responses, n int) []Example {
	if resp == nil || len(resp.Posts) == 0 || n <= 0 {
		return FallbackExamples()
	}
	if n > len(resp.Posts) {
		n = len(resp.Posts)
	}
	out := make([]Example, 0, n)
	for _, p := range resp.Posts[:n] {
		out = append(out, Example{
			Brand:      p.Username,
			Content:    p.Content,
			Tactic:     p.TacticUsed,
			Engagement: p.EngagementTotal,
		})
	}
	return out
}
