package brand

import (
	"fmt"
	"strings"
)

// Trend categories.
const (
	CategoryRealTime    = "real_time_event"
	CategoryViral       = "viral_content"
	CategoryCultural    = "cultural_moment"
	CategoryFashion     = "celebrity_fashion"
	CategoryMemeFormat  = "meme_format"
	CategoryControversy = "brand_controversy"
	CategoryPlatform    = "platform_trend"
	CategorySeasonal    = "seasonal_event"
)

const defaultLikelihood = 0.7

var responseLikelihood = map[string]float64{
	CategoryViral:       0.9,
	CategoryRealTime:    0.95,
	CategoryCultural:    0.8,
	CategoryFashion:     0.7,
	CategoryMemeFormat:  0.85,
	CategoryControversy: 0.6,
	CategoryPlatform:    0.75,
	CategorySeasonal:    0.8,
}

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{CategoryRealTime, []string{"breaking", "live", "outage", "emergency"}},
	{CategoryViral, []string{"viral", "meme", "challenge", "trending"}},
	{CategoryCultural, []string{"celebrity", "engagement", "wedding", "announcement"}},
	{CategoryFashion, []string{"fashion", "outfit", "style", "hat"}},
	{CategoryMemeFormat, []string{"meme format", "template", "little miss", "red flag"}},
	{CategoryControversy, []string{"controversy", "backlash", "criticism"}},
	{CategoryPlatform, []string{"tiktok", "instagram", "twitter", "dance", "audio"}},
}

// Categorize maps a trending topic to a category by keyword. Unknown topics
// are treated as viral content.
func Categorize(topic string) string {
	lower := strings.ToLower(topic)
	for _, rule := range categoryKeywords {
		for _, w := range rule.words {
			if strings.Contains(lower, w) {
				return rule.category
			}
		}
	}
	return CategoryViral
}

// ResponseLikelihood is the share of brands expected to react to a category.
func ResponseLikelihood(category string) float64 {
	if v, ok := responseLikelihood[category]; ok {
		return v
	}
	return defaultLikelihood
}

// DescribeTrend writes a context sentence for a topic when the caller has none.
func DescribeTrend(topic, category string) string {
	lower := strings.ToLower(topic)
	switch category {
	case CategoryViral:
		return fmt.Sprintf("Viral phenomenon where %s is spreading rapidly across social media platforms", lower)
	case CategoryRealTime:
		return fmt.Sprintf("Breaking news event: %s is happening now and capturing widespread attention", topic)
	case CategoryCultural:
		return fmt.Sprintf("Cultural moment where %s has captured public interest and conversation", lower)
	case CategoryFashion:
		return fmt.Sprintf("Fashion/style moment where %s has become a talking point", lower)
	case CategoryMemeFormat:
		return fmt.Sprintf("New meme format based on %s that's perfect for brand participation", lower)
	case CategoryControversy:
		return fmt.Sprintf("Controversial moment around %s that brands are carefully navigating", lower)
	case CategoryPlatform:
		return fmt.Sprintf("Platform-specific trend where %s is gaining traction", lower)
	case CategorySeasonal:
		return fmt.Sprintf("Seasonal/planned event where %s provides marketing opportunities", lower)
	default:
		return "Trending topic: " + topic
	}
}
