// Package markdown renders generation runs as markdown reports and HTML
// documents.
package markdown

import (
	"fmt"
	"strings"
	"time"

	"github.com/trendjack/core/internal/modules/processing/brand"
	"github.com/trendjack/core/internal/modules/processing/generator"
	"github.com/trendjack/core/internal/modules/processing/trend"
	"github.com/trendjack/core/internal/modules/processing/voice"
)

// TopicReport is the output generated for one business topic.
type TopicReport struct {
	Topic    string
	Posts    []voice.AdaptedPost
	Concise  *generator.ConciseResult
	Examples []brand.Example
	Error    string
}

// Report is everything a run produced.
type Report struct {
	Title       string
	CompanyType string
	Goal        string
	CreatedAt   time.Time
	Trend       *trend.Analysis
	Profile     *voice.Profile
	Topics      []TopicReport
}

// RunMarkdown renders a run report.
func RunMarkdown(r Report) string {
	var b strings.Builder

	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = "Trendjacking Results"
	}
	meta := map[string]any{"title": title}
	if !r.CreatedAt.IsZero() {
		meta["date"] = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	if r.CompanyType != "" {
		meta["company_type"] = r.CompanyType
	}
	if r.Trend != nil && r.Trend.PrimaryTopic != "" {
		meta["trending_topic"] = r.Trend.PrimaryTopic
	}
	b.WriteString(frontMatter(meta))
	fmt.Fprintf(&b, "# %s\n\n", title)
	if r.Goal != "" {
		fmt.Fprintf(&b, "**Promotional goal:** %s\n\n", r.Goal)
	}

	if r.Trend != nil {
		writeTrend(&b, r.Trend)
	}
	if r.Profile != nil {
		writeProfile(&b, r.Profile)
	}
	for _, t := range r.Topics {
		writeTopic(&b, t)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeTrend(b *strings.Builder, a *trend.Analysis) {
	b.WriteString("## Trend Analysis\n\n")
	fmt.Fprintf(b, "**Primary trending topic:** %s\n\n", a.PrimaryTopic)
	s := a.Summary
	fmt.Fprintf(b, "- URLs analyzed: %d (%d successful, %d failed)\n", s.Total, s.Successful, s.Failed)
	fmt.Fprintf(b, "- Average brand opportunity: %s\n", percent(s.AverageBrandScore))
	fmt.Fprintf(b, "- High opportunity URLs: %d\n", s.HighOpportunityURL)
	if len(s.TrendingThemes) > 0 {
		fmt.Fprintf(b, "- Trending themes: %s\n", strings.Join(s.TrendingThemes, ", "))
	}
	if len(s.ViralElements) > 0 {
		fmt.Fprintf(b, "- Viral elements: %s\n", strings.Join(s.ViralElements, ", "))
	}
	b.WriteString("\n")

	if len(a.Contents) == 0 {
		return
	}
	b.WriteString("| URL | Type | Platform | Brand score | Status |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, c := range a.Contents {
		status := "ok"
		if !c.Success {
			status = "failed: " + c.Error
		}
		fmt.Fprintf(b, "| %s | %s | %s | %.2f | %s |\n",
			tableCell(c.URL), tableCell(c.ContentType), tableCell(c.Platform), c.BrandScore, tableCell(status))
	}
	b.WriteString("\n")
}

func writeProfile(b *strings.Builder, p *voice.Profile) {
	b.WriteString("## Company Voice\n\n")
	fmt.Fprintf(b, "- **Communication style:** %s\n", p.CommunicationStyle)
	if len(p.PersonalityTraits) > 0 {
		fmt.Fprintf(b, "- **Personality traits:** %s\n", joinNonEmpty(p.PersonalityTraits, ", "))
	}
	if len(p.VocabularyPreferences) > 0 {
		vocab := p.VocabularyPreferences
		if len(vocab) > 6 {
			vocab = vocab[:6]
		}
		fmt.Fprintf(b, "- **Key vocabulary:** %s\n", joinNonEmpty(vocab, ", "))
	}
	b.WriteString("\n")
}

func writeTopic(b *strings.Builder, t TopicReport) {
	fmt.Fprintf(b, "## %s\n\n", t.Topic)
	if t.Error != "" {
		fmt.Fprintf(b, "> Generation failed: %s\n\n", t.Error)
	}

	if len(t.Posts) > 0 {
		b.WriteString("### Voice-Adapted Posts\n\n")
		for _, p := range t.Posts {
			fmt.Fprintf(b, "#### Post %d: %s (%s authentic)\n\n", p.Number, p.OriginalApproach, percent(p.AuthenticityScore))
			if p.OriginalHook != "" {
				fmt.Fprintf(b, "%s\n\n", quote("**Hook:** "+p.OriginalHook))
			}
			fmt.Fprintf(b, "%s\n\n", strings.TrimSpace(p.Content))
			if p.OriginalHashtags != "" {
				fmt.Fprintf(b, "%s\n\n", p.OriginalHashtags)
			}
		}
	}

	if t.Concise != nil && len(t.Concise.Variations) > 0 {
		b.WriteString("### Viral Posts\n\n")
		b.WriteString("| Style | Post | Words |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, v := range t.Concise.Variations {
			fmt.Fprintf(b, "| %s | %s | %d |\n", tableCell(v.Type), tableCell(v.Content), v.WordCount)
		}
		b.WriteString("\n")
		if len(t.Concise.Hashtags) > 0 {
			tags := make([]string, 0, len(t.Concise.Hashtags))
			for _, tag := range t.Concise.Hashtags {
				tags = append(tags, "#"+strings.TrimPrefix(tag, "#"))
			}
			fmt.Fprintf(b, "**Suggested hashtags:** %s\n\n", strings.Join(tags, " "))
		}
		if reasoning := strings.TrimSpace(t.Concise.BestVersionReasoning); reasoning != "" {
			fmt.Fprintf(b, "**Best version:** %s\n\n", reasoning)
		}
	}

	if len(t.Examples) > 0 {
		b.WriteString("### Brand Examples\n\n")
		for _, ex := range t.Examples {
			fmt.Fprintf(b, "- **%s**: %q (%s, %d engagements)\n", ex.Brand, ex.Content, ex.Tactic, ex.Engagement)
		}
		b.WriteString("\n")
	}
}
