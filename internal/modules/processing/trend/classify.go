// Package trend scrapes trending URLs and turns them into themes, viral
// elements and a brand opportunity score.
package trend

import (
	"net/url"
	"path"
	"strings"
)

// Content types.
const (
	ContentMeme   = "meme_page"
	ContentSocial = "social_media"
	ContentNews   = "news_article"
	ContentVideo  = "video_content"
	ContentImage  = "image_hosting"
	ContentWeb    = "web_page"
	ContentError  = "error"
)

// Media kinds derived from the URL path.
const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaPage  = "page"
)

// Classification describes what a URL most likely points at.
type Classification struct {
	ContentType string `json:"content_type"`
	Platform    string `json:"platform"`
	Media       string `json:"media"`
}

type platformRule struct {
	name  string
	hosts []string
}

var platformRules = []platformRule{
	{"twitter", []string{"twitter.com", "x.com"}},
	{"instagram", []string{"instagram.com"}},
	{"tiktok", []string{"tiktok.com"}},
	{"youtube", []string{"youtube.com", "youtu.be"}},
	{"reddit", []string{"reddit.com"}},
	{"linkedin", []string{"linkedin.com"}},
	{"facebook", []string{"facebook.com", "fb.com"}},
	{"threads", []string{"threads.net"}},
	{"news_sites", []string{"cnn.com", "bbc.com", "nytimes.com", "washingtonpost.com", "reuters.com", "ap.org", "npr.org", "nbcnews.com"}},
	{"blog_platforms", []string{"medium.com", "substack.com", "wordpress.com", "blogger.com"}},
	{"image_hosts", []string{"imgur.com", "giphy.com", "tenor.com", "memegenerator.net"}},
}

var (
	imageExtensions = map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".svg": {}}
	videoExtensions = map[string]struct{}{".mp4": {}, ".webm": {}, ".mov": {}, ".avi": {}, ".mkv": {}}
)

// Classify inspects rawURL without fetching it.
func Classify(rawURL string) Classification {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	host, urlPath := lower, ""
	if u, err := url.Parse(lower); err == nil && u.Host != "" {
		host, urlPath = u.Hostname(), u.Path
	}

	c := Classification{ContentType: contentTypeOf(lower), Platform: "web", Media: MediaPage}
	for _, rule := range platformRules {
		if hostMatches(host, rule.hosts) {
			c.Platform = rule.name
			break
		}
	}
	ext := path.Ext(urlPath)
	if _, ok := imageExtensions[ext]; ok {
		c.Media = MediaImage
	} else if _, ok := videoExtensions[ext]; ok {
		c.Media = MediaVideo
	}
	return c
}

func contentTypeOf(lower string) string {
	switch {
	case strings.Contains(lower, "knowyourmeme.com"):
		return ContentMeme
	case containsAny(lower, "twitter.com", "x.com", "instagram.com", "facebook.com", "tiktok.com"):
		return ContentSocial
	case containsAny(lower, "bbc.com", "cnn.com", "nytimes.com", "reuters.com"):
		return ContentNews
	case containsAny(lower, "youtube.com", "youtu.be"):
		return ContentVideo
	case strings.Contains(lower, "imgur.com"):
		return ContentImage
	default:
		return ContentWeb
	}
}

// TopicFromURL describes the trend a URL most likely belongs to.
func TopicFromURL(rawURL string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "knowyourmeme.com"):
		return "Viral internet meme gaining mainstream attention"
	case containsAny(lower, "bbc", "cnn", "nytimes", "reuters"):
		return "Breaking news story trending across social media"
	case containsAny(lower, "twitter.com", "x.com"):
		return "Viral Twitter post sparking widespread discussion"
	case strings.Contains(lower, "instagram.com"):
		return "Instagram content going viral across platforms"
	case strings.Contains(lower, "tiktok.com"):
		return "TikTok trend spreading rapidly with millions of views"
	default:
		return "Trending online content gaining viral attention"
	}
}

func hostMatches(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
