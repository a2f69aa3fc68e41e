package markdown

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter renders meta as a YAML header block.
func frontMatter(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	yamlText, err := yaml.Marshal(meta)
	if err != nil {
		return ""
	}
	return "---\n" + strings.TrimSpace(string(yamlText)) + "\n---\n\n"
}

// stripFrontMatter drops a leading YAML header block.
func stripFrontMatter(text string) string {
	if !strings.HasPrefix(text, "---\n") {
		return text
	}
	end := strings.Index(text[4:], "\n---\n")
	if end < 0 {
		return text
	}
	return text[4+end+5:]
}

// tableCell makes text safe inside a GFM table cell.
func tableCell(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "|", `\|`)
	text = strings.ReplaceAll(text, "\r\n", "<br/>")
	return strings.ReplaceAll(text, "\n", "<br/>")
}

// quote prefixes every line with "> ".
func quote(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("> "+line, " ")
	}
	return strings.Join(lines, "\n")
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func joinNonEmpty(items []string, sep string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, sep)
}

// Filename builds a download filename for an exported report.
func Filename(title, ext string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "trendjack-report"
	}
	name = strings.ToLower(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ', r == '/', r == '\\', r == '.':
			return '-'
		default:
			return -1
		}
	}, name)
	return name + "." + strings.TrimPrefix(ext, ".")
}
