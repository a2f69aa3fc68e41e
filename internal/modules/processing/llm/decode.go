package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const jsonInstruction = "Respond with a single JSON object only. Do not wrap it in markdown fences and do not add commentary."

// CompleteJSON runs req and decodes the model's JSON answer into out.
func CompleteJSON(ctx context.Context, c Client, req Request, out interface{}) error {
	if strings.TrimSpace(req.System) == "" {
		req.System = jsonInstruction
	} else {
		req.System = strings.TrimSpace(req.System) + "\n\n" + jsonInstruction
	}
	raw, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	if err := UnmarshalJSON(raw, out); err != nil {
		return fmt.Errorf("%w: %s", err, Truncate(strings.TrimSpace(raw), 200))
	}
	return nil
}

// stripFence removes a surrounding ``` block, with or without a language tag.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if body, ok := strings.CutPrefix(s, "```"); ok {
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
			body = body[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}
	return strings.TrimSpace(s)
}

// UnmarshalJSON decodes model output, tolerating markdown fences and prose
// around the outermost object.
func UnmarshalJSON(raw string, out interface{}) error {
	cleaned := stripFence(raw)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("invalid JSON response from AI")
}

// Truncate shortens text to maxLen runes, appending "..." when cut.
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

// FlexString accepts strings, numbers, booleans and lists.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
	case '[':
		var list FlexStrings
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*f = FlexString(strings.Join(list, ", "))
	default:
		*f = FlexString(strings.TrimSpace(string(data)))
	}
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexStrings accepts a JSON list, or a string split on newlines or commas.
type FlexStrings []string

var bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = FlexStrings{}
		return nil
	}
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(FlexStrings, 0, len(items))
		for _, item := range items {
			var s FlexString
			if err := json.Unmarshal(item, &s); err != nil {
				return err
			}
			if v := strings.TrimSpace(string(s)); v != "" {
				out = append(out, v)
			}
		}
		*f = out
		return nil
	}

	var s FlexString
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = SplitList(string(s))
	return nil
}

// SplitList splits free text into items on newlines, or on commas when the
// text is a single line. Bullet markers are stripped.
func SplitList(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}
	var parts []string
	if strings.Contains(text, "\n") {
		parts = strings.Split(text, "\n")
	} else {
		parts = strings.Split(text, ",")
	}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		v := strings.TrimSpace(bulletPrefix.ReplaceAllString(part, ""))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FlexFloat accepts numbers and numeric strings such as "0.8" or "80%".
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] != '"' {
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = FlexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	if percent {
		v /= 100
	}
	*f = FlexFloat(v)
	return nil
}

// Clamp01 limits v to [0,1].
func (f FlexFloat) Clamp01() float64 {
	v := float64(f)
	if v > 1 && v <= 100 {
		v /= 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FlexBool accepts booleans and strings such as "yes", "true" or "1".
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch strings.ToLower(strings.Trim(string(data), `"`)) {
	case "true", "yes", "y", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}
