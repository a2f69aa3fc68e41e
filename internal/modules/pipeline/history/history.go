// Package history records the steps that produced a post so later
// refinements can be made with the full generation context.
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"time"
)

const (
	StepTrendAnalysis    = "Trend Analysis"
	StepViralHooks       = "Viral Hook Generation"
	StepPostGeneration   = "Post Generation"
	StepVoiceAdaptation  = "Voice Adaptation"
	StepUserRefinement   = "User Refinement"
	maxScalarRunes       = 200
	separatorWidth       = 60
	historyTextHeader    = "COMPLETE PIPELINE CONVERSATION HISTORY:\n\n"
	historyTimestampForm = time.RFC3339
)

// Step is one recorded pipeline stage. Steps are not mutated once added.
type Step struct {
	Timestamp time.Time              `json:"timestamp"`
	Name      string                 `json:"step"`
	Inputs    map[string]interface{} `json:"inputs"`
	Outputs   map[string]interface{} `json:"outputs"`
	Reasoning string                 `json:"reasoning"`
}

// History is an ordered list of steps.
type History struct {
	Steps []Step `json:"messages"`
}

// Add appends a step stamped with the current time.
func (h *History) Add(name string, inputs, outputs map[string]interface{}, reasoning string) {
	h.Steps = append(h.Steps, Step{
		Timestamp: time.Now(),
		Name:      name,
		Inputs:    inputs,
		Outputs:   outputs,
		Reasoning: reasoning,
	})
}

func (h *History) TrendAnalysis(urls []string, extracted interface{}, primaryTopic string) {
	h.Add(StepTrendAnalysis,
		map[string]interface{}{"trending_urls": urls},
		map[string]interface{}{"extracted_content": extracted, "primary_trending_topic": primaryTopic},
		"Analyzed trending URLs and extracted primary trending topic for trendjacking focus")
}

func (h *History) ViralHookGeneration(trendingTopic, businessTopic string, hooks []string) {
	named := make(map[string]string, len(hooks))
	for i, hook := range hooks {
		named[fmt.Sprintf("hook_%d", i+1)] = hook
	}
	h.Add(StepViralHooks,
		map[string]interface{}{"trending_topic": trendingTopic, "business_topic": businessTopic},
		map[string]interface{}{"hooks": named},
		"Generated 3 viral hooks using proven viral video patterns to create attention-grabbing openings")
}

func (h *History) PostGeneration(approach, hook, content, hashtags string) {
	h.Add(StepPostGeneration,
		map[string]interface{}{"approach": approach, "viral_hook": hook},
		map[string]interface{}{"content": content, "hashtags": hashtags},
		fmt.Sprintf("Generated %s style post using viral hook as opening line", approach))
}

func (h *History) VoiceAdaptation(original string, profile interface{}, adapted string, changes []string) {
	h.Add(StepVoiceAdaptation,
		map[string]interface{}{"original_post": original, "voice_profile": profile},
		map[string]interface{}{"adapted_post": adapted, "voice_changes": changes},
		"Adapted post to match company's authentic voice while preserving viral hook and trendjacking elements")
}

func (h *History) UserRefinement(request, previous, refined string, changes []string) {
	h.Add(StepUserRefinement,
		map[string]interface{}{"user_request": request, "previous_post": previous},
		map[string]interface{}{"refined_post": refined, "changes_made": changes},
		"Applied user-requested refinements while maintaining pipeline context and constraints")
}

// Len returns the number of steps.
func (h *History) Len() int { return len(h.Steps) }

// Clone returns a history with its own step slice.
func (h *History) Clone() *History {
	steps := make([]Step, len(h.Steps))
	copy(steps, h.Steps)
	return &History{Steps: steps}
}

// WithoutRefinements returns a copy with every user refinement step removed.
func (h *History) WithoutRefinements() *History {
	steps := make([]Step, 0, len(h.Steps))
	for _, s := range h.Steps {
		if s.Name != StepUserRefinement {
			steps = append(steps, s)
		}
	}
	return &History{Steps: steps}
}

// Text renders the history as the plain-text context given to the refiner.
func (h *History) Text() string {
	var b strings.Builder
	b.WriteString(historyTextHeader)
	for i, s := range h.Steps {
		fmt.Fprintf(&b, "=== STEP %d: %s ===\n", i+1, s.Name)
		fmt.Fprintf(&b, "Timestamp: %s\n\n", s.Timestamp.Format(historyTimestampForm))
		b.WriteString("INPUTS:\n")
		writeValues(&b, s.Inputs)
		b.WriteString("\nOUTPUTS:\n")
		writeValues(&b, s.Outputs)
		if s.Reasoning != "" {
			fmt.Fprintf(&b, "\nREASONING: %s\n", s.Reasoning)
		}
		b.WriteString("\n" + strings.Repeat("=", separatorWidth) + "\n\n")
	}
	return b.String()
}

func writeValues(b *strings.Builder, values map[string]interface{}) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "  %s: %s\n", k, renderValue(values[k]))
	}
}

func renderValue(v interface{}) string {
	if structured(v) {
		if data, err := json.MarshalIndent(v, "", "  "); err == nil {
			return string(data)
		}
	}
	s := fmt.Sprint(v)
	runes := []rune(s)
	if len(runes) > maxScalarRunes {
		return string(runes[:maxScalarRunes]) + "..."
	}
	return s
}

func structured(v interface{}) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

type savedHistory struct {
	Messages []Step    `json:"messages"`
	SavedAt  time.Time `json:"saved_at"`
}

// Save writes the history as indented JSON.
func (h *History) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	steps := h.Steps
	if steps == nil {
		steps = []Step{}
	}
	return enc.Encode(savedHistory{Messages: steps, SavedAt: time.Now()})
}

// Load reads a history written by Save.
func Load(r io.Reader) (*History, error) {
	var saved savedHistory
	if err := json.NewDecoder(r).Decode(&saved); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &History{Steps: saved.Messages}, nil
}
