package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendjack/core/internal/modules/processing/refine"
	"github.com/trendjack/core/internal/modules/processing/transcript"
	"github.com/trendjack/core/internal/modules/processing/voice"
)

func TestStringArrayScan(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  StringArray
	}{
		{"nil", nil, StringArray{}},
		{"json bytes", []byte(`["a","b"]`), StringArray{"a", "b"}},
		{"json string", `["x"]`, StringArray{"x"}},
		{"null", "null", StringArray{}},
		{"lines", "https://a.com\n\n https://b.com ", StringArray{"https://a.com", "https://b.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a StringArray
			require.NoError(t, a.Scan(tt.value))
			assert.Equal(t, tt.want, a)
		})
	}

	var a StringArray
	assert.Error(t, a.Scan(42))
}

func TestStringArrayValue(t *testing.T) {
	v, err := StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = StringArray{"a"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, v)
}

func TestNewTranscriptCounts(t *testing.T) {
	m := NewTranscript(transcript.Document{Filename: "call.txt", Format: transcript.FormatText, Text: "héllo big world"})
	assert.Equal(t, 15, m.Characters)
	assert.Equal(t, 3, m.Words)
}

func TestTopicRoundTrip(t *testing.T) {
	in := transcript.Topic{
		Topic:          "Eval pipelines",
		AlignsWithGoal: true,
		Confidence:     0.9,
		Evidence:       []string{"we test every prompt"},
	}
	m := NewTopic("tr-1", "goal", 2, in, false)
	assert.Equal(t, 2, m.Position)
	assert.Equal(t, in, m.Domain())
}

func TestRunStatusFinished(t *testing.T) {
	assert.False(t, RunPending.Finished())
	assert.False(t, RunRunning.Finished())
	assert.True(t, RunCompleted.Finished())
	assert.True(t, RunFailed.Finished())
	assert.True(t, RunCancelled.Finished())
}

func TestPostSync(t *testing.T) {
	p := &PostModel{Content: "stale"}
	p.Sync()
	assert.Equal(t, "stale", p.Content)

	pc := refine.NewPostContext("trend", "topic", "hook", "Personal Story", voice.Profile{}, "first draft", nil)
	pc.CurrentPost = "second draft"
	pc.Refinements = append(pc.Refinements, refine.Refinement{Request: "shorter"})
	p.Context = pc
	p.Sync()
	assert.Equal(t, "second draft", p.Content)
	assert.Equal(t, "first draft", p.OriginalContent)
	assert.Equal(t, 1, p.Refinements)
}
