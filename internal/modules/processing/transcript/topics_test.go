package transcript

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/modules/processing/llm/llmtest"
)

const extractionReply = `{"reasoning":"two strong themes","topics":[
 {"Agent reliability":"Teams struggle to keep agents stable"},
 {"topic":"Prompt versioning","explanation":"Nobody tracks prompt changes"},
 {"Agent reliability":"duplicate"}
],"evidence":{"Agent reliability":["our agents broke weekly"],"Prompt versioning":"we lost the good prompt\nno history"}}`

func TestExtractRequiresTranscript(t *testing.T) {
	x := NewExtractor(llmtest.New(), 2, nil)
	_, err := x.Extract(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestExtractWithoutClientReturnsMock(t *testing.T) {
	x := NewExtractor(nil, 2, nil)
	res, err := x.Extract(context.Background(), "some transcript", "")
	require.NoError(t, err)
	assert.True(t, res.Mock)
	assert.Equal(t, config.DefaultPromotionalGoal, res.Goal)
	require.Len(t, res.Topics, 2)
	assert.Equal(t, "DSPy Framework Implementation", res.Topics[0].Topic)
}

func TestExtractAlignsEveryCandidate(t *testing.T) {
	fake := llmtest.New().
		On("TOPIC: Agent reliability", `{"aligns_with_goal":"yes","alignment_reason":"core pain","linkedin_angle":"Why agents fail","confidence":"80%","reasoning":"fits"}`).
		On("TOPIC: Prompt versioning", `{"aligns_with_goal":true,"alignment_reason":"adjacent","linkedin_angle":"Version prompts like code","confidence":0.9,"reasoning":"fits"}`).
		On("Extract potential LinkedIn post topics", extractionReply)

	x := NewExtractor(fake, 4, nil)
	res, err := x.Extract(context.Background(), "our agents broke weekly. we lost the good prompt", "Sell observability")
	require.NoError(t, err)

	assert.Equal(t, "Sell observability", res.Goal)
	assert.Equal(t, "two strong themes", res.Reasoning)
	require.Len(t, res.Topics, 2)

	assert.Equal(t, "Agent reliability", res.Topics[0].Topic)
	assert.Equal(t, []string{"our agents broke weekly"}, res.Topics[0].Evidence)
	assert.InDelta(t, 0.8, res.Topics[0].Confidence, 1e-9)
	assert.True(t, res.Topics[0].AlignsWithGoal)

	assert.Equal(t, []string{"we lost the good prompt", "no history"}, res.Topics[1].Evidence)

	aligned := res.Aligned()
	require.Len(t, aligned, 2)
	assert.Equal(t, "Prompt versioning", aligned[0].Topic)
	assert.Len(t, res.AutoSelect(1), 1)
	assert.Len(t, res.AutoSelect(5), 2)

	reqs := fake.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, 1, fake.Count("TRANSCRIPT_EVIDENCE: we lost the good prompt no history"))
}

func TestExtractSurvivesSingleAlignmentFailure(t *testing.T) {
	fake := llmtest.New().
		Fail("TOPIC: Agent reliability", errors.New("rate limited")).
		On("TOPIC: Prompt versioning", `{"aligns_with_goal":false,"alignment_reason":"off goal","confidence":0.4}`).
		On("Extract potential LinkedIn post topics", extractionReply)

	res, err := NewExtractor(fake, 1, nil).Extract(context.Background(), "text", "goal")
	require.NoError(t, err)
	require.Len(t, res.Topics, 2)
	assert.False(t, res.Topics[0].AlignsWithGoal)
	assert.Contains(t, res.Topics[0].AlignmentReason, "rate limited")
	assert.Empty(t, res.Aligned())
}

func TestExtractFailsWhenEveryAlignmentFails(t *testing.T) {
	fake := llmtest.New().
		Fail("TOPIC:", errors.New("down")).
		On("Extract potential LinkedIn post topics", extractionReply)

	_, err := NewExtractor(fake, 2, nil).Extract(context.Background(), "text", "goal")
	assert.Error(t, err)
}

func TestExtractNoTopics(t *testing.T) {
	fake := llmtest.New().On("Extract potential LinkedIn post topics", `{"reasoning":"nothing","topics":[]}`)
	_, err := NewExtractor(fake, 2, nil).Extract(context.Background(), "text", "goal")
	assert.Error(t, err)
}
