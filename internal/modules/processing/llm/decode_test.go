package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalJSONToleratesFencesAndProse(t *testing.T) {
	var out struct {
		Hook string `json:"hook"`
	}
	cases := []string{
		"```json\n{\"hook\":\"Plot twist\"}\n```",
		"Sure! Here it is: {\"hook\":\"Plot twist\"} hope this helps",
		"{\"hook\":\"Plot twist\"}",
	}
	for _, raw := range cases {
		out.Hook = ""
		require.NoError(t, UnmarshalJSON(raw, &out))
		assert.Equal(t, "Plot twist", out.Hook)
	}
	assert.Error(t, UnmarshalJSON("no json here", &out))
}

func TestFlexTypes(t *testing.T) {
	var out struct {
		Name       FlexString  `json:"name"`
		Tags       FlexStrings `json:"tags"`
		Bullets    FlexStrings `json:"bullets"`
		Confidence FlexFloat   `json:"confidence"`
		Percent    FlexFloat   `json:"percent"`
		Aligns     FlexBool    `json:"aligns"`
		Number     FlexString  `json:"number"`
	}
	raw := `{
		"name": ["a", "b"],
		"tags": "ai, observability , prompts",
		"bullets": "- first\n- second\n\n3. third",
		"confidence": "0.85",
		"percent": "80%",
		"aligns": "Yes",
		"number": 42
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	assert.Equal(t, FlexString("a, b"), out.Name)
	assert.Equal(t, FlexStrings{"ai", "observability", "prompts"}, out.Tags)
	assert.Equal(t, FlexStrings{"first", "second", "third"}, out.Bullets)
	assert.InDelta(t, 0.85, float64(out.Confidence), 1e-9)
	assert.InDelta(t, 0.8, float64(out.Percent), 1e-9)
	assert.True(t, bool(out.Aligns))
	assert.Equal(t, FlexString("42"), out.Number)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, FlexFloat(-1).Clamp01())
	assert.Equal(t, 0.9, FlexFloat(90).Clamp01())
	assert.Equal(t, 1.0, FlexFloat(250).Clamp01())
	assert.Equal(t, 0.4, FlexFloat(0.4).Clamp01())
}

type stubClient struct {
	reply string
	err   error
	got   Request
}

func (s *stubClient) Complete(_ context.Context, req Request) (string, error) {
	s.got = req
	return s.reply, s.err
}

func TestCompleteJSONAddsInstruction(t *testing.T) {
	stub := &stubClient{reply: `{"ok": true}`}
	var out struct {
		OK FlexBool `json:"ok"`
	}
	require.NoError(t, CompleteJSON(context.Background(), stub, Request{System: "You write hooks.", Prompt: "go"}, &out))
	assert.True(t, bool(out.OK))
	assert.Contains(t, stub.got.System, "You write hooks.")
	assert.Contains(t, stub.got.System, "single JSON object")

	stub = &stubClient{err: errors.New("rate limited")}
	assert.EqualError(t, CompleteJSON(context.Background(), stub, Request{Prompt: "go"}, &out), "rate limited")

	stub = &stubClient{reply: "I cannot do that"}
	err := CompleteJSON(context.Background(), stub, Request{Prompt: "go"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "I cannot do that")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo", 5))
	assert.Equal(t, "hé...", Truncate("héllo", 2))
}
