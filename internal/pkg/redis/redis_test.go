package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := Connect("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestJSONRoundTripAndExpiry(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	type page struct {
		URL   string `json:"url"`
		Words int    `json:"words"`
	}
	require.NoError(t, c.SetJSON(ctx, "scrape:a", page{URL: "https://a.test", Words: 12}, time.Minute))

	var got page
	ok, err := c.GetJSON(ctx, "scrape:a", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 12, got.Words)

	mr.FastForward(2 * time.Minute)
	ok, err = c.GetJSON(ctx, "scrape:a", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetJSONRejectsGarbage(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, mr.Set("bad", "{not json"))

	var v map[string]any
	ok, err := c.GetJSON(context.Background(), "bad", &v)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestPublishSubscribe(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := c.Subscribe(ctx, "run:1")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Publish(ctx, "run:1", `{"step":"scrape"}`))
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"step":"scrape"}`, msg.Payload)
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect("http://nope")
	assert.Error(t, err)
}
