package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendjack/core/internal/models"
	"github.com/trendjack/core/internal/modules/pipeline/history"
	"github.com/trendjack/core/internal/pkg/jwt"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "trendjack.db") + "\n" +
		"paths:\n  logs: " + filepath.Join(dir, "logs") + "\n" +
		"auth:\n  jwt_secret: cli-test-secret\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTokenCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--config", writeConfig(t), "--subject", "cli", "--ttl", "1h"})
	require.NoError(t, cmd.Execute())

	claims, err := jwt.Parse(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "cli", claims.Client)
}

func TestTokenCommandRequiresSubject(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token", "--config", writeConfig(t)})
	assert.Error(t, cmd.Execute())
}

func TestGenerateOptionsValidate(t *testing.T) {
	o := generateOptions{transcriptPath: "call.txt", urls: []string{"https://a.com"}, format: "markdown"}
	assert.NoError(t, o.validate())

	bad := o
	bad.transcriptPath = ""
	assert.Error(t, bad.validate())

	bad = o
	bad.urls = nil
	assert.Error(t, bad.validate())

	bad = o
	bad.format = "pdf"
	assert.Error(t, bad.validate())
}

func TestReadTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call.md")
	require.NoError(t, os.WriteFile(path, []byte("# Call\n\nWe ship eval pipelines."), 0o644))

	doc, err := readTranscript(path)
	require.NoError(t, err)
	assert.Equal(t, "call.md", doc.Filename)
	assert.Contains(t, doc.Text, "eval pipelines")

	_, err = readTranscript(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestRenderReport(t *testing.T) {
	r := &models.RunModel{
		CompanyType:  "AI Engineering Consultancy",
		Goal:         "Sell eval pipelines",
		Status:       models.RunCompleted,
		PrimaryTopic: "Super Bowl blackout",
		Outputs: []models.TopicOutput{{
			Topic: "Eval pipelines",
		}},
	}
	r.CreatedAt = time.Date(2024, 2, 12, 9, 0, 0, 0, time.UTC)
	posts := []models.PostModel{{Content: "Blackout, meet evals."}}

	md, err := renderReport("markdown", r, posts)
	require.NoError(t, err)
	assert.Contains(t, string(md), "Super Bowl blackout")

	html, err := renderReport("html", r, posts)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<html")

	raw, err := renderReport("json", r, posts)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded["posts"], 1)
	assert.Contains(t, decoded, "run")
}

func TestHistoryCommand(t *testing.T) {
	var h history.History
	h.UserRefinement("shorter please", "long post", "short post", []string{"trimmed"})
	path := filepath.Join(t.TempDir(), "history.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, h.Save(f))
	require.NoError(t, f.Close())

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"history", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "shorter please")
}
