package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poiesic/gleaner"
	"github.com/poiesic/gleaner/ai/mock"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type stubBackend struct {
	links []string
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Search(context.Context, string, int) ([]string, error) {
	return s.links, nil
}

type stubTier struct {
	calls atomic.Int32
}

func (s *stubTier) Name() core.Tier           { return core.TierHTTP }
func (s *stubTier) Policy() fetch.RetryPolicy { return fetch.RetryPolicy{MaxAttempts: 1} }

func (s *stubTier) Fetch(_ context.Context, url string) (string, error) {
	s.calls.Add(1)
	if strings.Contains(url, "broken") {
		return "", fmt.Errorf("%w: connection refused", core.ErrTransientNetwork)
	}
	return "<html><body><article><p>Coverage from the harbor about the expansion works and the new shipping rates for the season.</p></article></body></html>", nil
}

// result mirrors core.Result with a raw payload for decoding.
type result struct {
	Success    bool            `json:"success"`
	Result     json.RawMessage `json:"result"`
	Error      string          `json:"error"`
	ResultType string          `json:"resultType"`
}

func runApp(t *testing.T, stdin string, args ...string) (result, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp(strings.NewReader(stdin), &out,
		gleaner.WithAIProvider(mock.NewMockProvider()),
		gleaner.WithDiscoveryBackends(&stubBackend{links: []string{"https://harbor.test/a", "https://harbor.test/b"}}),
		gleaner.WithFetchTiers(&stubTier{}))

	err := app.Run(append([]string{"gleaner", "--in-memory-cache", "--no-browser", "-l", "error"}, args...))
	if err != nil {
		return result{}, err
	}
	var res result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res), out.String())
	return res, nil
}

func TestDiscoverCommand(t *testing.T) {
	res, err := runApp(t, "", "discover", "--topic", "harbor", "-n", "1")
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, core.ResultTypeObject, res.ResultType)

	var payload core.DiscoveryPayload
	require.NoError(t, json.Unmarshal(res.Result, &payload))
	assert.Equal(t, []string{"https://harbor.test/a"}, payload.DiscoveredURLs)
}

func TestDiscoverCommand_RequiresTopic(t *testing.T) {
	_, err := runApp(t, "", "discover")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic")
}

func TestFetchCommand(t *testing.T) {
	t.Run("single url", func(t *testing.T) {
		res, err := runApp(t, "", "fetch", "https://harbor.test/a")
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)

		var page core.FetchResult
		require.NoError(t, json.Unmarshal(res.Result, &page))
		assert.Equal(t, "https://harbor.test/a", page.URL)
		assert.Contains(t, page.Text, "shipping rates")
	})

	t.Run("single failing url", func(t *testing.T) {
		res, err := runApp(t, "", "fetch", "https://broken.test/")
		require.NoError(t, err, "logical failures are printed, not returned")
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "connection refused")
	})

	t.Run("many urls", func(t *testing.T) {
		res, err := runApp(t, "", "fetch", "https://harbor.test/a", "https://broken.test/")
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)

		var batch core.BatchFetchResult
		require.NoError(t, json.Unmarshal(res.Result, &batch))
		assert.Equal(t, []string{"https://harbor.test/a", "https://broken.test/"}, batch.SourceURLs)
		assert.Contains(t, batch.CombinedText, "shipping rates")
		assert.Len(t, batch.Errors, 1)
	})

	t.Run("no urls", func(t *testing.T) {
		res, err := runApp(t, "", "fetch")
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}

func TestFilterCommand(t *testing.T) {
	doc := strings.Repeat("The harbor authority published the new shipping rates for the coming season. ", 4)

	t.Run("stdin", func(t *testing.T) {
		res, err := runApp(t, doc, "filter", "-q", "shipping rates", "-k", "2")
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)
		assert.Equal(t, core.ResultTypeList, res.ResultType)

		var passages []core.RelevantPassage
		require.NoError(t, json.Unmarshal(res.Result, &passages))
		assert.Len(t, passages, 2)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.txt")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		res, err := runApp(t, "", "filter", "-q", "shipping rates", "--file", path)
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := runApp(t, "", "filter", "-q", "x", "--file", filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})

	t.Run("blank query", func(t *testing.T) {
		res, err := runApp(t, doc, "filter", "-q", "  ")
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}

func TestSummarizeCommand(t *testing.T) {
	res, err := runApp(t, "Ships arrive daily.", "summarize")
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(res.Result, &payload))
	assert.Equal(t, "Ships arrive daily.", payload["summary"])
}

func TestRunCommand(t *testing.T) {
	t.Run("topic with summary", func(t *testing.T) {
		res, err := runApp(t, "", "run", "--topic", "harbor", "--summarize")
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)

		var report struct {
			RunID   string   `json:"run_id"`
			Sources []string `json:"sources"`
			Text    string   `json:"text"`
			Summary string   `json:"summary"`
		}
		require.NoError(t, json.Unmarshal(res.Result, &report))
		assert.NotEmpty(t, report.RunID)
		assert.Equal(t, []string{"https://harbor.test/a", "https://harbor.test/b"}, report.Sources)
		assert.Contains(t, report.Text, "Source: https://harbor.test/a")
		assert.NotEmpty(t, report.Summary)
	})

	t.Run("single url with query returns passages", func(t *testing.T) {
		res, err := runApp(t, "", "run", "--url", "https://harbor.test/a", "--query", "shipping rates")
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)
		assert.Equal(t, core.ResultTypeList, res.ResultType)
	})

	t.Run("urls without topic", func(t *testing.T) {
		res, err := runApp(t, "", "run", "-u", "https://harbor.test/a", "-u", "https://broken.test/")
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)
		assert.Equal(t, core.ResultTypeObject, res.ResultType)
	})

	t.Run("neither topic nor urls", func(t *testing.T) {
		res, err := runApp(t, "", "run")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
	})
}

func TestCacheSweepCommand(t *testing.T) {
	res, err := runApp(t, "", "cache", "sweep", "--ttl", "1h")
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.JSONEq(t, `{"removed":0}`, string(res.Result))

	_, err = runApp(t, "", "cache", "sweep", "--ttl", "0s")
	require.Error(t, err)
}

func TestSetupFailures(t *testing.T) {
	t.Run("missing config file", func(t *testing.T) {
		_, err := runApp(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "discover", "-t", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config")
	})
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, core.Success(map[string]string{"text": "<b>迪士尼</b> & co"}, core.ResultTypeObject)))
	assert.Equal(t, `{"success":true,"result":{"text":"<b>迪士尼</b> & co"},"resultType":"object"}`+"\n", buf.String())
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "debug level", level: "debug", wantErr: false},
		{name: "info level", level: "info", wantErr: false},
		{name: "warn level", level: "warn", wantErr: false},
		{name: "error level", level: "error", wantErr: false},
		{name: "case insensitive", level: "DEBUG", wantErr: false},
		{name: "mixed case", level: "WaRn", wantErr: false},
		{name: "invalid level", level: "invalid", wantErr: true},
		{name: "empty level", level: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "log-level",
						Aliases: []string{"l"},
						Value:   "info",
					},
				},
				Before: setupLogger,
				Action: func(c *cli.Context) error { return nil },
			}

			err := app.Run([]string{"test", "--log-level", tt.level})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
