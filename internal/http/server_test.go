package http

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/forged/internal/generation"
)

// stubGenerator replays a fixed result or error, emitting scripted events
// first.
type stubGenerator struct {
	events []generation.ProgressEvent
	result *generation.Result
	err    error
	gotReq *generation.Request
}

func (s *stubGenerator) Generate(_ context.Context, req *generation.Request, onProgress generation.ProgressFunc) (*generation.Result, error) {
	s.gotReq = req
	if onProgress != nil {
		for _, ev := range s.events {
			onProgress(ev)
		}
	}
	return s.result, s.err
}

func newTestServer(t *testing.T, gen Generator) *httptest.Server {
	t.Helper()
	s, err := NewServer(gen, zap.NewNop(), Config{})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &stubGenerator{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubGenerator{})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGenerateAwait(t *testing.T) {
	gen := &stubGenerator{result: &generation.Result{
		RunID: "run-1",
		Files: []generation.Artifact{{Name: "index.html", Content: "<html/>"}},
	}}
	ts := newTestServer(t, gen)

	resp, err := http.Post(ts.URL+"/api/v1/generations", "application/json",
		strings.NewReader(`{"prompt": "build a todo app", "category": "webapp", "model": "special-model"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, gen.gotReq)
	assert.Equal(t, "build a todo app", gen.gotReq.Prompt)
	assert.Equal(t, "special-model", gen.gotReq.Model)

	var buf strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"run_id":"run-1"`)
	assert.Contains(t, buf.String(), "index.html")
}

func TestGenerateRejectsInvalidBody(t *testing.T) {
	ts := newTestServer(t, &stubGenerator{})

	resp, err := http.Post(ts.URL+"/api/v1/generations", "application/json",
		strings.NewReader(`{"prompt": ""}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateStageErrorMapsToBadGateway(t *testing.T) {
	gen := &stubGenerator{err: &generation.StageError{
		RunID: "run-2",
		Stage: generation.StagePlanning,
		Cause: context.DeadlineExceeded,
	}}
	ts := newTestServer(t, gen)

	resp, err := http.Post(ts.URL+"/api/v1/generations", "application/json",
		strings.NewReader(`{"prompt": "build something"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var buf strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"stage":"planning"`)
	assert.Contains(t, buf.String(), `"run_id":"run-2"`)
}

func TestGenerateStream(t *testing.T) {
	gen := &stubGenerator{
		events: []generation.ProgressEvent{
			{RunID: "run-3", Stage: generation.StagePlanning, Percent: 15},
			{RunID: "run-3", Stage: generation.StageProducing, Percent: 40},
		},
		result: &generation.Result{RunID: "run-3"},
	}
	ts := newTestServer(t, gen)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/generations",
		strings.NewReader(`{"prompt": "build a todo app"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var buf strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&buf)
	require.NoError(t, err)
	body := buf.String()

	planning := strings.Index(body, `"stage":"planning"`)
	producing := strings.Index(body, `"stage":"producing"`)
	result := strings.Index(body, "event: result")
	require.GreaterOrEqual(t, planning, 0)
	require.GreaterOrEqual(t, producing, 0)
	require.GreaterOrEqual(t, result, 0)
	assert.Less(t, planning, producing, "events stream in transition order")
	assert.Less(t, producing, result, "the result event comes last")
}

func TestGenerateStreamError(t *testing.T) {
	gen := &stubGenerator{err: &generation.StageError{
		RunID: "run-4",
		Stage: generation.StageProducing,
		Cause: context.Canceled,
	}}
	ts := newTestServer(t, gen)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/generations",
		strings.NewReader(`{"prompt": "build something"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "event: error")
	assert.Contains(t, buf.String(), `"stage":"producing"`)
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(nil, zap.NewNop(), Config{})
	require.Error(t, err)

	_, err = NewServer(&stubGenerator{}, nil, Config{})
	require.Error(t, err)
}
