package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "docsearch/handler/http/v1"
	"docsearch/src/core/aisearch"
	"docsearch/src/core/indexing"
	"docsearch/src/infrastructure/job"
)

const (
	workspaceID = "0c5b7a2e-3f7e-4a43-9d6f-0a8b1c2d3e4f"
	documentID  = "7d1e4b10-5a8c-4d2e-8f3a-9b0c1d2e3f40"
)

type fakeAsk struct {
	events []aisearch.StreamEvent
	err    error
	got    aisearch.AskRequest
}

func (f *fakeAsk) Ask(_ context.Context, req aisearch.AskRequest) (<-chan aisearch.StreamEvent, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return replay(f.events), nil
}

type fakeGenerate struct {
	content string
	events  []aisearch.StreamEvent
	err     error
}

func (f *fakeGenerate) Generate(context.Context, aisearch.GenerateRequest) (string, error) {
	return f.content, f.err
}

func (f *fakeGenerate) GenerateStream(context.Context, aisearch.GenerateRequest) (<-chan aisearch.StreamEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return replay(f.events), nil
}

type fakeStatus struct {
	workspaceID string
}

func (f *fakeStatus) Status(_ context.Context, workspaceID string) *aisearch.Status {
	f.workspaceID = workspaceID
	return &aisearch.Status{Driver: "pgvector", EmbeddingsTable: true}
}

func replay(events []aisearch.StreamEvent) <-chan aisearch.StreamEvent {
	out := make(chan aisearch.StreamEvent, len(events))
	for _, ev := range events {
		out <- ev
	}
	close(out)
	return out
}

type fixture struct {
	router   *gin.Engine
	ask      *fakeAsk
	generate *fakeGenerate
	status   *fakeStatus
	repo     *job.MemoryJobRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	f := &fixture{
		router:   gin.New(),
		ask:      &fakeAsk{},
		generate: &fakeGenerate{},
		status:   &fakeStatus{},
		repo:     job.NewMemoryJobRepository(),
	}
	jobs := job.NewJobService(pubSub, f.repo, nil, "ai-jobs", watermill.NopLogger{})
	v1.NewHandler(f.ask, f.generate, f.status, jobs).RegisterRoutes(f.router)
	return f
}

func (f *fixture) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func frames(body string) []string {
	var out []string
	for _, block := range strings.Split(body, "\n\n") {
		if data, ok := strings.CutPrefix(block, "data: "); ok {
			out = append(out, data)
		}
	}
	return out
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) v1.ErrorResponse {
	t.Helper()
	var resp v1.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAskStreamsFrames(t *testing.T) {
	f := newFixture(t)
	f.ask.events = []aisearch.StreamEvent{
		{Kind: aisearch.EventSources, Sources: []aisearch.Source{{DocumentID: documentID, Title: "Runbook", ChunkCount: 2}}, Meta: aisearch.AskMeta{ChunkCount: 2, DocumentCount: 1}},
		{Kind: aisearch.EventContent, Content: "Restart "},
		{Kind: aisearch.EventContent, Content: "it."},
		{Kind: aisearch.EventDone},
	}

	w := f.do(http.MethodPost, "/api/ai/ask", `{"query":"how do I restart?","spaceId":"s1"}`,
		http.Header{"X-Workspace-Id": {workspaceID}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, aisearch.AskRequest{Query: "how do I restart?", WorkspaceID: workspaceID, SpaceID: "s1"}, f.ask.got)

	got := frames(w.Body.String())
	require.Len(t, got, 4)
	assert.JSONEq(t, `{"sources":[{"documentId":"`+documentID+`","title":"Runbook","link":"","chunkIndex":0,"chunkCount":2,"excerpt":"","similarity":0,"distance":0}],"meta":{"chunkCount":2,"documentCount":1}}`, got[0])
	assert.JSONEq(t, `{"content":"Restart "}`, got[1])
	assert.JSONEq(t, `{"content":"it."}`, got[2])
	assert.Equal(t, "[DONE]", got[3])
}

func TestAskBodyWorkspaceWins(t *testing.T) {
	f := newFixture(t)
	f.ask.events = []aisearch.StreamEvent{{Kind: aisearch.EventDone}}

	w := f.do(http.MethodPost, "/api/ai/ask", `{"query":"q","workspaceId":"from-body"}`,
		http.Header{"X-Workspace-Id": {workspaceID}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "from-body", f.ask.got.WorkspaceID)
}

func TestAskErrorFrameHidesDetail(t *testing.T) {
	f := newFixture(t)
	f.ask.events = []aisearch.StreamEvent{
		{Kind: aisearch.EventContent, Content: "partial"},
		{Kind: aisearch.EventError, Err: fmt.Errorf("%w: upstream 503 at http://10.0.0.3", aisearch.ErrServiceFailure)},
	}

	w := f.do(http.MethodPost, "/api/ai/ask", `{"query":"q"}`, nil)

	got := frames(w.Body.String())
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"error":"`+aisearch.ErrServiceFailure.Error()+`"}`, got[1])
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
	assert.NotContains(t, w.Body.String(), "[DONE]")
}

func TestAskRejectsBeforeStreaming(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &aisearch.ValidationError{Field: "query", Reason: "must not be empty"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"configuration", &aisearch.ConfigurationError{Setting: "ai.driver", Reason: "not set"}, http.StatusBadRequest, "CONFIGURATION_ERROR"},
		{"unexpected", errors.New("pool exhausted"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ask.err = tt.err

			w := f.do(http.MethodPost, "/api/ai/ask", `{"query":""}`, nil)

			assert.Equal(t, tt.status, w.Code)
			assert.NotEqual(t, "text/event-stream", w.Header().Get("Content-Type"))
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotContains(t, resp.Message, "pool exhausted")
		})
	}
}

func TestAskMalformedBody(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/ai/ask", `{"query":`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
}

func TestGenerate(t *testing.T) {
	f := newFixture(t)
	f.generate.content = "Tidier text."

	w := f.do(http.MethodPost, "/api/ai/generate", `{"action":"improve_writing","content":"tidy text"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"content":"Tidier text."}`, w.Body.String())
}

func TestGenerateStream(t *testing.T) {
	f := newFixture(t)
	f.generate.events = []aisearch.StreamEvent{
		{Kind: aisearch.EventContent, Content: "Short."},
		{Kind: aisearch.EventDone},
	}

	w := f.do(http.MethodPost, "/api/ai/generate/stream", `{"action":"make_shorter","content":"A long sentence."}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{`{"content":"Short."}`, "[DONE]"}, frames(w.Body.String()))
}

func TestGenerateDisabled(t *testing.T) {
	f := newFixture(t)
	f.generate.err = &aisearch.ConfigurationError{Setting: "ai.completion_model", Reason: "not set"}

	w := f.do(http.MethodPost, "/api/ai/generate", `{"content":"x"}`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CONFIGURATION_ERROR", decodeError(t, w).Code)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/ai/status?workspaceId="+workspaceID, "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"driver":"pgvector","embeddingsTable":true}`, w.Body.String())
	assert.Equal(t, workspaceID, f.status.workspaceID)

	f.do(http.MethodGet, "/api/ai/status", "", http.Header{"X-Workspace-Id": {"from-header"}})
	assert.Equal(t, "from-header", f.status.workspaceID)
}

func TestIngestEvent(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/ai/events",
		`{"event":"document.updated","workspaceId":"`+workspaceID+`","documentIds":["`+documentID+`"]}`, nil)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"jobId":"1","kind":"document.reindex","status":"pending"}`, w.Body.String())

	record, err := f.repo.Get(context.Background(), 1)
	require.NoError(t, err)
	decoded, err := indexing.DecodeJob(indexing.Kind(record.Kind), record.Payload)
	require.NoError(t, err)
	assert.Equal(t, indexing.DocumentReindex{WorkspaceID: workspaceID, DocumentIDs: []string{documentID}}, decoded)
}

func TestIngestEventRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing event", `{"workspaceId":"` + workspaceID + `"}`},
		{"unknown event", `{"event":"document.archived","workspaceId":"` + workspaceID + `","documentIds":["` + documentID + `"]}`},
		{"workspace not a uuid", `{"event":"document.created","workspaceId":"ws-1","documentIds":["` + documentID + `"]}`},
		{"document not a uuid", `{"event":"document.created","workspaceId":"` + workspaceID + `","documentIds":["doc-1"]}`},
		{"no documents", `{"event":"document.deleted","workspaceId":"` + workspaceID + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			w := f.do(http.MethodPost, "/api/ai/events", tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
		})
	}
}

func TestWorkspaceToggles(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/ai/workspaces/"+workspaceID+"/embeddings", "", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"jobId":"1","kind":"workspace.create_embeddings","status":"pending"}`, w.Body.String())

	w = f.do(http.MethodDelete, "/api/ai/workspaces/"+workspaceID+"/embeddings", "", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"jobId":"2","kind":"workspace.delete_embeddings","status":"pending"}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/ai/workspaces/not-a-uuid/embeddings", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
