package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ainia/pkg/apierr"
	"ainia/pkg/quest"
	"ainia/pkg/safety"
	"ainia/pkg/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStories struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (f *fakeStories) GenerateStory(ctx context.Context, req quest.Request) (quest.Result, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return quest.Result{}, f.err
	}
	return quest.Result{Story: schema.Story{Hint: "about " + req.Topic, Steps: []string{"a", "b", "c"}}}, nil
}

func (f *fakeStories) Screen(topic string) (safety.Verdict, error) {
	if err := safety.ValidateTopic(topic); err != nil {
		return safety.Verdict{}, err
	}
	if strings.Contains(topic, "scary") {
		return safety.Verdict{Reason: `Topic contains inappropriate content for children: "scary"`}, nil
	}
	return safety.Verdict{Safe: true}, nil
}

func (f *fakeStories) Usage(_ context.Context, user string) (quest.Usage, error) {
	if err := safety.ValidateUser(user); err != nil {
		return quest.Usage{}, err
	}
	return quest.Usage{Count: 3, Limit: 20, Remaining: 17}, nil
}

func newTestServer(f *fakeStories) *Server {
	return NewServer(f, "2025.06.1", charmlog.New(io.Discard))
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRoot(t *testing.T) {
	rec := do(newTestServer(&fakeStories{}), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "2025.06.1", out["lexicon"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestPostStory(t *testing.T) {
	f := &fakeStories{}
	rec := do(newTestServer(f), http.MethodPost, "/api/stories", `{"user_id":"u1","theme":"Space","topic":"stars","age":7}`)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.Equal(t, "about stars", out["hint"])
	assert.Equal(t, false, out["cached"])
	assert.Len(t, out["steps"], 3)
}

func TestPostStoryInvalidJSON(t *testing.T) {
	f := &fakeStories{}
	rec := do(newTestServer(f), http.MethodPost, "/api/stories", `{"age": "seven"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "invalid json"}, decode(t, rec))
	assert.Zero(t, f.calls.Load())
}

func TestPostStoryErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apierr.Newf(apierr.KindInput, "Age must be between 4 and 12 years old"), http.StatusBadRequest},
		{apierr.Newf(apierr.KindSafety, "Invalid input pattern"), http.StatusUnprocessableEntity},
		{apierr.Newf(apierr.KindQuota, "Daily limit of 20 stories reached. Try again tomorrow!"), http.StatusTooManyRequests},
		{apierr.Newf(apierr.KindEducational, "Checkpoint question does not test understanding of the topic"), http.StatusUnprocessableEntity},
		{apierr.New(apierr.KindService, "Story service is unavailable right now. Please try again.", io.ErrUnexpectedEOF), http.StatusBadGateway},
		{apierr.Newf(apierr.KindMalformedOutput, "Invalid response format from AI. Please try again."), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := do(newTestServer(&fakeStories{err: tt.err}), http.MethodPost, "/api/stories", `{"user_id":"u1","theme":"Space","topic":"stars","age":7}`)
			assert.Equal(t, tt.status, rec.Code)
			out := decode(t, rec)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, apierr.ReasonOf(tt.err), out["error"])
			assert.NotContains(t, rec.Body.String(), "unexpected EOF", "diagnostics are not returned")
		})
	}
}

func TestUnknownErrorIsGeneric(t *testing.T) {
	rec := do(newTestServer(&fakeStories{err: io.ErrClosedPipe}), http.MethodPost, "/api/stories", `{"user_id":"u1","theme":"Space","topic":"stars","age":7}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate story. Please try again.", decode(t, rec)["error"])
}

func TestIdenticalRequestsCoalesce(t *testing.T) {
	f := &fakeStories{release: make(chan struct{})}
	s := newTestServer(f)
	body := `{"user_id":"u1","theme":"Space","topic":"stars","age":7}`

	var wg sync.WaitGroup
	codes := make([]int, 3)
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = do(s, http.MethodPost, "/api/stories", body).Code
		}()
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the followers a moment to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusOK}, codes)

	rec := do(s, http.MethodPost, "/api/stories", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, f.calls.Load(), "finished calls are not remembered")
}

func TestScreenTopic(t *testing.T) {
	s := newTestServer(&fakeStories{})

	rec := do(s, http.MethodPost, "/api/topics/screen", `{"topic":"rainbows"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"safe": true}, decode(t, rec))

	rec = do(s, http.MethodPost, "/api/topics/screen", `{"topic":"scary things"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, false, out["safe"])
	assert.Contains(t, out["reason"], "scary")

	rec = do(s, http.MethodPost, "/api/topics/screen", `{"topic":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsage(t *testing.T) {
	s := newTestServer(&fakeStories{})

	rec := do(s, http.MethodGet, "/api/usage/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"count": 3.0, "limit": 20.0, "remaining": 17.0}, decode(t, rec))
}

func TestEchoLevel(t *testing.T) {
	assert.Equal(t, log.DEBUG, echoLevel(charmlog.DebugLevel))
	assert.Equal(t, log.INFO, echoLevel(charmlog.InfoLevel))
	assert.Equal(t, log.WARN, echoLevel(charmlog.WarnLevel))
	assert.Equal(t, log.ERROR, echoLevel(charmlog.ErrorLevel))
}
