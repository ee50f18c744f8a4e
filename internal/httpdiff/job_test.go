package httpdiff

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"httpdiff/internal/apperr"
	"httpdiff/internal/config"
)

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func newTestJob(t *testing.T, name string, urls []string, processor, builder []string) (*Job, *Bus) {
	t.Helper()

	bus := NewBus(256)
	requests := make([]*Request, 0, len(urls))
	for _, raw := range urls {
		parsed, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("parse url: %v", err)
		}
		requests = append(requests, NewRequest(parsed, config.MethodGet, nil, nil))
	}

	job := NewJob(
		name,
		requests,
		bus,
		semaphore.NewWeighted(20),
		semaphore.NewWeighted(4),
		processor,
		builder,
		http.DefaultClient,
		zap.NewNop(),
	)
	return job, bus
}

func TestJob_Start_EqualResponses(t *testing.T) {
	a := httptest.NewServer(jsonHandler(http.StatusOK, `{"ok":true}`))
	defer a.Close()
	b := httptest.NewServer(jsonHandler(http.StatusOK, `{"ok":true}`))
	defer b.Close()

	job, _ := newTestJob(t, "/health", []string{a.URL + "/health", b.URL + "/health"}, nil, nil)

	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if job.Status != StatusFinished {
		t.Errorf("expected Finished, got %v", job.Status)
	}
	for _, request := range job.Requests {
		if request.Status != StatusFinished {
			t.Errorf("expected request Finished, got %v for %s", request.Status, request.URI)
		}
		if request.HasDiffs {
			t.Errorf("expected no diffs for %s", request.URI)
		}
	}

	// The baseline diff is always all-Equal, one entry per serialized line.
	baseline := job.Requests[0]
	if len(baseline.Diffs) == 0 {
		t.Fatal("baseline diff vector must not be empty")
	}
	for _, entry := range baseline.Diffs {
		if entry.Tag != TagEqual {
			t.Errorf("baseline entry must be Equal, got %v for %q", entry.Tag, entry.Text)
		}
	}
}

func TestJob_Start_DifferentBodiesFail(t *testing.T) {
	a := httptest.NewServer(jsonHandler(http.StatusOK, `{"value":1}`))
	defer a.Close()
	b := httptest.NewServer(jsonHandler(http.StatusOK, `{"value":2}`))
	defer b.Close()

	job, _ := newTestJob(t, "/value", []string{a.URL, b.URL}, nil, nil)

	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if job.Status != StatusFailed {
		t.Errorf("expected Failed, got %v", job.Status)
	}
	if job.Requests[0].Status != StatusFinished {
		t.Errorf("baseline must stay Finished, got %v", job.Requests[0].Status)
	}
	peer := job.Requests[1]
	if peer.Status != StatusFailed || !peer.HasDiffs {
		t.Errorf("peer must be Failed with diffs, got %v hasDiffs=%v", peer.Status, peer.HasDiffs)
	}
}

func TestJob_Start_Non2xxIsNotTransportFailure(t *testing.T) {
	a := httptest.NewServer(jsonHandler(http.StatusInternalServerError, `{"err":"boom"}`))
	defer a.Close()
	b := httptest.NewServer(jsonHandler(http.StatusInternalServerError, `{"err":"boom"}`))
	defer b.Close()

	job, _ := newTestJob(t, "/boom", []string{a.URL, b.URL}, nil, nil)

	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if job.Status != StatusFinished {
		t.Errorf("matching 500s must classify Finished, got %v", job.Status)
	}
}

func TestJob_Start_TransportErrorFailsRequest(t *testing.T) {
	a := httptest.NewServer(jsonHandler(http.StatusOK, `{"ok":true}`))
	defer a.Close()

	// The second domain points at a closed server.
	closed := httptest.NewServer(http.NotFoundHandler())
	deadURL := closed.URL
	closed.Close()

	job, _ := newTestJob(t, "/dead", []string{a.URL, deadURL}, nil, nil)

	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if job.Status != StatusFailed {
		t.Errorf("expected Failed, got %v", job.Status)
	}
	peer := job.Requests[1]
	if peer.Response == nil || !peer.Response.IsFail() {
		t.Fatalf("expected Fail response, got %+v", peer.Response)
	}
	if peer.Status != StatusFailed {
		t.Errorf("transport failure must fail the request, got %v", peer.Status)
	}
}

func TestJob_ResponseProcessorNormalizesDiffs(t *testing.T) {
	a := httptest.NewServer(func() http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Request-Id", "aaa")
			jsonHandler(http.StatusOK, `{"ok":true}`)(w, r)
		}
	}())
	defer a.Close()
	b := httptest.NewServer(func() http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Request-Id", "bbb")
			jsonHandler(http.StatusOK, `{"ok":true}`)(w, r)
		}
	}())
	defer b.Close()

	// Without a processor the differing header fails the job.
	plain, _ := newTestJob(t, "/id", []string{a.URL, b.URL}, nil, nil)
	if err := plain.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if plain.Status != StatusFailed {
		t.Fatalf("expected Failed without processor, got %v", plain.Status)
	}

	// Stripping the volatile lines normalizes the comparison.
	processor := []string{"sed", "/x-request-id/d;/date/d"}
	processed, _ := newTestJob(t, "/id", []string{a.URL, b.URL}, processor, nil)
	if err := processed.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if processed.Status != StatusFinished {
		t.Errorf("expected Finished with processor, got %v", processed.Status)
	}
}

func TestJob_RequestBuilderRewritesBody(t *testing.T) {
	var received []string
	record := func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		received = append(received, string(payload))
		jsonHandler(http.StatusOK, `{"ok":true}`)(w, r)
	}

	a := httptest.NewServer(http.HandlerFunc(record))
	defer a.Close()
	b := httptest.NewServer(http.HandlerFunc(record))
	defer b.Close()

	builder := []string{"sh", "-c", `sed 's/"body": null/"body": {"injected":true}/'`}
	job, _ := newTestJob(t, "/build", []string{a.URL, b.URL}, nil, builder)

	for _, request := range job.Requests {
		if err := job.ApplyRequestBuilder(context.Background(), request); err != nil {
			t.Fatalf("apply builder: %v", err)
		}
		if request.Body == nil {
			t.Fatal("builder output must replace the body")
		}
	}

	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if len(received) != 2 {
		t.Fatalf("expected 2 recorded requests, got %d", len(received))
	}
	for _, payload := range received {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			t.Fatalf("outbound body is not JSON: %q", payload)
		}
		if decoded["injected"] != true {
			t.Errorf("expected injected body, got %q", payload)
		}
	}
}

func TestJob_RequestBuilderFailureIsValidationError(t *testing.T) {
	job, _ := newTestJob(t, "/bad-builder", []string{"http://a.example", "http://b.example"},
		nil, []string{"sh", "-c", "echo bad >&2; exit 1"})

	err := job.ApplyRequestBuilder(context.Background(), job.Requests[0])
	if !apperr.IsKind(err, apperr.ValidationError) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("expected stderr content in error, got %q", err.Error())
	}
}

func TestJob_CalculateDiffs_Validation(t *testing.T) {
	t.Run("single request", func(t *testing.T) {
		job, _ := newTestJob(t, "/one", []string{"http://a.example"}, nil, nil)
		err := job.CalculateDiffs(context.Background())
		if !apperr.IsKind(err, apperr.ValidationError) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("missing baseline response", func(t *testing.T) {
		job, _ := newTestJob(t, "/none", []string{"http://a.example", "http://b.example"}, nil, nil)
		err := job.CalculateDiffs(context.Background())
		if !apperr.IsKind(err, apperr.ValidationError) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("missing peer response", func(t *testing.T) {
		job, _ := newTestJob(t, "/peer", []string{"http://a.example", "http://b.example"}, nil, nil)
		job.Requests[0].Response = Successful(Response{StatusCode: 200})
		err := job.CalculateDiffs(context.Background())
		if !apperr.IsKind(err, apperr.ValidationError) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestJob_StartPublishesOrderedTransitions(t *testing.T) {
	a := httptest.NewServer(jsonHandler(http.StatusOK, `{"ok":true}`))
	defer a.Close()
	b := httptest.NewServer(jsonHandler(http.StatusOK, `{"ok":true}`))
	defer b.Close()

	job, bus := newTestJob(t, "/order", []string{a.URL, b.URL}, nil, nil)
	sub := bus.Subscribe()
	defer sub.Close()

	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	var statuses []JobStatus
	for len(sub.C) > 0 {
		action := <-sub.C
		if updated, ok := action.(JobsUpdated); ok {
			statuses = append(statuses, updated.Jobs[0].Status)
		}
	}

	if len(statuses) < 3 {
		t.Fatalf("expected at least pending/running/terminal snapshots, got %v", statuses)
	}
	if statuses[0] != StatusPending {
		t.Errorf("first snapshot must be Pending, got %v", statuses[0])
	}

	sawRunning := false
	for _, status := range statuses {
		if status == StatusRunning {
			sawRunning = true
		}
		if status == StatusFinished && !sawRunning {
			t.Error("Running must precede the terminal snapshot")
		}
	}
	if statuses[len(statuses)-1] != StatusFinished {
		t.Errorf("last snapshot must be terminal, got %v", statuses[len(statuses)-1])
	}
}

func TestJobDTO_Save(t *testing.T) {
	parsed, _ := url.Parse("http://a.example/users/<id>?q=1")
	length := int64(12)
	dto := JobDTO{
		JobName: "/users/<id>?q=1",
		Requests: []Request{{
			URI:    parsed,
			Method: config.MethodGet,
			Response: Successful(Response{
				StatusCode:    200,
				ContentLength: &length,
				Headers:       config.HeadersMap{"content-type": config.StringHeader("application/json")},
				Body:          map[string]any{"ok": true},
			}),
		}},
	}

	base := t.TempDir()
	if err := dto.Save(base); err != nil {
		t.Fatalf("save: %v", err)
	}

	jobDir := filepath.Join(base, SanitizeFilename("/users/<id>?q=1"))
	entries, err := os.ReadDir(jobDir)
	if err != nil {
		t.Fatalf("job directory missing: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(entries))
	}

	name := entries[0].Name()
	if strings.ContainsAny(name, `<>"\|?*`) || strings.Contains(name, "/") {
		t.Errorf("artifact name not sanitized: %q", name)
	}

	content, err := os.ReadFile(filepath.Join(jobDir, name))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("artifact is not JSON: %v", err)
	}
	if decoded["status_code"] != float64(200) {
		t.Errorf("unexpected artifact content: %s", content)
	}
}

func TestSanitizeFilename(t *testing.T) {
	got := SanitizeFilename(`a<b>c"d/e\f|g?h*i`)
	want := "a b c d e f g h i"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
