package httpdiff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"httpdiff/internal/config"
)

// Request is one outbound HTTP call within a job: the call parameters plus
// everything captured about its execution. The request against the first
// domain of a job is the diff baseline for all the others.
type Request struct {
	URI      *url.URL
	Method   config.Method
	Headers  config.HeadersMap
	Body     any
	Status   JobStatus
	Duration time.Duration
	Response *ResponseVariant
	Diffs    []DiffEntry
	HasDiffs bool
}

// NewRequest builds a pending request.
func NewRequest(uri *url.URL, method config.Method, headers config.HeadersMap, body any) *Request {
	return &Request{URI: uri, Method: method.OrDefault(), Headers: headers, Body: body, Status: StatusPending}
}

// Reset returns the request to its pre-run state so the job can restart it.
func (r *Request) Reset() {
	r.Status = StatusPending
	r.Duration = 0
	r.Response = nil
	r.Diffs = nil
	r.HasDiffs = false
}

// Clone copies the request: URI, headers, diffs and the response variant are
// copied, while the body and the captured Response behind a successful
// variant are shared: they are treated as immutable once set.
func (r *Request) Clone() *Request {
	clone := *r
	if r.URI != nil {
		uriCopy := *r.URI
		clone.URI = &uriCopy
	}
	if r.Headers != nil {
		clone.Headers = make(config.HeadersMap, len(r.Headers))
		for k, v := range r.Headers {
			clone.Headers[k] = v
		}
	}
	if r.Diffs != nil {
		clone.Diffs = append([]DiffEntry(nil), r.Diffs...)
	}
	if r.Response != nil {
		respCopy := *r.Response
		clone.Response = &respCopy
	}
	return &clone
}

// Execute performs the HTTP call and records the outcome on the request.
// Transport errors become a Fail response and never abort the job; non-2xx
// statuses are successes at this layer. No retries, no imposed timeout - the
// runner inherits whatever the shared client defaults to.
func (r *Request) Execute(client *http.Client, log *zap.Logger) {
	r.Status = StatusRunning

	var bodyReader io.Reader
	if r.Body != nil {
		encoded, err := json.Marshal(r.Body)
		if err != nil {
			log.Error("failed to encode request body", zap.String("uri", r.URI.String()), zap.Error(err))
		} else {
			bodyReader = bytes.NewReader(encoded)
		}
	}

	req, err := http.NewRequest(string(r.Method), r.URI.String(), bodyReader)
	if err != nil {
		r.Response = Failure(err.Error())
		return
	}
	for name, value := range r.Headers {
		req.Header.Set(name, value.Value())
	}

	startedAt := time.Now()
	resp, err := client.Do(req)
	r.Duration = time.Since(startedAt)

	if err != nil {
		log.Error("request failed", zap.String("uri", r.URI.String()), zap.Error(err))
		r.Response = Failure(err.Error())
		return
	}
	defer resp.Body.Close()

	captured := Response{
		StatusCode: resp.StatusCode,
		Headers:    captureHeaders(resp.Header),
	}
	if resp.ContentLength >= 0 {
		length := resp.ContentLength
		captured.ContentLength = &length
	}

	payload, err := io.ReadAll(resp.Body)
	if err == nil && len(payload) > 0 {
		var body any
		if json.Unmarshal(payload, &body) == nil {
			captured.Body = body
		}
	}

	r.Response = Successful(captured)
}

// SetDiffsAndCalculateStatus stores the diff vector and derives the terminal
// request status: Failed when any line differs or the transport failed.
func (r *Request) SetDiffsAndCalculateStatus(diffs []DiffEntry) {
	hasDiffs := false
	for _, entry := range diffs {
		if entry.Tag != TagEqual {
			hasDiffs = true
			break
		}
	}

	r.HasDiffs = hasDiffs
	r.Diffs = diffs

	if hasDiffs || (r.Response != nil && r.Response.IsFail()) {
		r.Status = StatusFailed
	} else {
		r.Status = StatusFinished
	}
}

// StatusText renders the compact status cell used by the table views.
func (r *Request) StatusText() string {
	var text string
	switch r.Status {
	case StatusFinished:
		text = "SUCCESS"
	case StatusFailed:
		text = "FAIL"
	default:
		text = "PENDING"
	}

	if r.Response != nil && r.Response.Success != nil {
		text = fmt.Sprintf("%s - %d", text, r.Response.Success.StatusCode)
	}
	if r.Duration > 0 {
		text = fmt.Sprintf("%s - in %.2f sec", text, r.Duration.Seconds())
	}
	return text
}

func captureHeaders(header http.Header) config.HeadersMap {
	captured := make(config.HeadersMap, len(header))
	for name, values := range header {
		captured[strings.ToLower(name)] = config.StringHeader(strings.Join(values, ", "))
	}
	return captured
}

// RequestBuilderDTO is the wire shape exchanged with request-builder
// subprocesses: the builder receives it on stdin and must emit a document of
// the same shape on stdout.
type RequestBuilderDTO struct {
	URI        string            `json:"uri"`
	HTTPMethod config.Method     `json:"http_method"`
	Headers    config.HeadersMap `json:"headers"`
	Body       any               `json:"body"`
}

// BuilderDTO snapshots the mutable call parameters of the request.
func (r *Request) BuilderDTO() RequestBuilderDTO {
	return RequestBuilderDTO{
		URI:        r.URI.String(),
		HTTPMethod: r.Method,
		Headers:    r.Headers,
		Body:       r.Body,
	}
}

// ApplyBuilderDTO replaces the call parameters with the builder's output.
func (r *Request) ApplyBuilderDTO(dto RequestBuilderDTO) error {
	parsed, err := url.Parse(dto.URI)
	if err != nil {
		return err
	}
	r.URI = parsed
	r.Method = dto.HTTPMethod.OrDefault()
	r.Headers = dto.Headers
	r.Body = dto.Body
	return nil
}
