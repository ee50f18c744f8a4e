package httpdiff

import (
	"bytes"
	"encoding/json"

	"httpdiff/internal/config"
)

// Response captures one transport-successful HTTP exchange. Body holds the
// parsed JSON document when the payload was JSON, nil otherwise.
type Response struct {
	StatusCode    int               `json:"status_code"`
	ContentLength *int64            `json:"content_length"`
	Headers       config.HeadersMap `json:"headers"`
	Body          any               `json:"body"`
}

// ResponseVariant is the outcome of one request: either a captured Response
// or a transport error message. It serializes untagged - a failure is a bare
// JSON string, a success is the Response object - so external response
// processors see the same payload shape the original file format promises.
type ResponseVariant struct {
	Success *Response
	FailMsg string
}

// Successful wraps a captured response.
func Successful(r Response) *ResponseVariant { return &ResponseVariant{Success: &r} }

// Failure wraps a transport error message.
func Failure(msg string) *ResponseVariant { return &ResponseVariant{FailMsg: msg} }

// IsFail reports whether the exchange failed at the transport layer.
func (v *ResponseVariant) IsFail() bool { return v.Success == nil }

func (v ResponseVariant) MarshalJSON() ([]byte, error) {
	if v.Success != nil {
		return json.Marshal(v.Success)
	}
	return json.Marshal(v.FailMsg)
}

func (v *ResponseVariant) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var msg string
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return err
		}
		*v = ResponseVariant{FailMsg: msg}
		return nil
	}

	var resp Response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return err
	}
	*v = ResponseVariant{Success: &resp}
	return nil
}

// PrettyJSON renders the variant the way it is fed to response processors
// and written to saved artifacts. Go's encoder already emits object keys in
// lexicographic order, which keeps header serialization deterministic.
func (v *ResponseVariant) PrettyJSON() (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
