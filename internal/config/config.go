// Package config loads, validates and writes the httpdiff configuration file.
//
// The file is a JSON document with three deliberately ambiguous shapes that
// mirror how users write them by hand: a domain is either a bare URL string
// or an object with headers, a header value is either a string or an unsigned
// integer, and a variable is either a scalar or a list of scalars. The custom
// (un)marshalers below keep those shapes stable across a load/save round-trip.
package config

import (
	"encoding/json"
	"net/url"
	"os"

	"httpdiff/internal/apperr"
)

const defaultConcurrentJobs = 20

// Configuration is the root of the configuration file. It is immutable once
// loaded; a reload replaces the whole value.
type Configuration struct {
	Domains        []Domain     `json:"domains"`
	Endpoints      []Endpoint   `json:"endpoints"`
	Variables      VariablesMap `json:"variables,omitempty"`
	ConcurrentJobs int          `json:"concurrent_jobs"`
}

// Endpoint is one endpoint template. The path may contain <name> placeholders
// resolved against the endpoint-local and global variable maps.
type Endpoint struct {
	Endpoint          string       `json:"endpoint"`
	Variables         VariablesMap `json:"variables,omitempty"`
	HTTPMethod        Method       `json:"http_method,omitempty"`
	Headers           HeadersMap   `json:"headers,omitempty"`
	Body              any          `json:"body,omitempty"`
	ResponseProcessor []string     `json:"response_processor,omitempty"`
	RequestBuilder    []string     `json:"request_builder,omitempty"`
}

// Method is an HTTP method name as it appears in the configuration.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

func (m *Method) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch Method(raw) {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		*m = Method(raw)
		return nil
	}
	return apperr.New(apperr.FailedToParseConfig, "unknown http_method %q", raw)
}

// OrDefault resolves the zero value to GET.
func (m Method) OrDefault() Method {
	if m == "" {
		return MethodGet
	}
	return m
}

// Domain is one comparison target: an absolute base URL plus optional
// headers applied to every request against it. A bare string in the file
// parses to a Domain without headers and serializes back to a bare string.
type Domain struct {
	URL     *url.URL
	Headers HeadersMap

	withHeaders bool
}

type domainObject struct {
	Domain  string     `json:"domain"`
	Headers HeadersMap `json:"headers,omitempty"`
}

func (d *Domain) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		parsed, err := parseAbsoluteURL(raw)
		if err != nil {
			return err
		}
		*d = Domain{URL: parsed}
		return nil
	}

	var obj domainObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return apperr.Wrap(apperr.FailedToParseConfig, err, "domain entry")
	}
	parsed, err := parseAbsoluteURL(obj.Domain)
	if err != nil {
		return err
	}
	*d = Domain{URL: parsed, Headers: obj.Headers, withHeaders: true}
	return nil
}

func (d Domain) MarshalJSON() ([]byte, error) {
	if !d.withHeaders && len(d.Headers) == 0 {
		return json.Marshal(d.URL.String())
	}
	return json.Marshal(domainObject{Domain: d.URL.String(), Headers: d.Headers})
}

// NewDomain builds a plain-URL domain. Intended for the default template and
// tests; user configurations arrive through UnmarshalJSON.
func NewDomain(rawURL string) (Domain, error) {
	parsed, err := parseAbsoluteURL(rawURL)
	if err != nil {
		return Domain{}, err
	}
	return Domain{URL: parsed}, nil
}

// NewDomainWithHeaders builds a domain carrying headers.
func NewDomainWithHeaders(rawURL string, headers HeadersMap) (Domain, error) {
	parsed, err := parseAbsoluteURL(rawURL)
	if err != nil {
		return Domain{}, err
	}
	return Domain{URL: parsed, Headers: headers, withHeaders: true}, nil
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, apperr.New(apperr.FailedToParseConfig, "invalid domain url %q", raw)
	}
	return parsed, nil
}

// Validate enforces the semantic constraints that the JSON shape cannot.
func (c *Configuration) Validate() error {
	if len(c.Domains) < 2 {
		return apperr.New(apperr.ValidationError, "minimum 2 domains required")
	}
	if len(c.Endpoints) == 0 {
		return apperr.New(apperr.ValidationError, "no endpoints were specified")
	}
	if c.ConcurrentJobs < 1 {
		return apperr.New(apperr.ValidationError, "concurrent_jobs must be at least 1")
	}
	return nil
}

// Load reads, parses and validates the configuration at path.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.New(apperr.FileNotFound, "%s", path)
	}

	cfg := Configuration{ConcurrentJobs: defaultConcurrentJobs}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, apperr.Wrap(apperr.FailedToParseConfig, err, "%s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to path, pretty-printed.
func (c *Configuration) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.Exception, err, "serialize configuration")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return apperr.Wrap(apperr.Exception, err, "write configuration to %s", path)
	}
	return nil
}
