package httpdiff

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"httpdiff/internal/apperr"
	"httpdiff/internal/config"
)

var placeholderPattern = regexp.MustCompile(`<([^>]+)>`)

// MapConfigurationToJobs expands every endpoint template into concrete jobs:
// one job per variable combination, one request per domain inside each job.
// Jobs keep endpoint declaration order; within an endpoint, combinations vary
// the last template placeholder fastest, which keeps expansion deterministic
// for list variables.
func MapConfigurationToJobs(cfg *config.Configuration, bus *Bus, jobsSem, threadsSem *semaphore.Weighted, client *http.Client, log *zap.Logger) ([]*Job, error) {
	var jobs []*Job

	for i := range cfg.Endpoints {
		endpoint := &cfg.Endpoints[i]
		placeholders := PlaceholdersFromString(endpoint.Endpoint)

		lookup := make(config.VariablesMap)
		for name, variable := range cfg.Variables {
			lookup[name] = variable
		}
		for name, variable := range endpoint.Variables {
			lookup[name] = variable
		}

		var bound []string
		seen := make(map[string]bool)
		for _, placeholder := range placeholders {
			if _, ok := lookup[placeholder]; ok && !seen[placeholder] {
				seen[placeholder] = true
				bound = append(bound, placeholder)
			}
		}

		if len(bound) == 0 {
			job, err := mapJob(cfg.Domains, endpoint, endpoint.Endpoint, bus, jobsSem, threadsSem, client, log)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job)
			continue
		}

		for _, combination := range expandVariables(bound, lookup) {
			name := endpoint.Endpoint
			for _, placeholder := range bound {
				name = ReplacePlaceholder(name, placeholder, combination[placeholder])
			}

			job, err := mapJob(cfg.Domains, endpoint, name, bus, jobsSem, threadsSem, client, log)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}

func mapJob(domains []config.Domain, endpoint *config.Endpoint, name string, bus *Bus, jobsSem, threadsSem *semaphore.Weighted, client *http.Client, log *zap.Logger) (*Job, error) {
	requests := make([]*Request, 0, len(domains))

	for _, domain := range domains {
		ref, err := domain.URL.Parse(name)
		if err != nil {
			return nil, apperr.New(apperr.FailedToParseConfig, "%s with %s", domain.URL, name)
		}

		headers := mergeHeaders(domain.Headers, endpoint.Headers)
		requests = append(requests, NewRequest(ref, endpoint.HTTPMethod.OrDefault(), headers, endpoint.Body))
	}

	return NewJob(name, requests, bus, jobsSem, threadsSem, endpoint.ResponseProcessor, endpoint.RequestBuilder, client, log), nil
}

// mergeHeaders joins domain-level and endpoint-level headers; endpoint keys
// win on collision. Absence of both stays nil.
func mergeHeaders(domain, endpoint config.HeadersMap) config.HeadersMap {
	if domain == nil && endpoint == nil {
		return nil
	}

	merged := make(config.HeadersMap, len(domain)+len(endpoint))
	for name, value := range domain {
		merged[name] = value
	}
	for name, value := range endpoint {
		merged[name] = value
	}
	return merged
}

// PlaceholdersFromString captures every <name> marker in template order.
func PlaceholdersFromString(input string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(input, -1)
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, match[1])
	}
	return names
}

// ReplacePlaceholder substitutes every <key> occurrence. Generator values
// resolve freshly per occurrence, so two <id> markers with a UUID generator
// get two distinct identifiers.
func ReplacePlaceholder(input, key string, value config.VariableValue) string {
	pattern := regexp.MustCompile(`<` + regexp.QuoteMeta(key) + `>`)
	return pattern.ReplaceAllStringFunc(input, func(string) string {
		return resolveValue(value)
	})
}

func resolveValue(value config.VariableValue) string {
	switch value.Kind {
	case config.ValueGenerator:
		return uuid.NewString()
	case config.ValueInt:
		return intToString(value.Int)
	default:
		return value.Str
	}
}

// expandVariables computes the Cartesian product of the bound placeholders'
// value sets, in placeholder order with the last factor varying fastest.
func expandVariables(bound []string, lookup config.VariablesMap) []map[string]config.VariableValue {
	combinations := []map[string]config.VariableValue{{}}

	for _, placeholder := range bound {
		variable := lookup[placeholder]
		next := make([]map[string]config.VariableValue, 0, len(combinations)*len(variable.Values))

		for _, combination := range combinations {
			for _, value := range variable.Values {
				extended := make(map[string]config.VariableValue, len(combination)+1)
				for k, v := range combination {
					extended[k] = v
				}
				extended[placeholder] = value
				next = append(next, extended)
			}
		}
		combinations = next
	}

	return combinations
}
