package config

// Default returns the template configuration written by the
// generate-default-configuration command. It demonstrates every schema shape:
// a bare domain and a domain with headers, variables with lists and
// generators, a response processor and a request builder.
func Default() *Configuration {
	first, _ := NewDomain("http://localhost:3000")
	second, _ := NewDomainWithHeaders("http://localhost:3001", HeadersMap{
		"cookie": StringHeader("auth=test"),
	})

	return &Configuration{
		Domains: []Domain{first, second},
		Endpoints: []Endpoint{
			{
				Endpoint: "/health",
				Headers: HeadersMap{
					"x-test": StringHeader("true"),
				},
				RequestBuilder: []string{"python3", "script.py"},
			},
			{
				Endpoint:   "/api/v1/users/<userId>?skip=<skip>",
				HTTPMethod: MethodGet,
				Variables: VariablesMap{
					"userId": MultiVariable(
						IntValue(123),
						StringValue("true"),
						GeneratorValue(GeneratorUUID),
					),
					"skip": SingleVariable(GeneratorValue(GeneratorUUID)),
				},
				ResponseProcessor: []string{"jq", "del(.headers.auth)"},
			},
			{
				Endpoint:          "/api/v1/users",
				HTTPMethod:        MethodPost,
				Body:              map[string]any{"username": "test"},
				ResponseProcessor: []string{"jq", "del(.headers.auth, .body.id)"},
			},
		},
		ConcurrentJobs: defaultConcurrentJobs,
	}
}
