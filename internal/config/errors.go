package config

import "errors"

var (
	// ErrInvalidBudget is returned when budget is negative
	ErrInvalidBudget = errors.New("budget must not be negative")
	// ErrInvalidBudgetPolicy is returned when budget_policy is not sibling or depth
	ErrInvalidBudgetPolicy = errors.New("budget_policy must be sibling or depth")
	// ErrInvalidExtractor is returned when extractor is not pattern or html
	ErrInvalidExtractor = errors.New("extractor must be pattern or html")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrInvalidDelay is returned when request delay is negative
	ErrInvalidDelay = errors.New("request_delay must not be negative")
	// ErrInvalidHostDelay is returned when a host_delays entry is not host=duration
	ErrInvalidHostDelay = errors.New("host_delays entries must be host=duration")
	// ErrInvalidMaxBodySize is returned when max_body_size is not greater than 0
	ErrInvalidMaxBodySize = errors.New("max_body_size must be greater than 0")
	// ErrInvalidOutput is returned when output is not text, json or markdown
	ErrInvalidOutput = errors.New("output must be text, json or markdown")
	// ErrInvalidLogFormat is returned when log.format is not json, text or console
	ErrInvalidLogFormat = errors.New("log.format must be json, text or console")
)
