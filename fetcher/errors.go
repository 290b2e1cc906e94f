package fetcher

import "errors"

var (
	// ErrUnreachable means the upstream page could not be retrieved at all
	ErrUnreachable = errors.New("upstream unreachable")

	// ErrUpstreamStatus means the upstream answered with a non-success status
	ErrUpstreamStatus = errors.New("upstream returned error status")

	// ErrNoTables means the page was retrieved but contained no parsable tables
	ErrNoTables = errors.New("no tables parsed")

	// ErrInvalidURL means the source URL is not an absolute http(s) URL
	ErrInvalidURL = errors.New("invalid source url")
)
