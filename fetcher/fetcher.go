package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"megamillions/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/gocolly/colly"
	log "github.com/sirupsen/logrus"
)

// Config controls how the upstream page is requested
type Config struct {
	Timeout        time.Duration
	Retries        uint64
	UserAgent      string
	InitialBackoff time.Duration
}

// Fetcher retrieves a page and parses every HTML table on it
type Fetcher struct {
	config Config
}

// New creates a new fetcher
func New(config Config) *Fetcher {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 500 * time.Millisecond
	}
	return &Fetcher{config: config}
}

// Fetch retrieves sourceURL and returns its tables in document order.
// Network failures and 5xx responses are retried with exponential backoff;
// 4xx responses and pages without tables fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string) ([]*models.Table, error) {
	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, sourceURL)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = f.config.InitialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, f.config.Retries), ctx)

	var tables []*models.Table
	attempt := 0
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++

		result, status, err := f.fetchOnce(ctx, sourceURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return backoff.Permanent(ctxErr)
			}
			log.WithFields(log.Fields{
				"url":     sourceURL,
				"attempt": attempt,
				"status":  status,
			}).WithError(err).Warn("Fetch attempt failed")

			if status >= 400 && status < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(result) == 0 {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrNoTables, sourceURL))
		}

		tables = result
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"url":      sourceURL,
		"tables":   len(tables),
		"attempts": attempt,
	}).Info("Fetched upstream tables")

	return tables, nil
}

// fetchOnce performs a single request and returns the parsed tables and the HTTP status.
// The request is bound to ctx and to the per-attempt timeout.
func (f *Fetcher) fetchOnce(ctx context.Context, sourceURL string) ([]*models.Table, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	c := colly.NewCollector()
	if f.config.UserAgent != "" {
		c.UserAgent = f.config.UserAgent
	}
	// The whole page is parsed; a truncated body would yield a truncated table.
	c.MaxBodySize = 0
	c.SetRequestTimeout(f.config.Timeout)
	c.WithTransport(contextTransport{ctx: attemptCtx, base: http.DefaultTransport})

	var tables []*models.Table
	c.OnHTML("table", func(e *colly.HTMLElement) {
		if table, ok := ExtractTable(e.DOM); ok {
			tables = append(tables, table)
		}
	})

	status := 0
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(sourceURL); err != nil {
		if status == 0 {
			return nil, 0, fmt.Errorf("%w: %s: %v", ErrUnreachable, sourceURL, err)
		}
		return nil, status, fmt.Errorf("%w: %s: %d %s", ErrUpstreamStatus, sourceURL, status, http.StatusText(status))
	}

	return tables, status, nil
}

// contextTransport binds every request colly sends to a context
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}
