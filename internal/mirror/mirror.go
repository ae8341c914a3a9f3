// Package mirror implements the bundled example service: it replays HTTP
// requests sampled from live traffic against a second, "mirror" origin, the
// way the traffic-mirror binary shipped alongside the original SPOP
// implementation did. Unlike the original's stubbed body, this build
// actually builds and sends the mirrored request; business logic of this
// kind is explicitly out of the protocol core (SPEC_FULL.md §1) and lives
// here purely as a runnable demonstration of the service contract.
package mirror

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/spoagent/internal/service"
	"github.com/marmos91/spoagent/internal/spop"
)

// Config configures the mirror service.
type Config struct {
	// URL is the origin every sampled request is replayed against. Empty
	// disables mirroring: the service becomes a no-op that acknowledges
	// every notify with no actions.
	URL string

	// Timeout bounds each outbound mirrored request.
	Timeout time.Duration

	// Archive, if non-nil, receives a copy of every mirrored request
	// after it is sent (best-effort; archive failures never fail the
	// notify).
	Archive Archiver
}

// Archiver persists a mirrored request for later inspection. See
// S3Archive (s3archive.go) for an S3-backed implementation.
type Archiver interface {
	Archive(ctx context.Context, method, path string, headers http.Header, body []byte) error
}

// New builds a service.Factory that mirrors each notify's HTTP messages to
// cfg.URL. Every connection shares one underlying http.Client; the
// per-connection identifier passed to the factory is not used.
func New(cfg Config) service.Factory {
	client := &http.Client{Timeout: cfg.Timeout}

	return func(connID string) service.Service {
		return func(ctx context.Context, messages []spop.Message) ([]spop.Action, error) {
			if cfg.URL == "" {
				return nil, nil
			}
			for _, msg := range messages {
				if err := mirrorOne(ctx, client, cfg, msg); err != nil {
					return nil, fmt.Errorf("mirror message %q: %w", msg.Name, err)
				}
			}
			return nil, nil
		}
	}
}

// mirrorOne rebuilds and replays a single sampled HTTP request described by
// a notify message's arguments. Recognized keys mirror HAProxy's
// conventional SPOE sample fetches: "method", "path", "headers" (a
// newline-joined "k: v" blob), and "body".
func mirrorOne(ctx context.Context, client *http.Client, cfg Config, msg spop.Message) error {
	method := stringArg(msg, "method", http.MethodGet)
	path := stringArg(msg, "path", "/")

	var body []byte
	if v, ok := msg.Get("body"); ok && v.Type == spop.TypeBinary {
		body = v.Bin
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}

	if v, ok := msg.Get("headers"); ok && v.Type == spop.TypeString {
		applyHeaders(req.Header, v.Str)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if cfg.Archive != nil {
		_ = cfg.Archive.Archive(ctx, method, path, req.Header, body)
	}
	return nil
}

func stringArg(msg spop.Message, name, fallback string) string {
	if v, ok := msg.Get(name); ok && v.Type == spop.TypeString {
		return v.Str
	}
	return fallback
}

func applyHeaders(dst http.Header, raw string) {
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == '\n' {
			line := raw[start:i]
			start = i + 1
			if idx := indexByte(line, ':'); idx >= 0 {
				key := trimSpace(line[:idx])
				val := trimSpace(line[idx+1:])
				if key != "" {
					dst.Add(key, val)
				}
			}
		}
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t' || s[0] == '\r') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
