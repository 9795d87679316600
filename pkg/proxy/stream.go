package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// errReadTimeout is returned by readWithTimeout when no data arrived in time.
var errReadTimeout = errors.New("upstream read timed out")

type readResult struct {
	n   int
	err error
}

// stream commits the response headers and copies the upstream body to the
// client chunk by chunk, flushing after every write.
//
// Each upstream read is bounded by the stall timeout. On a stall the same
// resolved URL is requested again, up to the reconnect budget; the client
// keeps receiving bytes on the already committed response. When that
// response declared its length, the reconnect asks for the remaining bytes
// only and must get them back as a matching partial response. Each client
// write is bounded by the idle timeout through a write deadline.
func (run *relayRun) stream(ctx context.Context, up *upstream) error {
	opts := run.relay.opts

	h := run.w.Header()
	CopyResponseHeaders(h, up.resp.Header, !run.follow)
	if run.follow {
		ApplyStreamDefaults(h, run.in.URL.Path, run.video)
	} else {
		h.Set(AccelBufferingHeader, "no")
		if run.video {
			h.Set("Connection", "close")
		}
	}

	run.state = StateStreaming
	run.w.WriteHeader(up.resp.StatusCode)
	run.committed = true
	run.status = up.resp.StatusCode

	rc := http.NewResponseController(run.w)
	defer func() {
		_ = rc.SetWriteDeadline(time.Time{})
	}()
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		up.close()
		return &RelayError{Kind: KindClient, Err: fmt.Errorf("%w: %v", ErrClientGone, err)}
	}

	if run.in.Method == http.MethodHead {
		up.close()
		return nil
	}

	idle := opts.APIIdleTimeout
	if run.video {
		idle = opts.ClientIdleTimeout
	}

	// With reconnects enabled, upstream silence is the stall monitor's to
	// handle. Otherwise silence longer than the idle timeout ends the session.
	stallEnabled := run.follow && opts.UpstreamStallTimeout > 0
	readTimeout := idle
	if stallEnabled {
		readTimeout = opts.UpstreamStallTimeout
	}

	resume := resumePointFor(up.resp)
	var sent int64

	bufp := run.relay.getBuffer()
	defer run.relay.putBuffer(bufp)
	buf := *bufp

	for {
		n, rerr := readWithTimeout(ctx, up, buf, readTimeout)

		if n > 0 {
			if idle > 0 {
				_ = rc.SetWriteDeadline(time.Now().Add(idle))
			}
			written, werr := run.w.Write(buf[:n])
			run.obs.AddBytes(written)
			sent += int64(written)
			if werr == nil {
				if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
					werr = ferr
				}
			}
			if werr != nil {
				up.close()
				return run.clientError(werr)
			}
		}

		switch {
		case rerr == nil:
			continue

		case errors.Is(rerr, io.EOF):
			up.close()
			return nil

		case errors.Is(rerr, errReadTimeout):
			up.close()
			if !stallEnabled {
				return &RelayError{Kind: KindClient, Err: fmt.Errorf("%w: no data for %s", ErrClientStall, readTimeout)}
			}
			next, err := run.reconnect(ctx, up.url, resume, sent)
			if err != nil {
				return err
			}
			up = next

		default:
			up.close()
			if cerr := run.contextError(ctx); cerr != nil {
				return cerr
			}
			return &RelayError{Kind: KindUpstream, URL: run.describe(up.url), Err: rerr}
		}
	}
}

// reconnect re-requests u after a stall. It fails once the reconnect budget
// is spent, or when the origin answers with a redirect or an error status.
// For a bounded response it also fails when the origin cannot resume at the
// first byte the client has not received.
func (run *relayRun) reconnect(ctx context.Context, u *url.URL, resume resumePoint, sent int64) (*upstream, error) {
	if run.reconnects >= run.relay.opts.UpstreamStallMax {
		return nil, &RelayError{
			Kind: KindStall,
			URL:  run.describe(u),
			Err:  fmt.Errorf("%w after %d reconnects", ErrUpstreamStall, run.reconnects),
		}
	}
	run.reconnects++
	run.obs.AddReconnect()
	trace.SpanFromContext(ctx).AddEvent("reconnect", trace.WithAttributes(
		attribute.Int("relay.reconnect", run.reconnects),
	))
	run.logger.DebugContext(ctx, "upstream stalled, reconnecting",
		"attempt", run.reconnects,
		"url", run.describe(u),
	)

	up, err := run.roundTrip(ctx, u, false, resume.header(sent))
	if err != nil {
		return nil, run.upstreamError(ctx, err, 0, u)
	}
	run.obs.SetUpstreamStatus(up.resp.StatusCode)

	if status := up.resp.StatusCode; IsRedirect(status) || status >= http.StatusBadRequest {
		drain(up)
		return nil, &RelayError{
			Kind: KindUpstream,
			URL:  run.describe(u),
			Err:  fmt.Errorf("reconnect answered with status %d", status),
		}
	}
	if resume.bounded {
		want := resume.start + sent
		got, ok := resumePointFor(up.resp), up.resp.StatusCode == http.StatusPartialContent
		if !ok || got.start != want {
			drain(up)
			return nil, &RelayError{
				Kind: KindStall,
				URL:  run.describe(u),
				Err:  fmt.Errorf("%w: origin cannot resume at byte %d", ErrUpstreamStall, want),
			}
		}
	}
	return up, nil
}

// resumePoint locates a committed response body within the resource.
// Unbounded responses have no declared length and restart from the
// beginning on reconnect.
type resumePoint struct {
	bounded bool
	start   int64
	end     int64
}

// resumePointFor derives the resume point of resp from its Content-Range
// (for 206) or its Content-Length.
func resumePointFor(resp *http.Response) resumePoint {
	if resp.StatusCode == http.StatusPartialContent {
		if start, end, ok := parseContentRange(resp.Header.Get("Content-Range")); ok {
			return resumePoint{bounded: true, start: start, end: end}
		}
	}
	if resp.ContentLength >= 0 {
		return resumePoint{bounded: true, start: 0, end: resp.ContentLength - 1}
	}
	return resumePoint{}
}

// header returns the Range header asking for the bytes after the first
// sent ones, or "" for an unbounded response.
func (p resumePoint) header(sent int64) string {
	if !p.bounded {
		return ""
	}
	return fmt.Sprintf("bytes=%d-%d", p.start+sent, p.end)
}

// parseContentRange parses "bytes first-last/total".
func parseContentRange(v string) (first, last int64, ok bool) {
	spec, found := strings.CutPrefix(v, "bytes ")
	if !found {
		return 0, 0, false
	}
	span, _, _ := strings.Cut(spec, "/")
	a, b, found := strings.Cut(span, "-")
	if !found {
		return 0, 0, false
	}
	first, err1 := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	last, err2 := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	if err1 != nil || err2 != nil || first < 0 || last < first {
		return 0, 0, false
	}
	return first, last, true
}

// clientError classifies a failed client write.
func (run *relayRun) clientError(err error) error {
	if isTimeout(err) {
		return &RelayError{Kind: KindClient, Err: fmt.Errorf("%w: %v", ErrClientStall, err)}
	}
	return &RelayError{Kind: KindClient, Err: fmt.Errorf("%w: %v", ErrClientGone, err)}
}

// readWithTimeout performs one Read on the upstream body, giving up after
// timeout or when ctx is done. On give-up the attempt is canceled and the
// pending Read is awaited so buf is free for reuse when this returns.
func readWithTimeout(ctx context.Context, up *upstream, buf []byte, timeout time.Duration) (int, error) {
	results := make(chan readResult, 1)
	go func() {
		n, err := up.resp.Body.Read(buf)
		results <- readResult{n: n, err: err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case res := <-results:
		return res.n, res.err
	case <-expired:
		up.close()
		<-results
		return 0, errReadTimeout
	case <-ctx.Done():
		up.close()
		<-results
		return 0, context.Cause(ctx)
	}
}
