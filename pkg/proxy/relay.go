package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/iptvrelay/pkg/config"
	"mercator-hq/iptvrelay/pkg/session"
)

// maxDrainBytes bounds how much of a redirect body is read before closing it.
const maxDrainBytes = 64 << 10

// State is the lifecycle state of one relay run.
type State int

const (
	// StateResolving means redirects are being followed and nothing has
	// been written to the client.
	StateResolving State = iota

	// StateStreaming means headers are committed and the body is flowing.
	StateStreaming

	// StateDone means the run has ended.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Observer receives per-session progress from the relay.
// *session.Session satisfies it.
type Observer interface {
	AddBytes(n int)
	SetUpstreamStatus(code int)
	AddRedirect()
	AddReconnect()
}

type nopObserver struct{}

func (nopObserver) AddBytes(int)          {}
func (nopObserver) SetUpstreamStatus(int) {}
func (nopObserver) AddRedirect()          {}
func (nopObserver) AddReconnect()         {}

// Options tunes a Relay.
type Options struct {
	// LivePrefix identifies credential-bearing paths so they can be masked.
	LivePrefix string

	// MaxRedirects is the redirect hop budget.
	MaxRedirects int

	// ClientIdleTimeout bounds one client write on video paths.
	ClientIdleTimeout time.Duration

	// APIIdleTimeout bounds one client write on other paths.
	APIIdleTimeout time.Duration

	// UpstreamStallTimeout is the longest wait for upstream data before a
	// reconnect. Zero or negative disables reconnects.
	UpstreamStallTimeout time.Duration

	// UpstreamStallMax is the reconnect budget per session.
	UpstreamStallMax int

	// MaxSessionDuration ends a session unconditionally. Zero disables it.
	MaxSessionDuration time.Duration

	// BufferSize is the copy buffer size.
	BufferSize int

	// Logger receives debug output for hops and reconnects.
	Logger *slog.Logger
}

// OptionsFromConfig derives relay options from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		LivePrefix:           cfg.Relay.LivePrefix,
		MaxRedirects:         cfg.Relay.MaxRedirects,
		ClientIdleTimeout:    cfg.Relay.ClientIdleTimeout,
		APIIdleTimeout:       cfg.Relay.APIIdleTimeout,
		UpstreamStallTimeout: cfg.Relay.UpstreamStallTimeout,
		UpstreamStallMax:     cfg.Relay.UpstreamStallMax,
		MaxSessionDuration:   cfg.Relay.MaxSessionDuration,
		BufferSize:           cfg.Relay.BufferSize,
	}
}

// Result summarizes one relay run.
type Result struct {
	// Outcome is the terminal state.
	Outcome session.Outcome

	// Status is the status sent to the client, or 0 if none was sent.
	Status int

	// Committed reports whether response headers reached the client.
	Committed bool

	// Redirects is the number of redirect hops followed.
	Redirects int

	// Reconnects is the number of stall reconnects performed.
	Reconnects int

	// Err is the terminal error, nil on normal completion.
	Err error
}

// ShouldAbort reports whether the handler must abort the connection because
// the response started but did not end cleanly.
func (r Result) ShouldAbort() bool {
	if !r.Committed {
		return false
	}
	switch r.Outcome {
	case session.OutcomeCompleted, session.OutcomeClientGone:
		return false
	}
	return true
}

// Relay forwards client requests to a single origin.
//
// Stream resolves upstream redirects internally and relays only the final
// response, so clients never see intermediate statuses or Location headers.
// Forward is a plain header-copying passthrough.
//
// # Thread Safety
//
// A Relay is safe for concurrent use; each call has its own run state.
type Relay struct {
	target     *url.URL
	transports *Transports
	opts       Options
	buffers    sync.Pool
}

// NewRelay creates a relay for target.
func NewRelay(target *url.URL, transports *Transports, opts Options) *Relay {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 32 << 10
	}
	if opts.UpstreamStallMax < 0 {
		opts.UpstreamStallMax = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	size := opts.BufferSize
	return &Relay{
		target:     target,
		transports: transports,
		opts:       opts,
		buffers: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Target returns the origin base URL.
func (rl *Relay) Target() *url.URL {
	u := *rl.target
	return &u
}

// Stream relays a streaming request, following redirects up to the hop
// budget and reconnecting on upstream stalls.
func (rl *Relay) Stream(w http.ResponseWriter, r *http.Request, obs Observer) Result {
	return rl.serve(w, r, obs, true)
}

// Forward relays a request without following redirects or reconnecting.
// Upstream redirects, including Location, reach the client as sent.
func (rl *Relay) Forward(w http.ResponseWriter, r *http.Request, obs Observer) Result {
	return rl.serve(w, r, obs, false)
}

func (rl *Relay) serve(w http.ResponseWriter, r *http.Request, obs Observer, follow bool) Result {
	if obs == nil {
		obs = nopObserver{}
	}

	ctx := r.Context()
	var cancel context.CancelFunc
	if rl.opts.MaxSessionDuration > 0 {
		ctx, cancel = context.WithTimeoutCause(ctx, rl.opts.MaxSessionDuration, ErrSessionExpired)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	video := IsVideoPath(r.URL.Path)
	tmpl := *r
	tmpl.Header = r.Header.Clone()

	run := &relayRun{
		relay:  rl,
		w:      w,
		in:     r,
		tmpl:   &tmpl,
		obs:    obs,
		video:  video,
		follow: follow,
		state:  StateResolving,
		logger: rl.opts.Logger,
	}
	return run.execute(ctx)
}

func (rl *Relay) getBuffer() *[]byte {
	return rl.buffers.Get().(*[]byte)
}

func (rl *Relay) putBuffer(b *[]byte) {
	rl.buffers.Put(b)
}

// upstream is one in-flight upstream response and the cancel func of the
// attempt that produced it.
type upstream struct {
	resp   *http.Response
	url    *url.URL
	cancel context.CancelFunc
}

func (u *upstream) close() {
	_ = u.resp.Body.Close()
	u.cancel()
}

// relayRun is the state of one Stream or Forward call.
type relayRun struct {
	relay  *Relay
	w      http.ResponseWriter
	in     *http.Request
	tmpl   *http.Request
	obs    Observer
	video  bool
	follow bool
	logger *slog.Logger

	state      State
	committed  bool
	status     int
	redirects  int
	reconnects int
}

func (run *relayRun) execute(ctx context.Context) Result {
	up, err := run.resolve(ctx, TargetURL(run.relay.target, run.in.URL))
	if err != nil {
		return run.finish(err)
	}
	return run.finish(run.stream(ctx, up))
}

// resolve issues requests until a non-redirect response arrives or the hop
// budget is spent. Redirect bodies are drained and discarded.
func (run *relayRun) resolve(ctx context.Context, start *url.URL) (*upstream, error) {
	cur := start
	hopsLeft := run.relay.opts.MaxRedirects

	for hop := 0; ; hop++ {
		up, err := run.roundTrip(ctx, cur, hop == 0, "")
		if err != nil {
			return nil, run.upstreamError(ctx, err, hop, cur)
		}
		run.obs.SetUpstreamStatus(up.resp.StatusCode)

		if !run.follow {
			return up, nil
		}

		location := up.resp.Header.Get("Location")
		d := NextHop(cur, up.resp.StatusCode, location, hopsLeft)
		switch d.Action {
		case ActionStream:
			return up, nil

		case ActionFollow:
			drain(up)
			StripCrossOriginCredentials(run.tmpl.Header, cur, d.Next)
			run.redirects++
			run.obs.AddRedirect()
			trace.SpanFromContext(ctx).AddEvent("redirect", trace.WithAttributes(
				attribute.Int("relay.hop", hop+1),
				attribute.Int("http.status_code", up.resp.StatusCode),
				attribute.String("relay.next_host", d.Next.Host),
			))
			run.logger.DebugContext(ctx, "following upstream redirect",
				"hop", hop+1,
				"status", up.resp.StatusCode,
				"next_host", d.Next.Host,
			)
			hopsLeft--
			cur = d.Next

		default:
			drain(up)
			return nil, &RelayError{Kind: KindRedirect, Hop: hop, URL: run.describe(cur), Err: d.Err}
		}
	}
}

// roundTrip sends one upstream request under its own cancelable context.
func (run *relayRun) roundTrip(ctx context.Context, target *url.URL, withBody bool, byteRange string) (*upstream, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	req, err := BuildUpstreamRequest(attemptCtx, run.tmpl, target, run.video, withBody)
	if err != nil {
		cancel()
		return nil, err
	}
	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}

	resp, err := run.relay.transports.For(run.video).RoundTrip(req)
	if err != nil {
		cancel()
		return nil, err
	}
	return &upstream{resp: resp, url: target, cancel: cancel}, nil
}

// upstreamError classifies a failed round trip, giving the client's own
// disconnect and session expiry precedence over transport errors.
func (run *relayRun) upstreamError(ctx context.Context, err error, hop int, u *url.URL) error {
	if cerr := run.contextError(ctx); cerr != nil {
		return cerr
	}
	return classifyTransportError(err, hop, run.describe(u))
}

// contextError returns the terminal error for a done context, or nil.
func (run *relayRun) contextError(ctx context.Context) error {
	if run.in.Context().Err() != nil {
		return &RelayError{Kind: KindClient, Err: ErrClientGone}
	}
	if ctx.Err() == nil {
		return nil
	}
	if errors.Is(context.Cause(ctx), ErrSessionExpired) {
		return &RelayError{Kind: KindExpired, Err: ErrSessionExpired}
	}
	return &RelayError{Kind: KindClient, Err: ErrClientGone}
}

// describe renders u for logs and errors with the credential segment masked
// and the query removed.
func (run *relayRun) describe(u *url.URL) string {
	path := u.Path
	if run.relay.opts.LivePrefix != "" {
		path = MaskCredential(path, run.relay.opts.LivePrefix)
	}
	return u.Scheme + "://" + u.Host + path
}

// finish moves the run to StateDone and converts err into a Result. If
// nothing has been sent yet, a failure is answered with a plain-text error.
func (run *relayRun) finish(err error) Result {
	run.state = StateDone
	res := Result{
		Outcome:    session.OutcomeCompleted,
		Committed:  run.committed,
		Redirects:  run.redirects,
		Reconnects: run.reconnects,
		Err:        err,
	}
	if err != nil {
		res.Outcome = OutcomeFor(err)
		if !run.committed {
			if status := StatusFor(err); status != 0 {
				WriteProxyError(run.w, status)
				run.status = status
			}
		}
	}
	res.Status = run.status
	return res
}

// OutcomeFor maps a relay error to the session outcome it produces.
func OutcomeFor(err error) session.Outcome {
	if err == nil {
		return session.OutcomeCompleted
	}
	switch {
	case errors.Is(err, ErrClientStall):
		return session.OutcomeClientStall
	case errors.Is(err, ErrClientGone):
		return session.OutcomeClientGone
	case errors.Is(err, ErrSessionExpired):
		return session.OutcomeExpired
	case errors.Is(err, ErrUpstreamStall):
		return session.OutcomeUpstreamStall
	case errors.Is(err, ErrRedirectLoop), errors.Is(err, ErrMissingLocation):
		return session.OutcomeRedirectError
	}
	return session.OutcomeUpstreamError
}

// drain reads a bounded amount of a discarded body so the connection can be
// reused, then closes it.
func drain(up *upstream) {
	_, _ = io.CopyN(io.Discard, up.resp.Body, maxDrainBytes)
	up.close()
}
