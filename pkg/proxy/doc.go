// Package proxy relays IPTV traffic from clients to a single origin.
//
// The relay accepts player requests, rewrites them into clean upstream
// requests and copies the origin's response back to the client as it
// arrives. Nothing is buffered beyond one copy chunk.
//
// # Streaming
//
// Requests under the live prefix go through Relay.Stream, which runs each
// request through three states:
//
//   - resolving: the upstream request is sent and 3xx responses with a
//     Location are followed internally, up to the hop budget. Clients never
//     see an intermediate status or a Location header.
//   - streaming: the final response's status and headers are committed and
//     its body is copied chunk by chunk with a flush after every write.
//   - done: the body ended, or a failure or limit ended the session.
//
// A failure before any byte reaches the client is answered with a
// plain-text "Proxy error" (502, or 504 for timeouts). Once streaming has
// begun the status cannot change, so callers abort the connection when
// Result.ShouldAbort reports true.
//
// # Liveness
//
// While streaming, three timers bound a session:
//
//   - each client write must complete within the client idle timeout
//   - each upstream read must complete within the stall timeout, otherwise
//     the same resolved URL is requested again while the reconnect budget
//     lasts
//   - the session as a whole ends at the maximum session duration
//
// # Upstream Requests
//
// BuildUpstreamRequest strips hop-by-hop headers, X-Forwarded-*, X-Real-IP
// and the inbound Host, sets Host to the origin, forces
// Accept-Encoding: identity and keeps Range untouched. Video paths (.m3u8
// and .ts) use a transport without keep-alive and Connection: close.
//
// # Basic Usage
//
//	target, _ := url.Parse("http://origin.example:8080")
//	relay := proxy.NewRelay(target, proxy.NewTransports(cfg), proxy.OptionsFromConfig(cfg))
//
//	http.HandleFunc("/live/", func(w http.ResponseWriter, r *http.Request) {
//	    res := relay.Stream(w, r, nil)
//	    if res.ShouldAbort() {
//	        panic(http.ErrAbortHandler)
//	    }
//	})
package proxy
