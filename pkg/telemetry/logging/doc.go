// Package logging builds the process logger on log/slog.
//
// Every record passes through Handler, which:
//   - adds request_id, identity, session_id, trace_id and span_id from the
//     context when present
//   - masks the credential segment of streaming paths, password query
//     parameters, URL userinfo and bearer tokens
//   - optionally masks client IP addresses
//
// Code logs through the slog package functions after the logger is
// installed with slog.SetDefault:
//
//	logger, err := logging.New(logging.ConfigFrom(cfg))
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Slog())
//
//	slog.InfoContext(ctx, "session closed", "path", r.URL.Path)
//	// {"msg":"session closed","request_id":"...","path":"/live/alice/***/1.ts"}
package logging
