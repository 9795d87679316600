// Package metrics exposes relay metrics in the Prometheus format.
//
// A Collector owns a private registry. Session, upstream and passthrough
// metrics are recorded through the Collector; the limits package registers
// its admission counters on the same registry, and the session registry's
// bandwidth estimate is exported as a gauge function.
//
// Labels are bounded: traffic class ("video" or "other"), outcome, status
// class ("2xx") and error kind. Identities and paths are never labels.
package metrics
