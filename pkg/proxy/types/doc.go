// Package types defines the JSON bodies the relay writes itself.
//
// Relayed responses are passed through untouched; these types cover only
// admission rejections, diagnostics errors and other responses generated
// locally.
//
// Example:
//
//	{
//	  "error": {
//	    "message": "stream limit reached for this account",
//	    "type": "rate_limit_exceeded",
//	    "code": "stream_limit_exceeded",
//	    "retry_after": 5
//	  }
//	}
package types
