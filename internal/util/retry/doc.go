// Package retry retries operations that fail for transient reasons, waiting
// exponentially longer between attempts.
//
// hostprep uses it to dial the target host, which may still be booting when
// a run starts. Errors wrapped with [Permanent] stop the loop immediately.
package retry
