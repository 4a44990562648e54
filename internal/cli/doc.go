// Package cli implements the streamctl command line client.
//
// Commands talk to the daemon exclusively over its HTTP API and stay off
// the hub and server internals; the response types here mirror the wire
// format instead. Client wraps the API calls, Output renders tables to
// stdout (or JSON with --json) and keeps status messages on stderr so data
// output stays pipeable.
//
// Each command group is built by a constructor taking clientFn/outputFn
// closures, so Client and Output are created lazily after the persistent
// flags have been parsed.
package cli
