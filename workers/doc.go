// Package workers ships the built-in example workers, one per bridge
// pattern: Counter (pure producer), Accumulator (consumer with a final
// result), Factorizer (request/response), Sensor (timer-driven producer with
// control messages), and Fetcher (I/O-bound request/response). Each factory
// validates its options synchronously, so bad configuration fails session
// creation instead of the running worker.
package workers
