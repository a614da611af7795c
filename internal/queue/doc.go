package queue

// Package queue implements the bounded-concurrency job scheduler: it owns
// the FIFO of waiting jobs and the set of running jobs, promotes entries
// strictly in submission order as slots free up, and rejects duplicate
// submissions by request signature. It holds no process knowledge; the
// execution engine drives jobs and reports back through Completed and
// UpdateRecord.
