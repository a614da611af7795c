package model

// Package model defines domain data structures shared across the engine:
// job requests and records, status enums with explicit state transitions,
// media metadata, and the request signature used for duplicate detection.
