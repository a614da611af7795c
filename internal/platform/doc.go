package platform

// Package platform contains OS and filesystem glue used around the
// engine: directory creation, filename sanitation, default download
// locations, and external tool discovery.
