package model

import "testing"

func TestJobStatus_IsActive(t *testing.T) {
	tests := []struct {
		status   JobStatus
		expected bool
	}{
		{JobStatusPending, false},
		{JobStatusDownloading, true},
		{JobStatusProcessing, true},
		{JobStatusCancelling, true},
		{JobStatusCompleted, false},
		{JobStatusError, false},
		{JobStatusCancelled, false},
	}

	for _, test := range tests {
		result := test.status.IsActive()
		if result != test.expected {
			t.Errorf("JobStatus(%s).IsActive() = %v, expected %v", test.status, result, test.expected)
		}
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		expected bool
	}{
		{JobStatusPending, false},
		{JobStatusDownloading, false},
		{JobStatusProcessing, false},
		{JobStatusCancelling, false},
		{JobStatusCompleted, true},
		{JobStatusError, true},
		{JobStatusCancelled, true},
	}

	for _, test := range tests {
		result := test.status.IsTerminal()
		if result != test.expected {
			t.Errorf("JobStatus(%s).IsTerminal() = %v, expected %v", test.status, result, test.expected)
		}
	}
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     JobStatus
		to       JobStatus
		expected bool
	}{
		{JobStatusPending, JobStatusDownloading, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusDownloading, JobStatusProcessing, true},
		{JobStatusDownloading, JobStatusCompleted, true},
		{JobStatusDownloading, JobStatusError, true},
		{JobStatusDownloading, JobStatusCancelling, true},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusDownloading, false},
		{JobStatusCancelling, JobStatusCancelled, true},
		{JobStatusCancelling, JobStatusError, false},
		{JobStatusCompleted, JobStatusDownloading, false},
		{JobStatusError, JobStatusPending, false},
		{JobStatusDownloading, JobStatusDownloading, true},
	}

	for _, test := range tests {
		result := IsValidTransition(test.from, test.to)
		if result != test.expected {
			t.Errorf("IsValidTransition(%s, %s) = %v, expected %v", test.from, test.to, result, test.expected)
		}
	}
}
