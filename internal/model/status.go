package model

// JobStatus represents the lifecycle state of a download job
type JobStatus string

const (
	// JobStatusPending means the job is queued but not started
	JobStatusPending JobStatus = "pending"

	// JobStatusDownloading means the external fetcher is running
	JobStatusDownloading JobStatus = "downloading"

	// JobStatusProcessing means the fetched file is being post-processed
	JobStatusProcessing JobStatus = "processing"

	// JobStatusCancelling means a cancel was requested and the process
	// teardown is still in flight. The exit handler sees this state and
	// finalizes as cancelled instead of error.
	JobStatusCancelling JobStatus = "cancelling"

	// JobStatusCompleted means the job finished successfully
	JobStatusCompleted JobStatus = "completed"

	// JobStatusError means the job failed
	JobStatusError JobStatus = "error"

	// JobStatusCancelled means the job was cancelled by the user
	JobStatusCancelled JobStatus = "cancelled"
)

// String returns the string representation of JobStatus
func (s JobStatus) String() string {
	return string(s)
}

// IsActive returns true while an external process may still be running
func (s JobStatus) IsActive() bool {
	return s == JobStatusDownloading || s == JobStatusProcessing || s == JobStatusCancelling
}

// IsTerminal returns true once the job can never run again
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError || s == JobStatusCancelled
}

// IsValidTransition enforces the allowed job state machine edges.
func IsValidTransition(from, to JobStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case JobStatusPending:
		return to == JobStatusDownloading || to == JobStatusCancelling || to == JobStatusCancelled || to == JobStatusError
	case JobStatusDownloading:
		return to == JobStatusProcessing || to == JobStatusCompleted || to == JobStatusError || to == JobStatusCancelling
	case JobStatusProcessing:
		return to == JobStatusCompleted || to == JobStatusError || to == JobStatusCancelling
	case JobStatusCancelling:
		return to == JobStatusCancelled
	default:
		return false
	}
}
