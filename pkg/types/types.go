// Package types defines the shared configuration and domain types for the LifeCompass backend
package types

// Role identifies what a user is allowed to do on the platform
type Role string

const (
	RoleJobSeeker Role = "job_seeker"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleJobSeeker, RoleRecruiter, RoleAdmin:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a job posting
type JobStatus string

const (
	JobStatusDraft  JobStatus = "draft"
	JobStatusActive JobStatus = "active"
	JobStatusPaused JobStatus = "paused"
	JobStatusClosed JobStatus = "closed"
)

// Valid reports whether s is a known job status
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusDraft, JobStatusActive, JobStatusPaused, JobStatusClosed:
		return true
	}
	return false
}

// ApplicationStatus is the pipeline stage of an application
type ApplicationStatus string

const (
	ApplicationSubmitted          ApplicationStatus = "submitted"
	ApplicationUnderReview        ApplicationStatus = "under_review"
	ApplicationShortlisted        ApplicationStatus = "shortlisted"
	ApplicationInterviewScheduled ApplicationStatus = "interview_scheduled"
	ApplicationInterviewed        ApplicationStatus = "interviewed"
	ApplicationOffered            ApplicationStatus = "offered"
	ApplicationRejected           ApplicationStatus = "rejected"
	ApplicationWithdrawn          ApplicationStatus = "withdrawn"
)

// ApplicationStatuses lists every status in pipeline order
var ApplicationStatuses = []ApplicationStatus{
	ApplicationSubmitted,
	ApplicationUnderReview,
	ApplicationShortlisted,
	ApplicationInterviewScheduled,
	ApplicationInterviewed,
	ApplicationOffered,
	ApplicationRejected,
	ApplicationWithdrawn,
}

// Valid reports whether s is a known application status
func (s ApplicationStatus) Valid() bool {
	for _, known := range ApplicationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Message types for chat messages
const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// SystemSenderID is the sender id used for platform generated messages
const SystemSenderID = "system"

// WorkTypes lists the accepted values of a job posting's work type
var WorkTypes = []string{"full-time", "part-time", "contract", "internship", "freelance"}
