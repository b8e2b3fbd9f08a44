package types

import "time"

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Message  string `json:"message" binding:"required"`
	Provider string `json:"provider,omitempty"`
}

// ChatResponse is returned when a reply was generated
type ChatResponse struct {
	Reply    string `json:"reply"`
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
	Fallback bool   `json:"fallback,omitempty"`
}

// ResumeAnalysisRequest is the body of POST /api/resume/analyze
type ResumeAnalysisRequest struct {
	ResumeText string `json:"resume_text" binding:"required"`
	Provider   string `json:"provider,omitempty"`
}

// JobRecommendationRequest is the body of POST /api/jobs/recommend
type JobRecommendationRequest struct {
	Skills   []string `json:"skills" binding:"required,min=1"`
	Provider string   `json:"provider,omitempty"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	FullName    string `json:"full_name" binding:"required"`
	Role        Role   `json:"role" binding:"omitempty,oneof=job_seeker recruiter"`
	CompanyName string `json:"company_name,omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserInfo is the public view of a user
type UserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Role        Role   `json:"role"`
	CompanyName string `json:"company_name,omitempty"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	User      *UserInfo `json:"user"`
}

// ChangeRoleRequest is the body of PUT /api/admin/users/:id/role
type ChangeRoleRequest struct {
	Role Role `json:"role" binding:"required,oneof=job_seeker recruiter admin"`
}

// JobPostingInput carries the editable fields of a job posting
type JobPostingInput struct {
	Title            string     `json:"title"`
	CompanyName      string     `json:"company_name"`
	Description      string     `json:"description"`
	Requirements     string     `json:"requirements,omitempty"`
	Responsibilities string     `json:"responsibilities,omitempty"`
	Location         string     `json:"location,omitempty"`
	IsRemote         bool       `json:"is_remote"`
	WorkType         string     `json:"work_type,omitempty"`
	SalaryMin        *int       `json:"salary_min,omitempty"`
	SalaryMax        *int       `json:"salary_max,omitempty"`
	Currency         string     `json:"currency,omitempty"`
	Department       string     `json:"department,omitempty"`
	ExperienceLevel  string     `json:"experience_level,omitempty"`
	SkillsRequired   []string   `json:"skills_required,omitempty"`
	SkillsPreferred  []string   `json:"skills_preferred,omitempty"`
	Status           JobStatus  `json:"status,omitempty"`
	IsFeatured       bool       `json:"is_featured"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

// JobStatusRequest is the body of PUT /api/jobs/:id/status
type JobStatusRequest struct {
	Status JobStatus `json:"status" binding:"required,oneof=draft active paused closed"`
}

// JobFilter narrows a job listing
type JobFilter struct {
	Search      string    `form:"search"`
	Location    string    `form:"location"`
	WorkType    string    `form:"work_type"`
	IsRemote    *bool     `form:"is_remote"`
	SalaryMin   int       `form:"salary_min"`
	SalaryMax   int       `form:"salary_max"`
	Skill       string    `form:"skill"`
	RecruiterID string    `form:"recruiter_id"`
	Status      JobStatus `form:"status"`
	SortBy      string    `form:"sort_by"`
	SortOrder   string    `form:"sort_order"`
	Offset      int       `form:"offset"`
	Limit       int       `form:"limit"`
}

// ApplicationInput is the body of POST /api/jobs/:id/applications
type ApplicationInput struct {
	CoverLetter    string            `json:"cover_letter,omitempty"`
	ResumeURL      string            `json:"resume_url"`
	ResumeFilename string            `json:"resume_filename,omitempty"`
	Answers        map[string]string `json:"answers,omitempty"`
}

// ApplicationStatusRequest is the body of PUT /api/applications/:id/status
type ApplicationStatusRequest struct {
	Status ApplicationStatus `json:"status" binding:"required"`
	Notes  string            `json:"notes,omitempty"`
}

// BulkStatusRequest updates several applications at once
type BulkStatusRequest struct {
	ApplicationIDs []string          `json:"application_ids" binding:"required,min=1"`
	Status         ApplicationStatus `json:"status" binding:"required"`
	Notes          string            `json:"notes,omitempty"`
}

// RatingRequest is the body of PUT /api/applications/:id/rating
type RatingRequest struct {
	Rating int    `json:"rating" binding:"required"`
	Notes  string `json:"notes,omitempty"`
}

// SendMessageRequest is the body of POST /api/messages
type SendMessageRequest struct {
	RecipientID   string `json:"recipient_id" binding:"required"`
	Message       string `json:"message"`
	ApplicationID string `json:"application_id,omitempty"`
	MessageType   string `json:"message_type,omitempty"`
	FileURL       string `json:"file_url,omitempty"`
	FileName      string `json:"file_name,omitempty"`
}
