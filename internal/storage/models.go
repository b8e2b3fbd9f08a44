// Package storage defines the database models and the Postgres and Redis access layers
package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lifecompass/backend/pkg/types"
)

// StringList is a list of strings stored as a JSON array column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// StringMap is a string map stored as a JSON object column
type StringMap map[string]string

// Value implements driver.Valuer
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (m *StringMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

func scanJSON(value interface{}, dest interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// newID assigns a UUID to an empty primary key
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// User is a platform account
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	FullName     string     `json:"full_name" gorm:"not null"`
	Role         types.Role `json:"role" gorm:"type:varchar(20);not null;default:job_seeker;index"`

	Bio             string     `json:"bio,omitempty"`
	Location        string     `json:"location,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	LinkedInURL     string     `json:"linkedin_url,omitempty"`
	Skills          StringList `json:"skills,omitempty" gorm:"type:jsonb"`
	ExperienceLevel string     `json:"experience_level,omitempty"`
	CurrentPosition string     `json:"current_position,omitempty"`
	CompanyName     string     `json:"company_name,omitempty"`
	CompanyWebsite  string     `json:"company_website,omitempty"`

	IsActive  bool       `json:"is_active" gorm:"default:true"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BeforeCreate assigns the id
func (u *User) BeforeCreate(tx *gorm.DB) error {
	newID(&u.ID)
	return nil
}

// Info returns the public view of the user
func (u *User) Info() *types.UserInfo {
	return &types.UserInfo{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		CompanyName: u.CompanyName,
	}
}

// JobPosting is an open (or draft, paused, closed) position
type JobPosting struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RecruiterID string `json:"recruiter_id" gorm:"type:varchar(36);not null;index"`

	Title            string `json:"title" gorm:"not null"`
	CompanyName      string `json:"company_name" gorm:"not null"`
	Description      string `json:"description" gorm:"type:text;not null"`
	Requirements     string `json:"requirements,omitempty" gorm:"type:text"`
	Responsibilities string `json:"responsibilities,omitempty" gorm:"type:text"`

	Location string `json:"location,omitempty"`
	IsRemote bool   `json:"is_remote" gorm:"default:false"`
	WorkType string `json:"work_type,omitempty" gorm:"type:varchar(50)"`

	SalaryMin *int   `json:"salary_min,omitempty"`
	SalaryMax *int   `json:"salary_max,omitempty"`
	Currency  string `json:"currency" gorm:"type:varchar(10);default:USD"`

	Department      string     `json:"department,omitempty"`
	ExperienceLevel string     `json:"experience_level,omitempty"`
	SkillsRequired  StringList `json:"skills_required" gorm:"type:jsonb"`
	SkillsPreferred StringList `json:"skills_preferred" gorm:"type:jsonb"`

	Status     types.JobStatus `json:"status" gorm:"type:varchar(20);default:draft;index"`
	IsFeatured bool            `json:"is_featured" gorm:"default:false"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	Recruiter *User `json:"recruiter,omitempty" gorm:"foreignKey:RecruiterID"`
}

// BeforeCreate assigns the id
func (j *JobPosting) BeforeCreate(tx *gorm.DB) error {
	newID(&j.ID)
	return nil
}

// Application is a job seeker's application to a posting
type Application struct {
	ID           string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	JobPostingID string `json:"job_posting_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_application_job_applicant"`
	ApplicantID  string `json:"applicant_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_application_job_applicant;index"`

	CoverLetter    string `json:"cover_letter,omitempty" gorm:"type:text"`
	ResumeURL      string `json:"resume_url"`
	ResumeFilename string `json:"resume_filename,omitempty"`

	Status          types.ApplicationStatus `json:"status" gorm:"type:varchar(30);default:submitted;index"`
	StatusUpdatedAt time.Time               `json:"status_updated_at"`
	StatusUpdatedBy string                  `json:"status_updated_by,omitempty" gorm:"type:varchar(36)"`

	Answers StringMap `json:"answers,omitempty" gorm:"type:jsonb"`
	Notes   string    `json:"notes,omitempty" gorm:"type:text"`
	Rating  *int      `json:"rating,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	JobPosting *JobPosting `json:"job_posting,omitempty" gorm:"foreignKey:JobPostingID"`
	Applicant  *User       `json:"applicant,omitempty" gorm:"foreignKey:ApplicantID"`
}

// BeforeCreate assigns the id
func (a *Application) BeforeCreate(tx *gorm.DB) error {
	newID(&a.ID)
	return nil
}

// ApplicationStatusHistory records one status transition
type ApplicationStatusHistory struct {
	ID            string                  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ApplicationID string                  `json:"application_id" gorm:"type:varchar(36);not null;index"`
	OldStatus     types.ApplicationStatus `json:"old_status,omitempty" gorm:"type:varchar(30)"`
	NewStatus     types.ApplicationStatus `json:"new_status" gorm:"type:varchar(30);not null"`
	ChangedBy     string                  `json:"changed_by" gorm:"type:varchar(36);not null"`
	Notes         string                  `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt     time.Time               `json:"created_at"`
}

// TableName keeps the singular history table name
func (ApplicationStatusHistory) TableName() string {
	return "application_status_history"
}

// BeforeCreate assigns the id
func (h *ApplicationStatusHistory) BeforeCreate(tx *gorm.DB) error {
	newID(&h.ID)
	return nil
}

// ChatMessage is a direct message between two users
type ChatMessage struct {
	ID            string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SenderID      string  `json:"sender_id" gorm:"type:varchar(36);not null;index"`
	RecipientID   string  `json:"recipient_id" gorm:"type:varchar(36);not null;index"`
	ApplicationID *string `json:"application_id,omitempty" gorm:"type:varchar(36);index"`

	Message     string `json:"message" gorm:"type:text;not null"`
	MessageType string `json:"message_type" gorm:"type:varchar(20);default:text"`
	FileURL     string `json:"file_url,omitempty"`
	FileName    string `json:"file_name,omitempty"`

	IsRead    bool       `json:"is_read" gorm:"default:false;index"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"index"`
}

// BeforeCreate assigns the id
func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	newID(&m.ID)
	return nil
}

// SavedJob bookmarks a posting for a job seeker
type SavedJob struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_saved_job_user"`
	JobPostingID string    `json:"job_posting_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_saved_job_user"`
	CreatedAt    time.Time `json:"created_at"`

	JobPosting *JobPosting `json:"job_posting,omitempty" gorm:"foreignKey:JobPostingID"`
}

// BeforeCreate assigns the id
func (s *SavedJob) BeforeCreate(tx *gorm.DB) error {
	newID(&s.ID)
	return nil
}
