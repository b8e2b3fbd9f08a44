package ats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lifecompass/backend/internal/auth"
	"github.com/lifecompass/backend/internal/storage"
	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

var resumeExtensions = []string{".pdf", ".doc", ".docx"}

// Notifier delivers platform messages to users
type Notifier interface {
	SystemMessage(ctx context.Context, recipientID, applicationID, text string) (*storage.ChatMessage, error)
}

// ApplicationStats summarises the pipeline of one job, one recruiter or the platform
type ApplicationStats struct {
	TotalApplications int64                             `json:"total_applications"`
	StatusCounts      map[types.ApplicationStatus]int64 `json:"status_counts"`
	ConversionRates   map[string]float64                `json:"conversion_rates"`
}

// BulkResult reports which applications a bulk update touched
type BulkResult struct {
	Updated []string `json:"updated"`
	Skipped []string `json:"skipped"`
}

// ApplicationService manages applications and their status history
type ApplicationService struct {
	db       *gorm.DB
	notifier Notifier
	logger   *utils.Logger
}

// NewApplicationService creates the service; notifier may be nil
func NewApplicationService(db *gorm.DB, notifier Notifier, logger *utils.Logger) *ApplicationService {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &ApplicationService{db: db, notifier: notifier, logger: logger}
}

// ValidateApplicationInput requires a resume in an accepted format
func ValidateApplicationInput(in *types.ApplicationInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.ResumeURL) == "" {
		fields["resume"] = "Resume is required"
	}
	if in.ResumeFilename != "" && !hasResumeExtension(in.ResumeFilename) {
		fields["resume_format"] = "Resume must be in PDF, DOC, or DOCX format"
	}
	return validation(fields)
}

func hasResumeExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range resumeExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// canAccessApplication: the applicant, the owner of the job, or an admin
func canAccessApplication(actor auth.Identity, app *storage.Application) bool {
	if actor.IsAdmin() || app.ApplicantID == actor.UserID {
		return true
	}
	return app.JobPosting != nil && app.JobPosting.RecruiterID == actor.UserID
}

// canManageApplication: the owner of the job or an admin
func canManageApplication(actor auth.Identity, app *storage.Application) bool {
	if actor.IsAdmin() {
		return true
	}
	return auth.Can(actor, auth.PermUpdateApplicationState) &&
		app.JobPosting != nil && app.JobPosting.RecruiterID == actor.UserID
}

// Submit applies the actor to an active job
func (s *ApplicationService) Submit(ctx context.Context, actor auth.Identity, jobID string, in *types.ApplicationInput) (*storage.Application, error) {
	if !auth.Can(actor, auth.PermApplyToJobs) || actor.Role != types.RoleJobSeeker {
		return nil, ErrForbidden
	}
	if err := ValidateApplicationInput(in); err != nil {
		return nil, err
	}

	var app *storage.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job storage.JobPosting
		if err := tx.Where("id = ?", jobID).First(&job).Error; err != nil {
			if storage.IsNotFound(err) {
				return ErrJobNotFound
			}
			return err
		}
		if job.Status != types.JobStatusActive {
			return ErrJobNotActive
		}

		var existing int64
		err := tx.Model(&storage.Application{}).
			Where("job_posting_id = ? AND applicant_id = ?", jobID, actor.UserID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyApplied
		}

		now := time.Now()
		app = &storage.Application{
			JobPostingID:    jobID,
			ApplicantID:     actor.UserID,
			CoverLetter:     in.CoverLetter,
			ResumeURL:       in.ResumeURL,
			ResumeFilename:  in.ResumeFilename,
			Answers:         storage.StringMap(in.Answers),
			Status:          types.ApplicationSubmitted,
			StatusUpdatedAt: now,
			StatusUpdatedBy: actor.UserID,
		}
		if err := tx.Create(app).Error; err != nil {
			// a concurrent submit won the unique index
			if storage.IsDuplicate(err) {
				return ErrAlreadyApplied
			}
			return err
		}
		app.JobPosting = &job

		return tx.Create(&storage.ApplicationStatusHistory{
			ApplicationID: app.ID,
			NewStatus:     types.ApplicationSubmitted,
			ChangedBy:     actor.UserID,
			Notes:         "Application submitted",
		}).Error
	})
	if err != nil {
		return nil, wrapDB("submit application", err)
	}

	s.logger.WithUserID(actor.UserID).
		WithField("job_id", jobID).
		WithField("application_id", app.ID).
		Info("Application submitted")
	return app, nil
}

// load fetches an application with its job posting
func (s *ApplicationService) load(ctx context.Context, db *gorm.DB, id string) (*storage.Application, error) {
	var app storage.Application
	if err := db.WithContext(ctx).Preload("JobPosting").Where("id = ?", id).First(&app).Error; err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

// Get returns an application the actor may see
func (s *ApplicationService) Get(ctx context.Context, actor auth.Identity, id string) (*storage.Application, error) {
	app, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !canAccessApplication(actor, app) {
		return nil, ErrForbidden
	}
	return app, nil
}

// ListForJob lists the applications to one job, newest first
func (s *ApplicationService) ListForJob(ctx context.Context, actor auth.Identity, jobID string, status types.ApplicationStatus, offset, limit int) ([]storage.Application, error) {
	var job storage.JobPosting
	if err := s.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error; err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if !actor.IsAdmin() && job.RecruiterID != actor.UserID {
		return nil, ErrForbidden
	}

	q := s.db.WithContext(ctx).Preload("Applicant").Where("job_posting_id = ?", jobID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	offset, limit = page(offset, limit)
	var apps []storage.Application
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// ListMine lists the actor's own applications, newest first
func (s *ApplicationService) ListMine(ctx context.Context, actor auth.Identity, status types.ApplicationStatus, offset, limit int) ([]storage.Application, error) {
	q := s.db.WithContext(ctx).Preload("JobPosting").Where("applicant_id = ?", actor.UserID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	offset, limit = page(offset, limit)
	var apps []storage.Application
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// UpdateStatus moves an application along the pipeline and notifies the applicant
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor auth.Identity, id string, status types.ApplicationStatus, notes string) (*storage.Application, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var app *storage.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !canManageApplication(actor, app) {
			return ErrForbidden
		}
		return s.transition(tx, app, status, actor.UserID, notes)
	})
	if err != nil {
		return nil, wrapDB("update application status", err)
	}

	s.notifyStatus(ctx, app)
	return app, nil
}

// transition writes the new status and its history row inside tx
func (s *ApplicationService) transition(tx *gorm.DB, app *storage.Application, status types.ApplicationStatus, by, notes string) error {
	old := app.Status
	now := time.Now()

	updates := map[string]interface{}{
		"status":            status,
		"status_updated_at": now,
		"status_updated_by": by,
	}
	if notes != "" {
		updates["notes"] = notes
	}
	if err := tx.Model(&storage.Application{}).Where("id = ?", app.ID).Updates(updates).Error; err != nil {
		return err
	}

	app.Status = status
	app.StatusUpdatedAt = now
	app.StatusUpdatedBy = by
	if notes != "" {
		app.Notes = notes
	}

	return tx.Create(&storage.ApplicationStatusHistory{
		ApplicationID: app.ID,
		OldStatus:     old,
		NewStatus:     status,
		ChangedBy:     by,
		Notes:         notes,
	}).Error
}

func (s *ApplicationService) notifyStatus(ctx context.Context, app *storage.Application) {
	if s.notifier == nil {
		return
	}
	title := "your application"
	if app.JobPosting != nil {
		title = "your application for " + app.JobPosting.Title
	}
	text := fmt.Sprintf("The status of %s changed to %s.", title, strings.ReplaceAll(string(app.Status), "_", " "))
	if _, err := s.notifier.SystemMessage(ctx, app.ApplicantID, app.ID, text); err != nil {
		s.logger.WithError(err).WithField("application_id", app.ID).Warn("Failed to send status notification")
	}
}

// Rate stores a 1-5 recruiter rating
func (s *ApplicationService) Rate(ctx context.Context, actor auth.Identity, id string, rating int, notes string) (*storage.Application, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	if !auth.Can(actor, auth.PermRateApplications) {
		return nil, ErrForbidden
	}

	app, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !canManageApplication(actor, app) {
		return nil, ErrForbidden
	}

	updates := map[string]interface{}{"rating": rating}
	if notes != "" {
		updates["notes"] = notes
	}
	if err := s.db.WithContext(ctx).Model(&storage.Application{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to rate application: %w", err)
	}
	app.Rating = &rating
	if notes != "" {
		app.Notes = notes
	}
	return app, nil
}

// Withdraw lets the applicant pull out unless an offer or rejection was made
func (s *ApplicationService) Withdraw(ctx context.Context, actor auth.Identity, id string) (*storage.Application, error) {
	var app *storage.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if app.ApplicantID != actor.UserID {
			return ErrApplicationNotFound
		}
		if !CanWithdraw(app.Status) {
			return ErrCannotWithdraw
		}
		return s.transition(tx, app, types.ApplicationWithdrawn, actor.UserID, "Application withdrawn by candidate")
	})
	if err != nil {
		return nil, wrapDB("withdraw application", err)
	}
	return app, nil
}

// CanWithdraw reports whether an application in status may be withdrawn
func CanWithdraw(status types.ApplicationStatus) bool {
	switch status {
	case types.ApplicationOffered, types.ApplicationRejected, types.ApplicationWithdrawn:
		return false
	}
	return true
}

// History returns the status transitions of an application in order
func (s *ApplicationService) History(ctx context.Context, actor auth.Identity, id string) ([]storage.ApplicationStatusHistory, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}

	var history []storage.ApplicationStatusHistory
	err := s.db.WithContext(ctx).Where("application_id = ?", id).Order("created_at ASC").Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load application history: %w", err)
	}
	return history, nil
}

// Stats counts applications by status. jobID narrows to one posting;
// otherwise recruiters see their own postings and admins everything.
func (s *ApplicationService) Stats(ctx context.Context, actor auth.Identity, jobID string) (*ApplicationStats, error) {
	if !auth.Can(actor, auth.PermViewAnalytics) {
		return nil, ErrForbidden
	}

	q := s.db.WithContext(ctx).Model(&storage.Application{})
	switch {
	case jobID != "":
		var job storage.JobPosting
		if err := s.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error; err != nil {
			if storage.IsNotFound(err) {
				return nil, ErrJobNotFound
			}
			return nil, err
		}
		if !actor.IsAdmin() && job.RecruiterID != actor.UserID {
			return nil, ErrForbidden
		}
		q = q.Where("job_posting_id = ?", jobID)
	case !actor.IsAdmin():
		owned := s.db.Model(&storage.JobPosting{}).Select("id").Where("recruiter_id = ?", actor.UserID)
		q = q.Where("job_posting_id IN (?)", owned)
	}

	var rows []struct {
		Status types.ApplicationStatus
		Count  int64
	}
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}

	counts := make(map[types.ApplicationStatus]int64, len(types.ApplicationStatuses))
	for _, st := range types.ApplicationStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return BuildApplicationStats(counts), nil
}

// BuildApplicationStats derives the totals and conversion rates from status counts.
// Rates are percentages of all applications and are empty when there are none.
func BuildApplicationStats(counts map[types.ApplicationStatus]int64) *ApplicationStats {
	var total int64
	for _, n := range counts {
		total += n
	}

	stats := &ApplicationStats{
		TotalApplications: total,
		StatusCounts:      counts,
		ConversionRates:   map[string]float64{},
	}
	if total == 0 {
		return stats
	}

	underReview := counts[types.ApplicationUnderReview]
	shortlisted := counts[types.ApplicationShortlisted]
	interviewed := counts[types.ApplicationInterviewed]
	offered := counts[types.ApplicationOffered]

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }
	stats.ConversionRates["review_rate"] = pct(underReview + shortlisted + interviewed + offered)
	stats.ConversionRates["shortlist_rate"] = pct(shortlisted + interviewed + offered)
	stats.ConversionRates["interview_rate"] = pct(interviewed + offered)
	stats.ConversionRates["offer_rate"] = pct(offered)
	return stats
}

// BulkUpdate sets status on every listed application the actor manages and
// skips the rest.
func (s *ApplicationService) BulkUpdate(ctx context.Context, actor auth.Identity, ids []string, status types.ApplicationStatus, notes string) (*BulkResult, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if !auth.Can(actor, auth.PermUpdateApplicationState) {
		return nil, ErrForbidden
	}

	result := &BulkResult{Updated: []string{}, Skipped: []string{}}
	var changed []*storage.Application

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var apps []storage.Application
		if err := tx.Preload("JobPosting").Where("id IN ?", ids).Find(&apps).Error; err != nil {
			return err
		}

		found := make(map[string]bool, len(apps))
		for i := range apps {
			app := &apps[i]
			found[app.ID] = true
			if !canManageApplication(actor, app) {
				result.Skipped = append(result.Skipped, app.ID)
				continue
			}
			if err := s.transition(tx, app, status, actor.UserID, notes); err != nil {
				return err
			}
			result.Updated = append(result.Updated, app.ID)
			changed = append(changed, app)
		}
		for _, id := range ids {
			if !found[id] {
				result.Skipped = append(result.Skipped, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapDB("bulk update applications", err)
	}

	for _, app := range changed {
		s.notifyStatus(ctx, app)
	}

	s.logger.WithUserID(actor.UserID).
		WithField("updated", len(result.Updated)).
		WithField("skipped", len(result.Skipped)).
		Info("Bulk application update")
	return result, nil
}

// wrapDB annotates unexpected errors and passes domain sentinels through
func wrapDB(op string, err error) error {
	if isDomainError(err) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isDomainError(err error) bool {
	switch err {
	case ErrJobNotFound, ErrApplicationNotFound, ErrMessageNotFound, ErrUserNotFound,
		ErrForbidden, ErrAlreadyApplied, ErrJobNotActive, ErrInvalidStatus,
		ErrInvalidRating, ErrCannotWithdraw, ErrChatNotAllowed, ErrAlreadySaved:
		return true
	}
	_, ok := err.(*ValidationError)
	return ok
}
