package ats

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lifecompass/backend/internal/auth"
	"github.com/lifecompass/backend/internal/storage"
	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	trendingCacheKey = "trending_skills"
	trendingCacheTTL = 10 * time.Minute
	recentJobWindow  = 30 * 24 * time.Hour
)

// JobStats summarises postings for a recruiter or the whole platform
type JobStats struct {
	TotalJobs  int64 `json:"total_jobs"`
	ActiveJobs int64 `json:"active_jobs"`
	DraftJobs  int64 `json:"draft_jobs"`
	ClosedJobs int64 `json:"closed_jobs"`
	RecentJobs int64 `json:"recent_jobs"`
}

// SkillCount is one entry of the trending skills ranking
type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// JobService manages job postings and saved jobs
type JobService struct {
	db     *gorm.DB
	cache  *storage.CacheManager
	logger *utils.Logger
}

// NewJobService creates the service; cache may be nil
func NewJobService(db *gorm.DB, cache *storage.CacheManager, logger *utils.Logger) *JobService {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &JobService{db: db, cache: cache, logger: logger}
}

// ValidateJobInput checks the required fields, salary range and work type
func ValidateJobInput(in *types.JobPostingInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "title is required"
	}
	if strings.TrimSpace(in.CompanyName) == "" {
		fields["company_name"] = "company_name is required"
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "description is required"
	}
	if in.SalaryMin != nil && in.SalaryMax != nil && *in.SalaryMin > *in.SalaryMax {
		fields["salary"] = "Minimum salary cannot be greater than maximum salary"
	}
	if in.WorkType != "" && !validWorkType(in.WorkType) {
		fields["work_type"] = "Work type must be one of: " + strings.Join(types.WorkTypes, ", ")
	}
	if in.Status != "" && !in.Status.Valid() {
		fields["status"] = "unknown status"
	}
	return validation(fields)
}

func validWorkType(wt string) bool {
	for _, known := range types.WorkTypes {
		if wt == known {
			return true
		}
	}
	return false
}

// canManageJob reports whether actor may edit job
func canManageJob(actor auth.Identity, job *storage.JobPosting) bool {
	if auth.Can(actor, auth.PermManageAllJobs) {
		return true
	}
	return auth.Can(actor, auth.PermEditOwnJobs) && job.RecruiterID == actor.UserID
}

// Create stores a new posting owned by actor
func (s *JobService) Create(ctx context.Context, actor auth.Identity, in *types.JobPostingInput) (*storage.JobPosting, error) {
	if !auth.Can(actor, auth.PermPostJobs) {
		return nil, ErrForbidden
	}
	if err := ValidateJobInput(in); err != nil {
		return nil, err
	}

	job := &storage.JobPosting{RecruiterID: actor.UserID}
	applyJobInput(job, in)
	if job.Status == "" {
		job.Status = types.JobStatusDraft
	}

	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job posting: %w", err)
	}

	s.invalidateTrending(ctx)
	s.logger.WithUserID(actor.UserID).WithField("job_id", job.ID).Info("Job posting created")
	return job, nil
}

func applyJobInput(job *storage.JobPosting, in *types.JobPostingInput) {
	job.Title = strings.TrimSpace(in.Title)
	job.CompanyName = strings.TrimSpace(in.CompanyName)
	job.Description = in.Description
	job.Requirements = in.Requirements
	job.Responsibilities = in.Responsibilities
	job.Location = in.Location
	job.IsRemote = in.IsRemote
	job.WorkType = in.WorkType
	job.SalaryMin = in.SalaryMin
	job.SalaryMax = in.SalaryMax
	job.Currency = in.Currency
	if job.Currency == "" {
		job.Currency = "USD"
	}
	job.Department = in.Department
	job.ExperienceLevel = in.ExperienceLevel
	job.SkillsRequired = storage.StringList(in.SkillsRequired)
	job.SkillsPreferred = storage.StringList(in.SkillsPreferred)
	if in.Status != "" {
		job.Status = in.Status
	}
	job.IsFeatured = in.IsFeatured
	job.ExpiresAt = in.ExpiresAt
}

// load fetches a posting regardless of visibility
func (s *JobService) load(ctx context.Context, id string) (*storage.JobPosting, error) {
	var job storage.JobPosting
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Get returns a posting. Only active postings are visible to people who
// cannot manage them.
func (s *JobService) Get(ctx context.Context, actor auth.Identity, id string) (*storage.JobPosting, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != types.JobStatusActive && !canManageJob(actor, job) {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// List returns one page of postings and the total number of matches
func (s *JobService) List(ctx context.Context, actor auth.Identity, f types.JobFilter) ([]storage.JobPosting, int64, error) {
	q := s.db.WithContext(ctx).Model(&storage.JobPosting{})

	if f.RecruiterID != "" {
		q = q.Where("recruiter_id = ?", f.RecruiterID)
	}
	seesAll := actor.IsAdmin() || (f.RecruiterID != "" && f.RecruiterID == actor.UserID)
	switch {
	case seesAll && f.Status != "":
		q = q.Where("status = ?", f.Status)
	case !seesAll:
		q = q.Where("status = ?", types.JobStatusActive)
	}

	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("(title ILIKE ? OR description ILIKE ? OR company_name ILIKE ?)", like, like, like)
	}
	if f.Location != "" {
		q = q.Where("location ILIKE ?", "%"+f.Location+"%")
	}
	if f.WorkType != "" {
		q = q.Where("work_type = ?", f.WorkType)
	}
	if f.IsRemote != nil {
		q = q.Where("is_remote = ?", *f.IsRemote)
	}
	if f.SalaryMin > 0 {
		q = q.Where("salary_max >= ?", f.SalaryMin)
	}
	if f.SalaryMax > 0 {
		q = q.Where("salary_min <= ?", f.SalaryMax)
	}
	if f.Skill != "" {
		needle, _ := json.Marshal([]string{f.Skill})
		q = q.Where("(skills_required @> ?::jsonb OR skills_preferred @> ?::jsonb)", string(needle), string(needle))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count job postings: %w", err)
	}

	offset, limit := page(f.Offset, f.Limit)
	var jobs []storage.JobPosting
	err := q.Order(jobOrder(f.SortBy, f.SortOrder)).Offset(offset).Limit(limit).Find(&jobs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list job postings: %w", err)
	}
	return jobs, total, nil
}

// jobOrder maps the public sort keys onto columns; anything unknown sorts by newest
func jobOrder(sortBy, order string) string {
	column := "created_at"
	switch sortBy {
	case "salary", "salary_max":
		column = "salary_max"
	case "salary_min":
		column = "salary_min"
	case "title":
		column = "title"
	}
	direction := "DESC"
	if strings.EqualFold(order, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

// page clamps pagination parameters
func page(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}

// Update replaces the editable fields of a posting
func (s *JobService) Update(ctx context.Context, actor auth.Identity, id string, in *types.JobPostingInput) (*storage.JobPosting, error) {
	if err := ValidateJobInput(in); err != nil {
		return nil, err
	}
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageJob(actor, job) {
		return nil, ErrForbidden
	}

	applyJobInput(job, in)
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return nil, fmt.Errorf("failed to update job posting: %w", err)
	}
	s.invalidateTrending(ctx)
	return job, nil
}

// Delete closes a posting; rows are kept for the application history
func (s *JobService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	_, err := s.ChangeStatus(ctx, actor, id, types.JobStatusClosed)
	return err
}

// ChangeStatus moves a posting to status
func (s *JobService) ChangeStatus(ctx context.Context, actor auth.Identity, id string, status types.JobStatus) (*storage.JobPosting, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageJob(actor, job) {
		return nil, ErrForbidden
	}

	err = s.db.WithContext(ctx).Model(job).Update("status", status).Error
	if err != nil {
		return nil, fmt.Errorf("failed to change job status: %w", err)
	}
	job.Status = status
	s.invalidateTrending(ctx)

	s.logger.WithUserID(actor.UserID).
		WithField("job_id", id).
		WithField("status", status).
		Info("Job posting status changed")
	return job, nil
}

// Stats counts postings: platform wide for admins, own postings otherwise
func (s *JobService) Stats(ctx context.Context, actor auth.Identity) (*JobStats, error) {
	if !auth.Can(actor, auth.PermViewAnalytics) {
		return nil, ErrForbidden
	}

	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&storage.JobPosting{})
		if !actor.IsAdmin() {
			q = q.Where("recruiter_id = ?", actor.UserID)
		}
		return q
	}

	var stats JobStats
	counts := []struct {
		dest  *int64
		where func(*gorm.DB) *gorm.DB
	}{
		{&stats.TotalJobs, func(q *gorm.DB) *gorm.DB { return q }},
		{&stats.ActiveJobs, func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", types.JobStatusActive) }},
		{&stats.DraftJobs, func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", types.JobStatusDraft) }},
		{&stats.ClosedJobs, func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", types.JobStatusClosed) }},
		{&stats.RecentJobs, func(q *gorm.DB) *gorm.DB { return q.Where("created_at >= ?", time.Now().Add(-recentJobWindow)) }},
	}
	for _, c := range counts {
		if err := c.where(base()).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count job postings: %w", err)
		}
	}
	return &stats, nil
}

// TrendingSkills ranks the skills named by active postings
func (s *JobService) TrendingSkills(ctx context.Context, limit int) ([]SkillCount, error) {
	if limit <= 0 {
		limit = 10
	}

	load := func() (interface{}, error) {
		var jobs []storage.JobPosting
		err := s.db.WithContext(ctx).
			Select("skills_required", "skills_preferred").
			Where("status = ?", types.JobStatusActive).
			Find(&jobs).Error
		if err != nil {
			return nil, err
		}
		return RankSkills(jobs), nil
	}

	var ranked []SkillCount
	if s.cache != nil {
		if err := s.cache.GetOrSet(ctx, trendingCacheKey, &ranked, load, trendingCacheTTL); err != nil {
			return nil, fmt.Errorf("failed to compute trending skills: %w", err)
		}
	} else {
		v, err := load()
		if err != nil {
			return nil, fmt.Errorf("failed to compute trending skills: %w", err)
		}
		ranked = v.([]SkillCount)
	}

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// RankSkills counts required and preferred skills, most frequent first.
// Ties are broken alphabetically so the ranking is stable.
func RankSkills(jobs []storage.JobPosting) []SkillCount {
	counts := map[string]int{}
	for _, job := range jobs {
		for _, skill := range job.SkillsRequired {
			counts[skill]++
		}
		for _, skill := range job.SkillsPreferred {
			counts[skill]++
		}
	}

	out := make([]SkillCount, 0, len(counts))
	for skill, n := range counts {
		out = append(out, SkillCount{Skill: skill, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Skill < out[j].Skill
	})
	return out
}

func (s *JobService) invalidateTrending(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, trendingCacheKey); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate trending skills cache")
	}
}
