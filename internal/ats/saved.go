package ats

import (
	"context"
	"fmt"

	"github.com/lifecompass/backend/internal/auth"
	"github.com/lifecompass/backend/internal/storage"
	"github.com/lifecompass/backend/pkg/types"
)

// SaveJob bookmarks an active posting for a job seeker
func (s *JobService) SaveJob(ctx context.Context, actor auth.Identity, jobID string) (*storage.SavedJob, error) {
	if !auth.Can(actor, auth.PermSaveJobs) {
		return nil, ErrForbidden
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != types.JobStatusActive {
		return nil, ErrJobNotFound
	}

	var existing int64
	err = s.db.WithContext(ctx).Model(&storage.SavedJob{}).
		Where("user_id = ? AND job_posting_id = ?", actor.UserID, jobID).
		Count(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check saved jobs: %w", err)
	}
	if existing > 0 {
		return nil, ErrAlreadySaved
	}

	saved := &storage.SavedJob{UserID: actor.UserID, JobPostingID: jobID}
	if err := s.db.WithContext(ctx).Create(saved).Error; err != nil {
		if storage.IsDuplicate(err) {
			return nil, ErrAlreadySaved
		}
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	saved.JobPosting = job
	return saved, nil
}

// UnsaveJob removes a bookmark
func (s *JobService) UnsaveJob(ctx context.Context, actor auth.Identity, jobID string) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND job_posting_id = ?", actor.UserID, jobID).
		Delete(&storage.SavedJob{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove saved job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// SavedJobs lists the actor's bookmarks, newest first
func (s *JobService) SavedJobs(ctx context.Context, actor auth.Identity) ([]storage.SavedJob, error) {
	var saved []storage.SavedJob
	err := s.db.WithContext(ctx).
		Preload("JobPosting").
		Where("user_id = ?", actor.UserID).
		Order("created_at DESC").
		Find(&saved).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list saved jobs: %w", err)
	}
	return saved, nil
}
