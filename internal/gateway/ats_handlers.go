package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifecompass/backend/internal/ats"
	"github.com/lifecompass/backend/internal/auth"
	"github.com/lifecompass/backend/internal/middleware"
	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

// JobHandlers serves job postings and saved jobs
type JobHandlers struct {
	jobs   *ats.JobService
	logger *utils.Logger
}

// NewJobHandlers creates new job handlers
func NewJobHandlers(jobs *ats.JobService, logger *utils.Logger) *JobHandlers {
	return &JobHandlers{jobs: jobs, logger: logger}
}

// List returns a filtered page of postings
func (h *JobHandlers) List(c *gin.Context) {
	var filter types.JobFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}

	actor, _ := middleware.IdentityFromContext(c)
	jobs, total, err := h.jobs.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   jobs,
		"total":  total,
		"offset": filter.Offset,
		"limit":  filter.Limit,
	})
}

// Get returns one posting
func (h *JobHandlers) Get(c *gin.Context) {
	actor, _ := middleware.IdentityFromContext(c)
	job, err := h.jobs.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Create publishes a posting owned by the caller
func (h *JobHandlers) Create(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var in types.JobPostingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	job, err := h.jobs.Create(c.Request.Context(), actor, &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// Update replaces a posting's fields
func (h *JobHandlers) Update(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var in types.JobPostingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	job, err := h.jobs.Update(c.Request.Context(), actor, c.Param("id"), &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Delete closes a posting
func (h *JobHandlers) Delete(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if err := h.jobs.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job posting closed"})
}

// ChangeStatus moves a posting between draft, active, paused and closed
func (h *JobHandlers) ChangeStatus(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req types.JobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	job, err := h.jobs.ChangeStatus(c.Request.Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Stats counts the caller's postings
func (h *JobHandlers) Stats(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	stats, err := h.jobs.Stats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TrendingSkills ranks skills across active postings
func (h *JobHandlers) TrendingSkills(c *gin.Context) {
	skills, err := h.jobs.TrendingSkills(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills})
}

// Save bookmarks a posting
func (h *JobHandlers) Save(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	saved, err := h.jobs.SaveJob(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// Unsave removes a bookmark
func (h *JobHandlers) Unsave(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if err := h.jobs.UnsaveJob(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SavedJobs lists the caller's bookmarks
func (h *JobHandlers) SavedJobs(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	saved, err := h.jobs.SavedJobs(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved_jobs": saved})
}

// ApplicationHandlers serves applications and their pipeline
type ApplicationHandlers struct {
	applications *ats.ApplicationService
	messages     *ats.MessageService
	logger       *utils.Logger
}

// NewApplicationHandlers creates new application handlers
func NewApplicationHandlers(applications *ats.ApplicationService, messages *ats.MessageService, logger *utils.Logger) *ApplicationHandlers {
	return &ApplicationHandlers{applications: applications, messages: messages, logger: logger}
}

// Submit applies the caller to a job
func (h *ApplicationHandlers) Submit(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var in types.ApplicationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	app, err := h.applications.Submit(c.Request.Context(), actor, c.Param("id"), &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// ListForJob lists the applications to one of the caller's postings
func (h *ApplicationHandlers) ListForJob(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	apps, err := h.applications.ListForJob(c.Request.Context(), actor, c.Param("id"),
		types.ApplicationStatus(c.Query("status")), queryInt(c, "offset", 0), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// ListMine lists the caller's own applications
func (h *ApplicationHandlers) ListMine(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	apps, err := h.applications.ListMine(c.Request.Context(), actor,
		types.ApplicationStatus(c.Query("status")), queryInt(c, "offset", 0), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// Get returns one application
func (h *ApplicationHandlers) Get(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	app, err := h.applications.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// UpdateStatus moves an application along the pipeline
func (h *ApplicationHandlers) UpdateStatus(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req types.ApplicationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	app, err := h.applications.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req.Status, req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// BulkUpdate sets one status on many applications
func (h *ApplicationHandlers) BulkUpdate(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req types.BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.applications.BulkUpdate(c.Request.Context(), actor, req.ApplicationIDs, req.Status, req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Rate stores a recruiter rating
func (h *ApplicationHandlers) Rate(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req types.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	app, err := h.applications.Rate(c.Request.Context(), actor, c.Param("id"), req.Rating, req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// Withdraw lets the applicant pull out
func (h *ApplicationHandlers) Withdraw(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	app, err := h.applications.Withdraw(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// History lists the status transitions of an application
func (h *ApplicationHandlers) History(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	history, err := h.applications.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// Stats reports pipeline counts and conversion rates
func (h *ApplicationHandlers) Stats(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	stats, err := h.applications.Stats(c.Request.Context(), actor, c.Query("job_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Messages lists the chat tied to an application
func (h *ApplicationHandlers) Messages(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	msgs, err := h.messages.ApplicationMessages(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MessageHandlers serves direct messages
type MessageHandlers struct {
	messages *ats.MessageService
	logger   *utils.Logger
}

// NewMessageHandlers creates new message handlers
func NewMessageHandlers(messages *ats.MessageService, logger *utils.Logger) *MessageHandlers {
	return &MessageHandlers{messages: messages, logger: logger}
}

// Send delivers a message from the caller
func (h *MessageHandlers) Send(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req types.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Conversations lists the caller's chats
func (h *MessageHandlers) Conversations(c *gin.Context) {
	h.withActor(c, func(actor auth.Identity) (interface{}, error) {
		convs, err := h.messages.Conversations(c.Request.Context(), actor)
		return gin.H{"conversations": convs}, err
	})
}

// Conversation returns the messages exchanged with one user
func (h *MessageHandlers) Conversation(c *gin.Context) {
	h.withActor(c, func(actor auth.Identity) (interface{}, error) {
		msgs, err := h.messages.Conversation(c.Request.Context(), actor, c.Param("userId"),
			c.Query("application_id"), queryInt(c, "offset", 0), queryInt(c, "limit", 0))
		return gin.H{"messages": msgs}, err
	})
}

// MarkRead marks a conversation as read
func (h *MessageHandlers) MarkRead(c *gin.Context) {
	h.withActor(c, func(actor auth.Identity) (interface{}, error) {
		n, err := h.messages.MarkRead(c.Request.Context(), actor, c.Param("userId"))
		return gin.H{"marked_read": n}, err
	})
}

// UnreadCount counts the caller's unread messages
func (h *MessageHandlers) UnreadCount(c *gin.Context) {
	h.withActor(c, func(actor auth.Identity) (interface{}, error) {
		n, err := h.messages.UnreadCount(c.Request.Context(), actor)
		return gin.H{"unread_count": n}, err
	})
}

// Search finds the caller's messages by text
func (h *MessageHandlers) Search(c *gin.Context) {
	h.withActor(c, func(actor auth.Identity) (interface{}, error) {
		msgs, err := h.messages.Search(c.Request.Context(), actor, c.Query("q"), queryInt(c, "limit", 0))
		return gin.H{"messages": msgs}, err
	})
}

// Delete removes one of the caller's messages
func (h *MessageHandlers) Delete(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if err := h.messages.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// withActor runs fn for the authenticated caller and writes its result as JSON
func (h *MessageHandlers) withActor(c *gin.Context, fn func(auth.Identity) (interface{}, error)) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	body, err := fn(actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, body)
}
