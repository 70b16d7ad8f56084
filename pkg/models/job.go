// Package models contains shared data models used across the copydesk codebase.
package models

import (
	"time"
)

const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// ContentType is the kind of copy being optimized.
type ContentType string

const (
	ContentTypeArticle    ContentType = "article"
	ContentTypeSocialPost ContentType = "social_post"
	ContentTypeAdCopy     ContentType = "ad_copy"
)

var validContentTypes = map[ContentType]bool{
	ContentTypeArticle:    true,
	ContentTypeSocialPost: true,
	ContentTypeAdCopy:     true,
}

// Valid reports whether t is one of the content types the service accepts.
func (t ContentType) Valid() bool {
	return validContentTypes[t]
}

// DefaultFailureMessage is shown for failed jobs that carry no error text.
const DefaultFailureMessage = "Content optimization failed"

// Job is one content optimization request as reported by the remote service.
// The client submits content and polls GET /api/content/job/{id} until status
// is completed or failed. Analysis, Optimization and Variants are filled in
// independently and may appear while the job is still processing.
type Job struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Content      string        `json:"original_content"`
	ContentType  ContentType   `json:"content_type"`
	Status       string        `json:"status"`
	Error        *string       `json:"error,omitempty"`
	Analysis     *Analysis     `json:"analysis,omitempty"`
	Optimization *Optimization `json:"optimization,omitempty"`
	Variants     *Variants     `json:"variants,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// IsTerminal reports whether the job has reached completed or failed.
func (j *Job) IsTerminal() bool {
	return IsTerminalStatus(j.Status)
}

// FailureMessage returns the service-provided error or a generic message.
func (j *Job) FailureMessage() string {
	if j.Error != nil && *j.Error != "" {
		return *j.Error
	}
	return DefaultFailureMessage
}

// Clone returns a deep copy so callers can hand out jobs without sharing
// slices or maps with the store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Error != nil {
		msg := *j.Error
		c.Error = &msg
	}
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		c.CompletedAt = &at
	}
	c.Analysis = j.Analysis.clone()
	c.Optimization = j.Optimization.clone()
	c.Variants = j.Variants.clone()
	return &c
}

// IsTerminalStatus reports whether status is completed or failed.
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}
