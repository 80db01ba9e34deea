package model

import "time"

// ApplicationStatus is the loan application's review stage.
type ApplicationStatus string

const (
	ApplicationInProgress  ApplicationStatus = "in_progress"
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationApproved    ApplicationStatus = "approved"
	ApplicationRejected    ApplicationStatus = "rejected"
)

// Application is a loan application as returned by the application service.
// The portal never mutates it.
type Application struct {
	ID        string            `json:"id"`
	OrgName   string            `json:"orgName"`
	Status    ApplicationStatus `json:"status"`
	Documents []DocumentRef     `json:"documents"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// DocumentRef is the application's view of one attached document.
type DocumentRef struct {
	DocumentID string          `json:"documentId"`
	Kind       Kind            `json:"kind"`
	State      ProcessingState `json:"state"`
}
