// Package model contains the struct definitions shared by the portal and the
// reference backend.
package model

import (
	"encoding/json"
	"time"
)

// ProcessingState describes the backend analysis lifecycle of a document. A
// document only reports StateProcessing between the process command and a
// terminal state.
type ProcessingState string

const (
	StatePending    ProcessingState = "pending"
	StateProcessing ProcessingState = "processing"
	StateCompleted  ProcessingState = "completed"
	StateFailed     ProcessingState = "failed"
)

// Valid reports whether s is one of the four known states.
func (s ProcessingState) Valid() bool {
	switch s {
	case StatePending, StateProcessing, StateCompleted, StateFailed:
		return true
	}
	return false
}

// Terminal reports whether processing has finished, successfully or not.
func (s ProcessingState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Document is the metadata record for one piece of borrower paperwork. An
// empty ID means the record has not been created yet.
type Document struct {
	ID               string          `json:"id"`
	ApplicationID    string          `json:"applicationId"`
	OwnerUserID      string          `json:"ownerUserId"`
	OrgName          string          `json:"orgName"`
	Kind             Kind            `json:"kind"`
	Description      string          `json:"description,omitempty"`
	OriginalFilename string          `json:"originalFilename"`
	MimeType         string          `json:"mimeType"`
	StorageKey       string          `json:"storageKey"`
	State            ProcessingState `json:"state"`
	// RawMetadata is opaque extracted data; only its presence is meaningful.
	RawMetadata   json.RawMessage `json:"rawMetadata,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// HasFile reports whether bytes were registered for the document.
func (d *Document) HasFile() bool {
	return d.OriginalFilename != ""
}

// HasExtractedData reports whether the backend attached extracted metadata.
func (d *Document) HasExtractedData() bool {
	return len(d.RawMetadata) > 0 && string(d.RawMetadata) != "null"
}
