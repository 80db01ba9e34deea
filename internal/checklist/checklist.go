// Package checklist turns an application's document list into the three
// checklist sections the borrower sees.
package checklist

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/model"
)

type Status string

const (
	StatusMissing    Status = "Missing"
	StatusProcessing Status = "Processing"
	StatusGood       Status = "Good"
)

const (
	ActionView   = "view"
	ActionDelete = "delete"
)

// Row is one checklist line. State keeps the raw processing state so callers
// can tell a failed document from one never uploaded.
type Row struct {
	DisplayName string                `json:"displayName"`
	SubLabel    string                `json:"subLabel"`
	Filename    string                `json:"filename"`
	Status      Status                `json:"status"`
	DocumentID  string                `json:"documentId"`
	Kind        model.Kind            `json:"kind"`
	State       model.ProcessingState `json:"state"`
	Actions     []string              `json:"actions"`
}

type Sections struct {
	Owner    []Row `json:"owner"`
	Business []Row `json:"business"`
	Other    []Row `json:"other"`
}

type Summary struct {
	Completed int  `json:"completed"`
	Total     int  `json:"total"`
	Complete  bool `json:"isComplete"`
}

// Summarize counts Good rows. An empty section is complete.
func Summarize(rows []Row) Summary {
	done := 0
	for _, r := range rows {
		if r.Status == StatusGood {
			done++
		}
	}
	return Summary{Completed: done, Total: len(rows), Complete: done == len(rows)}
}

// DeriveStatus maps a document to its checklist status. A document with no
// file or still pending is Missing whatever else it records; failed is also
// shown as Missing.
func DeriveStatus(filename string, state model.ProcessingState) Status {
	if filename == "" || state == model.StatePending {
		return StatusMissing
	}
	switch state {
	case model.StateProcessing:
		return StatusProcessing
	case model.StateCompleted:
		return StatusGood
	}
	return StatusMissing
}

// NewRow builds the checklist line for one document.
func NewRow(doc model.Document) Row {
	hasFile := doc.OriginalFilename != "" && doc.State != model.StatePending
	row := Row{
		DisplayName: DisplayName(doc.Kind),
		SubLabel:    SubLabel(doc.Kind),
		Status:      DeriveStatus(doc.OriginalFilename, doc.State),
		DocumentID:  doc.ID,
		Kind:        doc.Kind,
		State:       doc.State,
		Actions:     []string{},
	}
	if hasFile {
		row.Filename = doc.OriginalFilename
		row.Actions = []string{ActionView, ActionDelete}
	}
	return row
}

// Categorize partitions docs, keeping their relative order in each section.
func Categorize(docs []model.Document) Sections {
	s := Sections{Owner: []Row{}, Business: []Row{}, Other: []Row{}}
	for _, doc := range docs {
		row := NewRow(doc)
		switch CategoryOf(doc.Kind) {
		case CategoryOwner:
			s.Owner = append(s.Owner, row)
		case CategoryBusiness:
			s.Business = append(s.Business, row)
		default:
			s.Other = append(s.Other, row)
		}
	}
	return s
}

// ListAndCategorize fetches the first page of an application's documents and
// categorizes it. It makes exactly one list call.
func ListAndCategorize(ctx context.Context, docs facade.DocumentService, applicationID string) (Sections, error) {
	list, err := docs.ListDocumentsByParent(ctx, applicationID, facade.Page{Size: facade.DefaultPageSize, Num: 0})
	if err != nil {
		return Sections{}, fmt.Errorf("list documents for application %s: %w", applicationID, err)
	}
	return Categorize(list), nil
}

// SortColumn names a sortable checklist column.
type SortColumn string

const (
	SortByDocument SortColumn = "document"
	SortBySubLabel SortColumn = "subdocument"
	SortByFile     SortColumn = "file"
	SortByStatus   SortColumn = "status"
)

// Sort returns rows ordered by column. desc reverses the order; an unknown
// column leaves the original order. The input is not modified.
func Sort(rows []Row, column SortColumn, desc bool) []Row {
	var field func(Row) string
	switch column {
	case SortByDocument:
		field = func(r Row) string { return r.DisplayName }
	case SortBySubLabel:
		field = func(r Row) string { return r.SubLabel }
	case SortByFile:
		field = func(r Row) string { return r.Filename }
	case SortByStatus:
		field = func(r Row) string { return string(r.Status) }
	default:
		return slices.Clone(rows)
	}
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b Row) int {
		c := cmp.Compare(field(a), field(b))
		if desc {
			return -c
		}
		return c
	})
	return out
}
