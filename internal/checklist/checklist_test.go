package checklist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/facade/facadetest"
	"github.com/dharsanguruparan/loandrop/internal/model"
)

var allStates = []model.ProcessingState{
	model.StatePending, model.StateProcessing, model.StateCompleted, model.StateFailed, "archived",
}

func TestDeriveStatusMissingWithoutFileOrWhilePending(t *testing.T) {
	for _, state := range allStates {
		require.Equal(t, StatusMissing, DeriveStatus("", state), "state %s", state)
	}
	require.Equal(t, StatusMissing, DeriveStatus("w2.pdf", model.StatePending))
}

func TestDeriveStatusWithFile(t *testing.T) {
	require.Equal(t, StatusGood, DeriveStatus("w2.pdf", model.StateCompleted))
	require.Equal(t, StatusProcessing, DeriveStatus("w2.pdf", model.StateProcessing))
	require.Equal(t, StatusMissing, DeriveStatus("w2.pdf", model.StateFailed))
	require.Equal(t, StatusMissing, DeriveStatus("w2.pdf", "archived"))
}

func TestKindTables(t *testing.T) {
	require.Equal(t, CategoryOwner, CategoryOf(model.KindOwnerPassport))
	require.Equal(t, CategoryBusiness, CategoryOf(model.KindBusinessBankStatement))
	require.Equal(t, CategoryBusiness, CategoryOf(model.KindCREPurchaseContract))
	require.Equal(t, CategoryOther, CategoryOf(model.KindCustom))
	require.Equal(t, CategoryOther, CategoryOf(model.Kind(42)))

	require.Equal(t, "Tax Returns", DisplayName(model.KindOwnerTaxReturnPrior1))
	require.Equal(t, "Prior Year 1", SubLabel(model.KindOwnerTaxReturnPrior1))
	require.Equal(t, "Business Tax Return", DisplayName(model.KindBusinessTaxReturnCurrent))
	require.Equal(t, "Current Year", SubLabel(model.KindBusinessTaxReturnCurrent))
	require.Equal(t, "Document 22", DisplayName(model.KindCRERentRoll))
	require.Equal(t, "Document 1", DisplayName(model.KindCustom))
	require.Empty(t, SubLabel(model.KindBusinessBankStatement))
}

func TestListAndCategorize(t *testing.T) {
	svc := facadetest.New()
	svc.AddDocument(model.Document{ID: "d1", ApplicationID: "app", Kind: model.KindOwnerTaxReturnCurrent, OriginalFilename: "1040.pdf", State: model.StateCompleted})
	svc.AddDocument(model.Document{ID: "d2", ApplicationID: "app", Kind: model.KindOwnerDriversLicense, State: model.StatePending})
	svc.AddDocument(model.Document{ID: "d3", ApplicationID: "app", Kind: model.KindBusinessEINConfirmation, OriginalFilename: "ein.pdf", State: model.StateFailed})
	svc.AddDocument(model.Document{ID: "d4", ApplicationID: "app", Kind: model.KindCustom, OriginalFilename: "misc.png", State: model.StateProcessing})
	svc.AddDocument(model.Document{ID: "d5", ApplicationID: "other-app", Kind: model.KindOwnerPassport})

	sections, err := ListAndCategorize(context.Background(), svc, "app")
	require.NoError(t, err)
	require.Equal(t, 1, svc.Count("list"))
	require.Equal(t, facade.Page{Size: 100, Num: 0}, svc.LastPage)

	require.Len(t, sections.Owner, 2)
	require.Equal(t, Row{
		DisplayName: "Tax Returns", SubLabel: "Most Recent Year", Filename: "1040.pdf", Status: StatusGood,
		DocumentID: "d1", Kind: model.KindOwnerTaxReturnCurrent, State: model.StateCompleted,
		Actions: []string{ActionView, ActionDelete},
	}, sections.Owner[0])
	require.Equal(t, StatusMissing, sections.Owner[1].Status)
	require.Empty(t, sections.Owner[1].Actions)

	require.Len(t, sections.Business, 1)
	require.Equal(t, StatusMissing, sections.Business[0].Status)
	require.Equal(t, model.StateFailed, sections.Business[0].State)

	require.Len(t, sections.Other, 1)
	require.Equal(t, StatusProcessing, sections.Other[0].Status)

	require.Equal(t, Summary{Completed: 1, Total: 2, Complete: false}, Summarize(sections.Owner))
	require.Equal(t, Summary{Completed: 0, Total: 0, Complete: true}, Summarize(nil))
}

func TestListAndCategorizeError(t *testing.T) {
	svc := facadetest.New()
	svc.Fail["list"] = facade.ErrUnavailable
	_, err := ListAndCategorize(context.Background(), svc, "app")
	require.True(t, errors.Is(err, facade.ErrUnavailable))
}

func TestSort(t *testing.T) {
	rows := []Row{
		{DisplayName: "ID", Status: StatusGood},
		{DisplayName: "Bank Statement", Status: StatusMissing},
		{DisplayName: "Tax Returns", Status: StatusProcessing},
	}
	asc := Sort(rows, SortByDocument, false)
	require.Equal(t, []string{"Bank Statement", "ID", "Tax Returns"}, names(asc))
	desc := Sort(rows, SortByDocument, true)
	require.Equal(t, []string{"Tax Returns", "ID", "Bank Statement"}, names(desc))
	require.Equal(t, []string{"ID", "Bank Statement", "Tax Returns"}, names(Sort(rows, "", false)))
	require.Equal(t, "ID", rows[0].DisplayName)
}

func names(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.DisplayName
	}
	return out
}
