package checklist

import (
	"strconv"

	"github.com/dharsanguruparan/loandrop/internal/model"
)

type Category string

const (
	CategoryOwner    Category = "owner"
	CategoryBusiness Category = "business"
	CategoryOther    Category = "other"
)

var ownerKinds = map[model.Kind]bool{
	model.KindOwnerTaxReturnCurrent: true,
	model.KindOwnerTaxReturnPrior1:  true,
	model.KindOwnerTaxReturnPrior2:  true,
	model.KindOwnerDriversLicense:   true,
	model.KindOwnerPassport:         true,
}

var businessKinds = map[model.Kind]bool{
	model.KindBusinessArticlesIncorporation: true,
	model.KindBusinessStatementInformation:  true,
	model.KindBusinessEINConfirmation:       true,
	model.KindBusinessTaxReturnCurrent:      true,
	model.KindBusinessTaxReturnPrior1:       true,
	model.KindBusinessTaxReturnPrior2:       true,
	model.KindBusinessYTDFinancialStatement: true,
	model.KindBusinessAuditedFinancials:     true,
	model.KindBusinessARAPAging:             true,
	model.KindBusinessBankStatement:         true,
	model.KindCRERentRoll:                   true,
	model.KindCREOperatingStatement:         true,
	model.KindCRELeases:                     true,
	model.KindCREAppraisal:                  true,
	model.KindCREPurchaseContract:           true,
}

var displayNames = map[model.Kind]string{
	model.KindOwnerTaxReturnCurrent:         "Tax Returns",
	model.KindOwnerTaxReturnPrior1:          "Tax Returns",
	model.KindOwnerTaxReturnPrior2:          "Tax Returns",
	model.KindOwnerDriversLicense:           "ID",
	model.KindOwnerPassport:                 "ID",
	model.KindBusinessArticlesIncorporation: "Articles of Incorporation",
	model.KindBusinessStatementInformation:  "Business Statement",
	model.KindBusinessEINConfirmation:       "EIN Confirmation",
	model.KindBusinessTaxReturnCurrent:      "Business Tax Return",
	model.KindBusinessTaxReturnPrior1:       "Business Tax Return",
	model.KindBusinessTaxReturnPrior2:       "Business Tax Return",
	model.KindBusinessYTDFinancialStatement: "YTD Financial Statement",
	model.KindBusinessAuditedFinancials:     "Audited Financials",
	model.KindBusinessARAPAging:             "AR/AP Aging",
	model.KindBusinessBankStatement:         "Bank Statement",
}

var subLabels = map[model.Kind]string{
	model.KindOwnerTaxReturnCurrent:    "Most Recent Year",
	model.KindOwnerTaxReturnPrior1:     "Prior Year 1",
	model.KindOwnerTaxReturnPrior2:     "Prior Year 2",
	model.KindOwnerDriversLicense:      "Driver's License",
	model.KindOwnerPassport:            "Passport",
	model.KindBusinessTaxReturnCurrent: "Current Year",
	model.KindBusinessTaxReturnPrior1:  "Prior Year 1",
	model.KindBusinessTaxReturnPrior2:  "Prior Year 2",
}

// CategoryOf buckets a kind. Anything outside the owner and business tables,
// including custom uploads, lands in CategoryOther.
func CategoryOf(k model.Kind) Category {
	switch {
	case ownerKinds[k]:
		return CategoryOwner
	case businessKinds[k]:
		return CategoryBusiness
	}
	return CategoryOther
}

// DisplayName returns the checklist title for k, or "Document <n>".
func DisplayName(k model.Kind) string {
	if name, ok := displayNames[k]; ok {
		return name
	}
	return "Document " + strconv.Itoa(int(k))
}

// SubLabel returns the secondary label for k, or "".
func SubLabel(k model.Kind) string {
	return subLabels[k]
}
