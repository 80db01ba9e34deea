package model

// Kind identifies what category of paperwork a document represents. Values
// are stable integers shared with the document service.
type Kind int

const (
	KindUnspecified Kind = 0
	KindCustom      Kind = 1

	KindOwnerTaxReturnCurrent Kind = 2
	KindOwnerTaxReturnPrior1  Kind = 3
	KindOwnerTaxReturnPrior2  Kind = 4
	KindOwnerDriversLicense   Kind = 5
	KindOwnerPassport         Kind = 6

	KindBusinessArticlesIncorporation Kind = 12
	KindBusinessStatementInformation  Kind = 13
	KindBusinessEINConfirmation       Kind = 14
	KindBusinessTaxReturnCurrent      Kind = 15
	KindBusinessTaxReturnPrior1       Kind = 16
	KindBusinessTaxReturnPrior2       Kind = 17
	KindBusinessYTDFinancialStatement Kind = 18
	KindBusinessAuditedFinancials     Kind = 19
	KindBusinessARAPAging             Kind = 20
	KindBusinessBankStatement         Kind = 21

	// Commercial real estate kinds share the business checklist.
	KindCRERentRoll           Kind = 22
	KindCREOperatingStatement Kind = 23
	KindCRELeases             Kind = 24
	KindCREAppraisal          Kind = 25
	KindCREPurchaseContract   Kind = 26
)
