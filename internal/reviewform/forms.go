package reviewform

import (
	"time"

	"github.com/dharsanguruparan/loandrop/internal/finstmt"
)

type DebtEntry struct {
	Creditor       string `json:"creditor"`
	OriginalAmount string `json:"originalAmount" validate:"amount"`
	OriginalDate   string `json:"originalDate"`
	CurrentBalance string `json:"currentBalance" validate:"amount"`
	InterestRate   string `json:"interestRate"`
	MaturityDate   string `json:"maturityDate"`
	Collateral     string `json:"collateral"`
	Status         string `json:"status"`
}

// BusinessInfo is the business section of the review.
type BusinessInfo struct {
	LegalName             string      `json:"legalName" validate:"required"`
	FictitiousName        string      `json:"fictitiousName" validate:"required"`
	BusinessAddress       string      `json:"businessAddress" validate:"required"`
	YearsAtLocation       string      `json:"yearsAtLocation"`
	MailingAddress        string      `json:"mailingAddress"`
	BusinessPhone         string      `json:"businessPhone" validate:"required,digitcount=10"`
	FaxPhone              string      `json:"faxPhone"`
	Email                 string      `json:"email" validate:"required,email"`
	EntityType            string      `json:"entityType" validate:"required"`
	NAICSCode             string      `json:"naicsCode" validate:"required"`
	DateEstablished       *time.Time  `json:"dateEstablished"`
	NatureOfBusiness      string      `json:"natureOfBusiness" validate:"required"`
	IDType                string      `json:"idType" validate:"required,oneof=fed ssn"`
	TaxIDNumber           string      `json:"taxIdNumber" validate:"required,digitcount=9"`
	SecondaryIDType       string      `json:"secondaryIdType" validate:"required,oneof=drivers_license passport alien_registration"`
	SecondaryIDNumber     string      `json:"secondaryIdNumber" validate:"required"`
	SecondaryIDIssueDate  *time.Time  `json:"secondaryIdIssueDate"`
	SecondaryIDExpiration *time.Time  `json:"secondaryIdExpiration"`
	SecondaryIDState      string      `json:"secondaryIdState" validate:"required"`
	AnnualRevenue         string      `json:"annualRevenue" validate:"required,amount"`
	PeriodReported        string      `json:"periodReported" validate:"required"`
	NumberOfEmployees     string      `json:"numberOfEmployees" validate:"required"`
	SalesMarketTerritory  string      `json:"salesMarketTerritory" validate:"required,oneof=national international regional local"`
	ForeignWire           string      `json:"foreignWire" validate:"required,oneof=yes no"`
	ForeignWireAmount     string      `json:"foreignWireAmount" validate:"amount"`
	DomesticWire          string      `json:"domesticWire" validate:"required,oneof=yes no"`
	DomesticWireAmount    string      `json:"domesticWireAmount" validate:"amount"`
	CashActivity          string      `json:"cashActivity"`
	ACHActivity           string      `json:"achActivity"`
	CashCheck             string      `json:"cashCheck" validate:"required,oneof=yes no"`
	MoreThanThousand      string      `json:"moreThanThousand" validate:"required,oneof=yes no"`
	MoneyACHActivity      string      `json:"moneyAchActivity" validate:"required"`
	SellsMoneyOrders      string      `json:"sellsMoneyOrders" validate:"required,oneof=yes no"`
	InternetGambling      string      `json:"internetGambling" validate:"required,oneof=yes no"`
	DebtSchedule          []DebtEntry `json:"debtSchedule" validate:"dive"`
}

type ContactInfo struct {
	HomeAddress          string     `json:"homeAddress" validate:"required"`
	YearsAtLocation      string     `json:"yearsAtLocation"`
	MailingAddress       string     `json:"mailingAddress" validate:"required"`
	PriorAddress         string     `json:"priorAddress"`
	PrimaryPhone         string     `json:"primaryPhone" validate:"digitcount=10"`
	WorkPhone            string     `json:"workPhone"`
	OtherPhone           string     `json:"otherPhone"`
	Email                string     `json:"email" validate:"required,email"`
	SSN                  string     `json:"ssn" validate:"digitcount=9"`
	PrimaryIDMethod      string     `json:"primaryIdMethod" validate:"required,oneof=us_dl passport alien_reg"`
	PrimaryIDNumber      string     `json:"primaryIdNumber" validate:"required"`
	PrimaryIDIssueDate   *time.Time `json:"primaryIdIssueDate"`
	PrimaryIDExpDate     *time.Time `json:"primaryIdExpDate"`
	PrimaryIDState       string     `json:"primaryIdState" validate:"required"`
	SecondaryIDMethod    string     `json:"secondaryIdMethod" validate:"omitempty,oneof=us_dl passport alien_reg"`
	SecondaryIDNumber    string     `json:"secondaryIdNumber"`
	SecondaryIDIssueDate *time.Time `json:"secondaryIdIssueDate"`
	SecondaryIDExpDate   *time.Time `json:"secondaryIdExpDate"`
	SecondaryIDState     string     `json:"secondaryIdState"`
	OwnershipPct         float64    `json:"ownershipPct" validate:"gte=0,lte=100"`
}

// PersonalInfo is one owner's personal and contact details.
type PersonalInfo struct {
	FirstName    string       `json:"firstName" validate:"required"`
	MiddleName   string       `json:"middleName"`
	LastName     string       `json:"lastName" validate:"required"`
	DateOfBirth  *time.Time   `json:"dateOfBirth"`
	PlaceOfBirth string       `json:"placeOfBirth" validate:"required"`
	Citizenship  string       `json:"citizenship" validate:"required,oneof=us_citizen resident_alien non_resident_alien"`
	Occupation   string       `json:"occupation" validate:"required"`
	Title        string       `json:"title"`
	Contact      *ContactInfo `json:"contact" validate:"required"`
}

// FinancialStatement is the personal financial statement as submitted. Row
// collections are positional against the finstmt label tables.
type FinancialStatement struct {
	Income                []string          `json:"income" validate:"max=8,dive,amount"`
	Expense               []string          `json:"expense" validate:"max=9,dive,amount"`
	Assets                []string          `json:"assets" validate:"max=11,dive,amount"`
	Liabilities           []string          `json:"liabilities" validate:"max=13,dive,amount"`
	StatementType         string            `json:"statementType" validate:"required,oneof=individual joint trust"`
	AsOfDate              *time.Time        `json:"asOfDate"`
	TrustIRA              string            `json:"trustIRA" validate:"omitempty,oneof=yes no"`
	ContingentLiabilities map[string]string `json:"contingentLiabilities" validate:"omitempty,dive,keys,contingentkey,endkeys,oneof=yes no"`
}

// Statement converts the form for totals computation.
func (f *FinancialStatement) Statement() *finstmt.Statement {
	return &finstmt.Statement{
		Income:        f.Income,
		Expense:       f.Expense,
		Assets:        f.Assets,
		Liabilities:   f.Liabilities,
		StatementType: finstmt.StatementType(f.StatementType),
		AsOfDate:      f.AsOfDate,
		TrustIRA:      f.TrustIRA,
	}
}

// ContingentQuestion is one yes/no question of the contingent liabilities
// section.
type ContingentQuestion struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var ContingentQuestions = []ContingentQuestion{
	{"guarantor", "Are you a guarantor, co-maker or endorser for any debt of any person or entity?"},
	{"lettersOfCredit", "Do you have any outstanding letters of credit or surety bonds?"},
	{"legalActions", "Are there any suits or legal actions pending against you?"},
	{"leaseOrContract", "Are you contingently liable on any lease or contract?"},
	{"taxObligationsPastDue", "Are any of your tax obligations past due?"},
	{"generalPartner", "Are you contingently liable as general partner for the debts of any partnership?"},
	{"otherContingent", "Do you have any other contingent liabilities?"},
	{"bankruptcy", "Have you (or your spouse or any firm in which you are a major owner or guarantor) ever declared bankruptcy?"},
	{"repossession", "Have you or your spouse ever voluntarily surrendered or had a vehicle, appliance or any other item repossessed?"},
	{"taxReturnsAudited", "Are any of your or your spouse's tax returns currently being audited or contested?"},
	{"otherNameCredit", "Have you or your spouse applied for or obtained credit under another name within the last 10 years?"},
	{"unusedCreditFacility", "Do you or your spouse have any unused credit facility with any other institution(s)? (credit cards)"},
	{"pastBankingRelationship", "Have you or your spouse ever had a past banking relationship with this bank?"},
	{"encumberedAssets", "Are any assets encumbered or debts secured except as indicated?"},
	{"usCitizens", "Are you and your spouse U.S. citizens?"},
}

var contingentKeys = func() map[string]struct{} {
	m := make(map[string]struct{}, len(ContingentQuestions))
	for _, q := range ContingentQuestions {
		m[q.Key] = struct{}{}
	}
	return m
}()
