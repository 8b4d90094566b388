package entity

// SearchEntity is one bibliographic match together with where copies are held.
type SearchEntity struct {
	Book             Book             `json:"book"`
	HoldingSummaries []HoldingSummary `json:"holding_summaries"`
	URL              string           `json:"url"`
}

type HoldingSummary struct {
	LibraryID  string         `json:"library_id"`
	Location   *string        `json:"location,omitempty"`
	CallNumber *string        `json:"call_number,omitempty"`
	Status     *HoldingStatus `json:"status,omitempty"`
}

type HoldingState string

const (
	StateAvailable   HoldingState = "AVAILABLE"
	StateOnLoan      HoldingState = "ON_LOAN"
	StateUnavailable HoldingState = "UNAVAILABLE"
)

// HoldingStatus carries exactly one of Available, OnLoan or Unavailable.
// Build it with NewAvailable, NewOnLoan or NewUnavailable. A holding whose
// state could not be recognised has no HoldingStatus at all.
type HoldingStatus struct {
	Available   *AvailableStatus   `json:"available,omitempty"`
	OnLoan      *OnLoanStatus      `json:"on_loan,omitempty"`
	Unavailable *UnavailableStatus `json:"unavailable,omitempty"`

	IsRequested       *bool `json:"is_requested,omitempty"`
	Requests          *int  `json:"requests,omitempty"`
	RequestsAvailable *bool `json:"requests_available,omitempty"`
}

type AvailableStatus struct {
	Detail         *string `json:"detail,omitempty"`
	AvailableCount *int    `json:"available_count,omitempty"`
}

type OnLoanStatus struct {
	Detail *string   `json:"detail,omitempty"`
	Due    *DateTime `json:"due,omitempty"`
}

type UnavailableStatus struct {
	Detail *string `json:"detail,omitempty"`
}

func NewAvailable(detail *string, count *int) *HoldingStatus {
	return &HoldingStatus{Available: &AvailableStatus{Detail: detail, AvailableCount: count}}
}

func NewOnLoan(detail *string, due *DateTime) *HoldingStatus {
	return &HoldingStatus{OnLoan: &OnLoanStatus{Detail: detail, Due: due}}
}

func NewUnavailable(detail *string) *HoldingStatus {
	return &HoldingStatus{Unavailable: &UnavailableStatus{Detail: detail}}
}

// State reports which variant is set, or "" for a zero HoldingStatus.
func (s *HoldingStatus) State() HoldingState {
	switch {
	case s == nil:
		return ""
	case s.Available != nil:
		return StateAvailable
	case s.OnLoan != nil:
		return StateOnLoan
	case s.Unavailable != nil:
		return StateUnavailable
	}
	return ""
}
