package eco

import (
	"fmt"
	"strconv"
	"strings"

	"heekkr/internal/entity"
	ecoapi "heekkr/internal/platform/eco"
)

const (
	loanAvailable         = "대출가능"
	loanUnavailablePrefix = "대출불가"

	workingOnLoan       = "대출중"
	workingInterLibrary = "상호대차중"
)

// holdingStatus maps the two status strings of a row to a canonical state.
// Rows whose loan status is not recognised get no status.
func holdingStatus(b ecoapi.BookItem) *entity.HoldingStatus {
	detail := optional(b.WorkingStatus)

	var status *entity.HoldingStatus
	switch {
	case b.LoanStatus == loanAvailable:
		status = entity.NewAvailable(detail, nil)
	case strings.HasPrefix(b.LoanStatus, loanUnavailablePrefix):
		switch b.WorkingStatus {
		case workingOnLoan, workingInterLibrary:
			// An unreadable return date still leaves the copy on loan.
			due, _ := parseDue(b.ReturnPlanDate)
			status = entity.NewOnLoan(detail, due)
		default:
			status = entity.NewUnavailable(detail)
		}
	default:
		return nil
	}

	status.Requests = entity.Ptr(b.ReservationCnt)
	status.IsRequested = entity.Ptr(b.ReservationCnt > 0)
	status.RequestsAvailable = entity.Ptr(b.IsActiveResvYn == "Y")
	return status
}

// parseDue reads a "YYYY.MM.DD" return date.
func parseDue(s string) (*entity.DateTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("due date %q: want YYYY.MM.DD", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("due date %q: %w", s, err)
		}
		nums[i] = n
	}
	if nums[1] < 1 || nums[1] > 12 || nums[2] < 1 || nums[2] > 31 {
		return nil, fmt.Errorf("due date %q: out of range", s)
	}

	return &entity.DateTime{Date: &entity.Date{Year: nums[0], Month: nums[1], Day: nums[2]}}, nil
}

// publishDate keeps the year of pubYear, which sites fill with values such
// as "2019", "2019." or "c2019".
func publishDate(pubYear string) *entity.DateTime {
	digits := strings.Builder{}
	for _, r := range pubYear {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			if digits.Len() == 4 {
				break
			}
		} else if digits.Len() > 0 {
			break
		}
	}
	if digits.Len() != 4 {
		return nil
	}
	year, _ := strconv.Atoi(digits.String())
	return &entity.DateTime{Date: &entity.Date{Year: year}}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
