package entity

import "fmt"

type Book struct {
	ISBN        string    `json:"isbn"`
	Title       string    `json:"title"`
	Author      *string   `json:"author,omitempty"`
	Publisher   *string   `json:"publisher,omitempty"`
	Description *string   `json:"description,omitempty"`
	PublishDate *DateTime `json:"publish_date,omitempty"`
}

// DateTime is a possibly partial timestamp. Either half may be missing.
type DateTime struct {
	Date *Date      `json:"date,omitempty"`
	Time *TimeOfDay `json:"time,omitempty"`
}

// Date with Month and Day set to 0 when only the year is known.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type TimeOfDay struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func (d Date) String() string {
	switch {
	case d.Month == 0:
		return fmt.Sprintf("%04d", d.Year)
	case d.Day == 0:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Ptr returns a pointer to v. Handy for the optional fields above.
func Ptr[T any](v T) *T {
	return &v
}
