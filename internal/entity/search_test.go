package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldingStatus_State(t *testing.T) {
	tests := []struct {
		name   string
		status *HoldingStatus
		want   HoldingState
	}{
		{"nil", nil, ""},
		{"empty", &HoldingStatus{}, ""},
		{"available", NewAvailable(Ptr("비치중"), nil), StateAvailable},
		{"on loan", NewOnLoan(nil, &DateTime{Date: &Date{Year: 2024, Month: 3, Day: 1}}), StateOnLoan},
		{"unavailable", NewUnavailable(Ptr("정리중")), StateUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.State())
		})
	}
}

func TestHoldingStatus_JSONCarriesOneVariant(t *testing.T) {
	s := NewOnLoan(Ptr("대출중"), &DateTime{Date: &Date{Year: 2024, Month: 1, Day: 9}})
	s.Requests = Ptr(2)

	b, err := json.Marshal(s)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	assert.Contains(t, got, "on_loan")
	assert.NotContains(t, got, "available")
	assert.NotContains(t, got, "unavailable")
	assert.Equal(t, float64(2), got["requests"])
}

func TestLibrary_OmitsMissingCoordinate(t *testing.T) {
	b, err := json.Marshal(Library{ID: "seoul-seocho:MA", Name: "반포도서관", ResolverID: "seoul-seocho"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "coordinate")
}

func TestDate_String(t *testing.T) {
	assert.Equal(t, "2019", Date{Year: 2019}.String())
	assert.Equal(t, "2019-04", Date{Year: 2019, Month: 4}.String())
	assert.Equal(t, "2019-04-07", Date{Year: 2019, Month: 4, Day: 7}.String())
}
