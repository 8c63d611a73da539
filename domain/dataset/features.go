package dataset

import (
	"fmt"
	"slices"

	"hotelcancel/internal/errors"
)

// FeatureSpec names the model inputs and the target column.
// The same value must reach preprocessing, training and evaluation.
type FeatureSpec struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	Label       string   `json:"label"`
}

// HotelBookingSpec returns the feature groups used for cancellation prediction
func HotelBookingSpec() FeatureSpec {
	return FeatureSpec{
		Numeric: []string{
			"lead_time", "arrival_date_week_number", "arrival_date_day_of_month",
			"stays_in_weekend_nights", "stays_in_week_nights", "adults", "children",
			"babies", "is_repeated_guest", "previous_cancellations",
			"previous_bookings_not_canceled", "agent", "company",
			"required_car_parking_spaces", "total_of_special_requests", "adr",
		},
		Categorical: []string{
			"hotel", "arrival_date_month", "meal", "market_segment",
			"distribution_channel", "reserved_room_type", "deposit_type", "customer_type",
		},
		Label: "is_canceled",
	}
}

// Features returns numeric followed by categorical column names
func (s FeatureSpec) Features() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Categorical))
	out = append(out, s.Numeric...)
	return append(out, s.Categorical...)
}

// Validate checks the feature lists are usable: features present, unique, label excluded
func (s FeatureSpec) Validate() error {
	if len(s.Numeric)+len(s.Categorical) == 0 {
		return errors.ConfigInvalid("feature spec declares no features")
	}
	if s.Label == "" {
		return errors.ConfigInvalid("feature spec declares no label column")
	}
	seen := make(map[string]struct{})
	for _, f := range s.Features() {
		if f == s.Label {
			return errors.ConfigInvalid(fmt.Sprintf("label column %q is listed as a feature", f))
		}
		if _, dup := seen[f]; dup {
			return errors.ConfigInvalid(fmt.Sprintf("feature %q declared twice", f))
		}
		seen[f] = struct{}{}
	}
	return nil
}

// Equal reports whether two specs declare the same columns in the same order
func (s FeatureSpec) Equal(other FeatureSpec) bool {
	return s.Label == other.Label &&
		slices.Equal(s.Numeric, other.Numeric) &&
		slices.Equal(s.Categorical, other.Categorical)
}

// Split extracts the feature table and label vector from a full dataset
func (s FeatureSpec) Split(t *Table) (*Table, []int, error) {
	features, err := t.Select(s.Features())
	if err != nil {
		return nil, nil, errors.Wrap(err, "selecting feature columns")
	}
	labels, err := t.Labels(s.Label)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading label column")
	}
	return features, labels, nil
}
