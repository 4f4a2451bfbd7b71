package partner

import (
	"fmt"
	"math"

	"dispatch/internal/pkg/errs"
)

const (
	// MinRating is the lowest rating a customer may leave.
	MinRating = 1
	// MaxRating is the highest rating a customer may leave.
	MaxRating = 5
)

// Statistics are the cumulative delivery counters of a partner.
type Statistics struct {
	TotalDeliveries      int     `json:"totalDeliveries"`
	SuccessfulDeliveries int     `json:"successfulDeliveries"`
	FailedDeliveries     int     `json:"failedDeliveries"`
	TotalRatings         int     `json:"totalRatings"`
	AvgRating            float64 `json:"avgRating"`
	TotalDistanceKm      float64 `json:"totalDistanceKm"`
}

// WithDelivery returns the statistics after one more finished delivery.
// Any terminal outcome other than delivered counts as failed.
func (s Statistics) WithDelivery(successful bool, distanceKm float64) Statistics {
	s.TotalDeliveries++
	if successful {
		s.SuccessfulDeliveries++
	} else {
		s.FailedDeliveries++
	}
	if distanceKm > 0 && !math.IsInf(distanceKm, 0) {
		s.TotalDistanceKm += distanceKm
	}
	return s
}

// WithRating folds rating into the weighted running average (avg·n + r)/(n+1).
func (s Statistics) WithRating(rating int) (Statistics, error) {
	if err := ValidateRating(rating); err != nil {
		return s, err
	}

	n := float64(s.TotalRatings)
	s.AvgRating = (s.AvgRating*n + float64(rating)) / (n + 1)
	s.TotalRatings++
	return s, nil
}

// SuccessRate returns successful/total deliveries, 0 when nothing was delivered yet.
func (s Statistics) SuccessRate() float64 {
	if s.TotalDeliveries == 0 {
		return 0
	}
	return float64(s.SuccessfulDeliveries) / float64(s.TotalDeliveries)
}

// ValidateRating checks that rating is within [MinRating..MaxRating].
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return errs.NewValueIsOutOfRangeError("rating", rating, MinRating, MaxRating)
	}
	return nil
}

func (s Statistics) validate() error {
	if s.TotalDeliveries < 0 || s.SuccessfulDeliveries < 0 || s.FailedDeliveries < 0 || s.TotalRatings < 0 {
		return errs.NewValueIsInvalidErrorWithCause("statistics", fmt.Errorf("negative counter in %+v", s))
	}
	if s.TotalRatings > 0 && (s.AvgRating < MinRating || s.AvgRating > MaxRating) {
		return errs.NewValueIsOutOfRangeError("avgRating", s.AvgRating, MinRating, MaxRating)
	}
	return nil
}
