// Package catalog holds the listing rules of the excursion directory:
// rating aggregation over reviews and filtering of excursion lists.
package catalog

import (
	"math"
	"strconv"

	"ausflug-backend/internal/models"
)

// NoReviewsLabel is shown instead of a number when nothing has been rated yet
const NoReviewsLabel = "Keine Bewertungen"

// Rating is the derived aggregate of an excursion's reviews
type Rating struct {
	Average float64 `json:"average_rating"`
	Count   int     `json:"review_count"`
}

// Aggregate computes the mean rating and the review count.
// Average stays zero when there are no reviews.
func Aggregate(reviews []models.Review) Rating {
	if len(reviews) == 0 {
		return Rating{}
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return Rating{
		Average: float64(sum) / float64(len(reviews)),
		Count:   len(reviews),
	}
}

// HasReviews reports whether an average exists at all
func (r Rating) HasReviews() bool {
	return r.Count > 0
}

// Rounded returns the average rounded to one decimal place
func (r Rating) Rounded() Rating {
	if !r.HasReviews() {
		return Rating{}
	}
	return Rating{Average: RoundOne(r.Average), Count: r.Count}
}

// Display renders the average for humans, or the no-reviews label
func (r Rating) Display() string {
	if !r.HasReviews() {
		return NoReviewsLabel
	}
	return strconv.FormatFloat(RoundOne(r.Average), 'f', 1, 64)
}

// RoundOne rounds half away from zero to one decimal place
func RoundOne(v float64) float64 {
	return math.Round(v*10) / 10
}

// Apply copies the rounded aggregate onto the excursion
func (r Rating) Apply(e *models.Excursion) {
	rounded := r.Rounded()
	e.AverageRating = rounded.Average
	e.ReviewCount = rounded.Count
}

// Of reads the stored aggregate back off an excursion
func Of(e models.Excursion) Rating {
	return Rating{Average: e.AverageRating, Count: e.ReviewCount}
}
