package models

import "time"

// User represents a registered or OAuth-provisioned user
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Picture      *string   `json:"picture,omitempty"`
	PasswordHash *string   `json:"-"`
	PushToken    *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a server-side login record referenced by the session token
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ExcursionInput holds the author-editable fields of an excursion
type ExcursionInput struct {
	Title            string  `json:"title" validate:"required,min=3,max=200"`
	Description      string  `json:"description" validate:"required,min=10,max=2000"`
	Address          string  `json:"address" validate:"required,min=5,max=300"`
	Country          string  `json:"country" validate:"omitempty,country"`
	Region           string  `json:"region" validate:"required"`
	Category         string  `json:"category" validate:"required,category"`
	WebsiteURL       *string `json:"website_url,omitempty" validate:"omitempty,url"`
	HasGrill         bool    `json:"has_grill"`
	IsOutdoor        bool    `json:"is_outdoor"`
	IsFree           bool    `json:"is_free"`
	ParkingSituation string  `json:"parking_situation" validate:"required,parking"`
	ParkingIsFree    bool    `json:"parking_is_free"`
}

// Excursion represents a cataloged destination
type Excursion struct {
	ExcursionInput
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	AuthorName    string    `json:"author_name"`
	Photos        []string  `json:"photos"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReviewInput holds the fields a user submits for a review
type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=10,max=1000"`
}

// Review represents one user's rating of one excursion
type Review struct {
	ReviewInput
	ID          string    `json:"id"`
	ExcursionID string    `json:"excursion_id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Option is a value/label pair used for static select lists
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Photo is an image stored for an excursion, listed in upload order
type Photo struct {
	ID          string    `json:"id"`
	ExcursionID string    `json:"excursion_id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
