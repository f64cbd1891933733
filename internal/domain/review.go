package domain

import "time"

// Review belongs to exactly one car and is removed with it.
type Review struct {
	ID         int64     `json:"id"`
	CarID      int64     `json:"car_id"`
	UserName   string    `json:"user_name"`
	Rating     *int      `json:"rating"`
	ReviewText string    `json:"review_text"`
	ReviewDate time.Time `json:"review_date"`
}
