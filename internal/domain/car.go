// Package domain holds the catalog's records and the review aggregation.
package domain

import "strconv"

// Car is the authoritative record. Version starts at 1 and grows with every
// update; the mirror store uses it to order writes.
type Car struct {
	ID              int64  `json:"id"`
	Brand           string `json:"brand"`
	Model           string `json:"model"`
	ManufactureYear int    `json:"manufacture_year"`
	FuelType        string `json:"fuel_type"`
	Version         int64  `json:"version"`
}

// Key is the car id in the string form used by the mirror store.
func (c *Car) Key() string { return strconv.FormatInt(c.ID, 10) }

// CarWithStats is one row of the catalog listing.
type CarWithStats struct {
	Car
	Stats Stats `json:"stats"`
}

// CarDetails is everything the details page shows.
type CarDetails struct {
	Car      Car      `json:"car"`
	Reviews  []Review `json:"reviews"`
	Stats    Stats    `json:"stats"`
	FuelType string   `json:"mirror_fuel_type"`
	ImageURL string   `json:"image_url,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
