package domain

import (
	"time"
)

// Image describes an image under review. The engine itself only cares
// about Width and Height; the rest is carried for the serving layer.
type Image struct {
	ID         string    `json:"id"`
	Path       string    `json:"-"`
	Filename   string    `json:"filename"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	IngestedAt time.Time `json:"ingestedAt"`
}
