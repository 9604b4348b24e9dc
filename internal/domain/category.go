package domain

import "time"

// Category groups tickets under a unique name. Categories are created on
// first use and never renamed.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
