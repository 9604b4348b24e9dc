package domain

import "time"

// Attachment is one uploaded file bound to a ticket. FileName is the
// display name; StorageReference is the key in the attachment store.
type Attachment struct {
	ID               string
	TicketID         string
	FileName         string
	StorageReference string
	ContentType      string
	FileSize         int64
	CreatedAt        time.Time
}
