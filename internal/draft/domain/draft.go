package domain

import "time"

// Draft is a stored report draft. The payload exists only as the encrypted
// envelope fields; plaintext never reaches persistence.
type Draft struct {
	ID         string
	UserID     string
	Ciphertext []byte
	IV         []byte
	Salt       []byte
	Tag        []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
