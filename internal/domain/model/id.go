package model

import "github.com/google/uuid"

// generateID returns a UUIDv7, so IDs sort by creation time.
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
