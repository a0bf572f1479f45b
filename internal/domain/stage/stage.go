// Package stage defines the Stage domain entity (a board column).
package stage

import (
	"fmt"
	"time"

	"github.com/openkanban/kanbd/internal/domain"
)

// Stage represents one column on the board. The task engine consumes the name
// for status inference; it does not own stage lifecycle.
type Stage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	Color     string    `json:"color,omitempty"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a stage.
type CreateRequest struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
	Color string `json:"color,omitempty"`
}

// ValidateCreateRequest checks a stage create payload.
func ValidateCreateRequest(req *CreateRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if len(req.Name) > 128 {
		return fmt.Errorf("name exceeds 128 characters: %w", domain.ErrValidation)
	}
	return nil
}
