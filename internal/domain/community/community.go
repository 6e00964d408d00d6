package community

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("community not found")

type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Region      string    `json:"region,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateCommunityRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=120"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Region      string `json:"region" binding:"omitempty,min=2,max=80"`
}

func NewFromCreateRequest(req CreateCommunityRequest) Community {
	now := time.Now().UTC()

	return Community{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Region:      req.Region,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
