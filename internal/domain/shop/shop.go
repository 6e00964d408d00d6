package shop

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nomadworks/tourhub/internal/domain/approval"
)

var ErrNotFound = errors.New("shop not found")

type Shop struct {
	ID           string          `json:"id"`
	CommunityID  string          `json:"communityId"`
	OwnerID      string          `json:"ownerId"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Status       approval.Status `json:"status"`
	RejectReason *string         `json:"rejectReason,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type CreateShopRequest struct {
	CommunityID string `json:"communityId" binding:"required,uuid"`
	Name        string `json:"name" binding:"required,min=2,max=120"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	// filled from the authenticated actor, never from the body
	OwnerID string `json:"-"`
}

func NewFromCreateRequest(req CreateShopRequest) Shop {
	now := time.Now().UTC()

	return Shop{
		ID:          uuid.NewString(),
		CommunityID: req.CommunityID,
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		Status:      approval.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
