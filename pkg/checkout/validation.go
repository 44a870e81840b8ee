package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
)

// OwnershipValidationInput describes one cart line checked before checkout.
type OwnershipValidationInput struct {
	PhotoID      uuid.UUID
	Filename     string
	AlreadyOwned bool
}

// OwnershipViolationDetail exposes the data returned to callers when a photo
// in the cart is already purchased.
type OwnershipViolationDetail struct {
	PhotoID  uuid.UUID `json:"photo_id"`
	Filename string    `json:"filename,omitempty"`
}

// ValidateNotOwned ensures none of the provided cart lines reference a photo
// the user already purchased.
func ValidateNotOwned(items []OwnershipValidationInput) error {
	var violations []OwnershipViolationDetail
	for _, item := range items {
		if item.AlreadyOwned {
			violations = append(violations, OwnershipViolationDetail{
				PhotoID:  item.PhotoID,
				Filename: item.Filename,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeAlreadyOwned, fmt.Sprintf("%d item(s) already purchased", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
