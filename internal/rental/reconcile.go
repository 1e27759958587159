package rental

import (
	"errors"
	"fmt"

	"motorent/internal/models"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// BookingStatusFor maps a rental status onto the linked booking request. ok is false for
// statuses that leave the request alone (pending, unknown).
func BookingStatusFor(status models.RentalStatus) (models.BookingStatus, bool) {
	switch models.NormalizeRentalStatus(string(status)) {
	case models.RentalCompleted:
		return models.BookingCompleted, true
	case models.RentalOngoing, models.RentalActive:
		return models.BookingApproved, true
	case models.RentalCancelled:
		return models.BookingRejected, true
	}
	return "", false
}

// Reconcile brings the rental's booking request in line with the rental status. It returns the
// request when it was changed, nil otherwise. Run it on the transaction that saved the rental.
func Reconcile(tx *gorm.DB, r *models.Rental) (*models.BookingRequest, error) {
	if r.BookingRequestID == nil {
		return nil, nil
	}
	target, ok := BookingStatusFor(r.Status)
	if !ok {
		return nil, nil
	}

	var br models.BookingRequest
	if err := tx.First(&br, *r.BookingRequestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[RENTAL] rental #%d links missing booking request #%d", r.ID, *r.BookingRequestID)
			return nil, nil
		}
		return nil, fmt.Errorf("load booking request: %w", err)
	}
	if br.Status == target {
		return nil, nil
	}

	if err := tx.Model(&br).Update("status", target).Error; err != nil {
		return nil, fmt.Errorf("update booking request status: %w", err)
	}
	br.Status = target
	return &br, nil
}
