package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/groomhub/notify-engine/internal/domain"
	"github.com/groomhub/notify-engine/internal/observability"
	"github.com/groomhub/notify-engine/internal/repository"
	"go.uber.org/zap"
)

// TrackingService manages click-through links and links bookings back to the
// notifications that drove them.
type TrackingService struct {
	links            repository.TrackingRepository
	bookingPortalURL string
	fallbackRedirect string
	logger           *zap.Logger
	metrics          *observability.Metrics
	now              func() time.Time
}

func NewTrackingService(
	links repository.TrackingRepository,
	bookingPortalURL string,
	fallbackRedirect string,
	logger *zap.Logger,
) (*TrackingService, error) {
	if links == nil {
		return nil, fmt.Errorf("tracking repository is required")
	}
	if strings.TrimSpace(bookingPortalURL) == "" {
		return nil, fmt.Errorf("booking portal url is required")
	}
	if strings.TrimSpace(fallbackRedirect) == "" {
		return nil, fmt.Errorf("fallback redirect is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TrackingService{
		links:            links,
		bookingPortalURL: strings.TrimRight(bookingPortalURL, "/"),
		fallbackRedirect: fallbackRedirect,
		logger:           logger,
		now:              time.Now,
	}, nil
}

func (s *TrackingService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// CreateLink mints a tracking link for a trackable notification attempt.
func (s *TrackingService) CreateLink(ctx context.Context, customerID, attemptID string) (*domain.TrackingLink, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(attemptID) == "" {
		return nil, fmt.Errorf("%w: attempt id is required", domain.ErrValidation)
	}

	link := &domain.TrackingLink{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		AttemptID:  attemptID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to create tracking link: %w", err)
	}

	return link, nil
}

// ClickThrough records the first click on a link and returns the booking
// portal URL to redirect to. Malformed or unknown IDs never error; the
// caller always gets a safe redirect target. Repeat clicks keep the original
// click timestamp.
func (s *TrackingService) ClickThrough(ctx context.Context, rawID string) string {
	id := strings.TrimSpace(rawID)
	if _, err := uuid.Parse(id); err != nil {
		return s.fallbackRedirect
	}

	link, err := s.links.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("failed to load tracking link",
				zap.String("trackingId", id),
				zap.Error(err),
			)
		}
		return s.fallbackRedirect
	}

	clicked, err := s.links.MarkClicked(ctx, id, s.now().UTC())
	if err != nil {
		s.logger.Error("failed to record tracking click",
			zap.String("trackingId", id),
			zap.Error(err),
		)
		// The destination is still valid even if the click was lost.
	}
	if clicked && s.metrics != nil {
		s.metrics.IncTrackingClick()
	}

	return s.bookingPortalURL + "?customer=" + link.CustomerID
}

// LinkBooking attributes a new booking to the customer's most recent unlinked
// tracking link inside the attribution window. No matching link is a normal
// outcome and returns nil without error. A link is attributed at most once.
func (s *TrackingService) LinkBooking(
	ctx context.Context,
	customerID string,
	bookingID string,
	bookingCreatedAt time.Time,
) (*domain.TrackingLink, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(bookingID) == "" {
		return nil, fmt.Errorf("%w: booking id is required", domain.ErrValidation)
	}
	if bookingCreatedAt.IsZero() {
		return nil, fmt.Errorf("%w: booking creation time is required", domain.ErrValidation)
	}

	until := bookingCreatedAt.UTC()
	since := until.Add(-domain.AttributionWindow)

	link, err := s.links.LatestUnlinked(ctx, customerID, since, until)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find attributable link: %w", err)
	}

	linked, err := s.links.LinkBooking(ctx, link.ID, bookingID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to link booking: %w", err)
	}
	if !linked {
		// Lost a race with another booking event; that one wins.
		return nil, nil
	}

	s.logger.Info("booking attributed to notification",
		zap.String("trackingId", link.ID),
		zap.String("customerId", customerID),
		zap.String("bookingId", bookingID),
	)
	if s.metrics != nil {
		s.metrics.IncConversionLinked()
	}

	return s.links.GetByID(ctx, link.ID)
}
