package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/internal/users"
	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/types"
)

// Stats aggregates the dashboard totals.
type Stats struct {
	TotalEvents    int64           `json:"total_events"`
	TotalPhotos    int64           `json:"total_photos"`
	TotalClients   int64           `json:"total_clients"`
	TotalPurchases int64           `json:"total_purchases"`
	Revenue        decimal.Decimal `json:"revenue"`
}

// Service exposes the admin dashboard operations. Every call requires an
// admin viewer; the middleware guard is not trusted alone.
type Service interface {
	Stats(ctx context.Context, viewer types.Viewer) (*Stats, error)
	Clients(ctx context.Context, viewer types.Viewer) ([]users.UserDTO, error)
	UpdateRole(ctx context.Context, viewer types.Viewer, userID uuid.UUID, role enums.UserRole) (*users.UserDTO, error)
}

type eventCounter interface {
	Count(ctx context.Context) (int64, error)
}

type photoCounter interface {
	Count(ctx context.Context) (int64, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListByRole(ctx context.Context, role enums.UserRole) ([]models.User, error)
	CountByRole(ctx context.Context, role enums.UserRole) (int64, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error
}

type purchaseStats interface {
	Count(ctx context.Context) (int64, error)
}

type revenueSource interface {
	PaidRevenue(ctx context.Context) (decimal.Decimal, error)
}

type service struct {
	events    eventCounter
	photos    photoCounter
	users     userDirectory
	purchases purchaseStats
	revenue   revenueSource
	logger    *logger.Logger
}

// ServiceParams bundles the dependencies required to build the admin
// service.
type ServiceParams struct {
	Events    eventCounter
	Photos    photoCounter
	Users     userDirectory
	Purchases purchaseStats
	Revenue   revenueSource
	Logger    *logger.Logger
}

// NewService builds the admin service.
func NewService(params ServiceParams) (Service, error) {
	if params.Events == nil {
		return nil, fmt.Errorf("event counter is required")
	}
	if params.Photos == nil {
		return nil, fmt.Errorf("photo counter is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase stats are required")
	}
	if params.Revenue == nil {
		return nil, fmt.Errorf("revenue source is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		events:    params.Events,
		photos:    params.Photos,
		users:     params.Users,
		purchases: params.Purchases,
		revenue:   params.Revenue,
		logger:    params.Logger,
	}, nil
}

func (s *service) Stats(ctx context.Context, viewer types.Viewer) (*Stats, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}

	totalEvents, err := s.events.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count events")
	}
	totalPhotos, err := s.photos.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count photos")
	}
	totalClients, err := s.users.CountByRole(ctx, enums.UserRoleClient)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count clients")
	}
	totalPurchases, err := s.purchases.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count purchases")
	}
	revenue, err := s.revenue.PaidRevenue(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum revenue")
	}

	return &Stats{
		TotalEvents:    totalEvents,
		TotalPhotos:    totalPhotos,
		TotalClients:   totalClients,
		TotalPurchases: totalPurchases,
		Revenue:        revenue,
	}, nil
}

func (s *service) Clients(ctx context.Context, viewer types.Viewer) ([]users.UserDTO, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}

	rows, err := s.users.ListByRole(ctx, enums.UserRoleClient)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list clients")
	}
	result := make([]users.UserDTO, 0, len(rows))
	for i := range rows {
		result = append(result, *users.FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) UpdateRole(ctx context.Context, viewer types.Viewer, userID uuid.UUID, role enums.UserRole) (*users.UserDTO, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}
	if userID == viewer.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot change your own role")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	if user.Role != role {
		if err := s.users.UpdateRole(ctx, userID, role); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update role")
		}
		user.Role = role
		s.logger.Info(ctx, fmt.Sprintf("role of user %s changed to %s", userID, role))
	}
	return users.FromModel(user), nil
}

func requireAdmin(viewer types.Viewer) error {
	if !viewer.Authenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !viewer.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	return nil
}
