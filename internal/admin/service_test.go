package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/types"
)

type fakeCounter struct {
	count int64
}

func (f *fakeCounter) Count(ctx context.Context) (int64, error) {
	return f.count, nil
}

type fakeUserDirectory struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserDirectory() *fakeUserDirectory {
	return &fakeUserDirectory{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserDirectory) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserDirectory) ListByRole(ctx context.Context, role enums.UserRole) ([]models.User, error) {
	var result []models.User
	for _, user := range f.users {
		if user.Role == role {
			result = append(result, *user)
		}
	}
	return result, nil
}

func (f *fakeUserDirectory) CountByRole(ctx context.Context, role enums.UserRole) (int64, error) {
	rows, _ := f.ListByRole(ctx, role)
	return int64(len(rows)), nil
}

func (f *fakeUserDirectory) UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error {
	if user, ok := f.users[id]; ok {
		user.Role = role
	}
	return nil
}

type fakeRevenue struct {
	total decimal.Decimal
}

func (f *fakeRevenue) PaidRevenue(ctx context.Context) (decimal.Decimal, error) {
	return f.total, nil
}

type adminFixture struct {
	service Service
	users   *fakeUserDirectory
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	directory := newFakeUserDirectory()
	svc, err := NewService(ServiceParams{
		Events:    &fakeCounter{count: 3},
		Photos:    &fakeCounter{count: 42},
		Users:     directory,
		Purchases: &fakeCounter{count: 7},
		Revenue:   &fakeRevenue{total: decimal.RequireFromString("128.50")},
		Logger:    logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &adminFixture{service: svc, users: directory}
}

func (fx *adminFixture) addUser(role enums.UserRole) uuid.UUID {
	id := uuid.New()
	fx.users.users[id] = &models.User{ID: id, Email: id.String() + "@example.com", Name: "User", Role: role}
	return id
}

func adminViewer() types.Viewer {
	return types.Viewer{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestStats_AggregatesTotals(t *testing.T) {
	fx := newAdminFixture(t)
	fx.addUser(enums.UserRoleClient)
	fx.addUser(enums.UserRoleClient)
	fx.addUser(enums.UserRoleAdmin)

	stats, err := fx.service.Stats(context.Background(), adminViewer())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalEvents != 3 || stats.TotalPhotos != 42 || stats.TotalPurchases != 7 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.TotalClients != 2 {
		t.Fatalf("admins must not count as clients, got %d", stats.TotalClients)
	}
	if !stats.Revenue.Equal(decimal.RequireFromString("128.50")) {
		t.Fatalf("unexpected revenue %s", stats.Revenue)
	}
}

func TestStats_RequiresAdmin(t *testing.T) {
	fx := newAdminFixture(t)

	_, err := fx.service.Stats(context.Background(), types.Viewer{UserID: uuid.New(), Role: enums.UserRoleClient})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}

	_, err = fx.service.Stats(context.Background(), types.Viewer{})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestClients_ListsOnlyClientRole(t *testing.T) {
	fx := newAdminFixture(t)
	fx.addUser(enums.UserRoleClient)
	fx.addUser(enums.UserRoleAdmin)

	clients, err := fx.service.Clients(context.Background(), adminViewer())
	if err != nil {
		t.Fatalf("Clients: %v", err)
	}
	if len(clients) != 1 {
		t.Fatalf("expected 1 client, got %d", len(clients))
	}
	if clients[0].Role != enums.UserRoleClient {
		t.Fatalf("unexpected role %s", clients[0].Role)
	}
}

func TestUpdateRole_PromotesClient(t *testing.T) {
	fx := newAdminFixture(t)
	clientID := fx.addUser(enums.UserRoleClient)

	updated, err := fx.service.UpdateRole(context.Background(), adminViewer(), clientID, enums.UserRoleAdmin)
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if updated.Role != enums.UserRoleAdmin {
		t.Fatalf("expected admin role, got %s", updated.Role)
	}
	if fx.users.users[clientID].Role != enums.UserRoleAdmin {
		t.Fatalf("role change not persisted")
	}
}

func TestUpdateRole_Validation(t *testing.T) {
	fx := newAdminFixture(t)
	viewer := adminViewer()
	fx.users.users[viewer.UserID] = &models.User{ID: viewer.UserID, Role: enums.UserRoleAdmin}

	_, err := fx.service.UpdateRole(context.Background(), viewer, uuid.New(), enums.UserRole("owner"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION for unknown role, got %v", err)
	}

	_, err = fx.service.UpdateRole(context.Background(), viewer, viewer.UserID, enums.UserRoleClient)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION for self-demotion, got %v", err)
	}

	_, err = fx.service.UpdateRole(context.Background(), viewer, uuid.New(), enums.UserRoleAdmin)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unknown user, got %v", err)
	}
}
