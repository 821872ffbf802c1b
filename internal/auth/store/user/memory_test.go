package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"salesgate/internal/auth/models"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
	now   time.Time
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
	s.now = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryUserStoreSuite) newUser(tenantID id.TenantID, tenant, code string, createdAt time.Time) *models.User {
	return &models.User{
		ID:        id.NewUserID(),
		TenantID:  tenantID,
		Tenant:    tenant,
		Code:      code,
		Secret:    "p1",
		Role:      models.RoleSales,
		CreatedAt: createdAt,
	}
}

func (s *InMemoryUserStoreSuite) TestCreateRejectsDuplicateCodeInTenant() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.Create(ctx, s.newUser(1, "acme", "u1", s.now)))

	err := s.store.Create(ctx, s.newUser(1, "acme", "u1", s.now))
	assert.ErrorIs(s.T(), err, sentinel.ErrAlreadyExists)

	require.NoError(s.T(), s.store.Create(ctx, s.newUser(2, "globex", "u1", s.now)), "same code in another tenant is allowed")
}

func (s *InMemoryUserStoreSuite) TestFindByTenantAndCode() {
	ctx := context.Background()
	acme := s.newUser(1, "acme", "u1", s.now)
	require.NoError(s.T(), s.store.Create(ctx, acme))
	require.NoError(s.T(), s.store.Create(ctx, s.newUser(2, "globex", "u1", s.now)))

	found, err := s.store.FindByTenantAndCode(ctx, 1, "u1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), acme.ID, found.ID)
	assert.Equal(s.T(), "acme", found.Tenant)

	_, err = s.store.FindByTenantAndCode(ctx, 3, "u1")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestListByCodeOrdersLegacyFirst() {
	ctx := context.Background()
	tenanted := s.newUser(2, "globex", "u1", s.now)
	legacy := s.newUser(0, "", "u1", s.now.Add(time.Hour))
	require.NoError(s.T(), s.store.Create(ctx, tenanted))
	require.NoError(s.T(), s.store.Create(ctx, legacy))

	users, err := s.store.ListByCode(ctx, "u1")
	require.NoError(s.T(), err)
	require.Len(s.T(), users, 2)
	assert.Equal(s.T(), legacy.ID, users[0].ID)
	assert.Equal(s.T(), tenanted.ID, users[1].ID)

	none, err := s.store.ListByCode(ctx, "nobody")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), none)
}

func (s *InMemoryUserStoreSuite) TestReturnedUsersAreCopies() {
	ctx := context.Background()
	u := s.newUser(1, "acme", "u1", s.now)
	require.NoError(s.T(), s.store.Create(ctx, u))

	found, err := s.store.FindByID(ctx, u.ID)
	require.NoError(s.T(), err)
	found.Secret = "changed"

	again, err := s.store.FindByID(ctx, u.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "p1", again.Secret)
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}
