package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bizlink/internal/identity/models"
	"bizlink/internal/identity/store"
	jwttoken "bizlink/internal/jwt_token"
	dErrors "bizlink/pkg/domain-errors"
)

type IdentityServiceSuite struct {
	suite.Suite
	store   *store.MemoryStore
	service *Service
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	tokens := jwttoken.NewJWTService("test-signing-key", "bizlink", "bizlink-api")
	s.service = New(s.store, tokens, time.Hour)
}

func (s *IdentityServiceSuite) TestRegister_Validation() {
	ctx := context.Background()

	s.Run("missing email", func() {
		_, err := s.service.Register(ctx, "  ", "longenough", models.RoleIndividual, "Ada")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("short password", func() {
		_, err := s.service.Register(ctx, "ada@example.com", "short", models.RoleIndividual, "Ada")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("unknown role", func() {
		_, err := s.service.Register(ctx, "ada@example.com", "longenough", models.Role("ghost"), "Ada")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}

func (s *IdentityServiceSuite) TestRegister_HashesPasswordAndConflictsOnEmail() {
	ctx := context.Background()

	identity, err := s.service.Register(ctx, "ada@example.com", "correct horse", models.RoleIndividual, " Ada ")
	s.Require().NoError(err)
	s.NotEmpty(identity.ID)
	s.Equal("Ada", identity.DisplayName)
	s.NotEqual("correct horse", identity.PasswordHash)

	_, err = s.service.Register(ctx, "ada@example.com", "another pass", models.RoleBusiness, "Other Ada")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *IdentityServiceSuite) TestLogin() {
	ctx := context.Background()

	registered, err := s.service.Register(ctx, "ada@example.com", "correct horse", models.RoleIndividual, "Ada")
	s.Require().NoError(err)

	s.Run("valid credentials return a token", func() {
		resp, err := s.service.Login(ctx, "ada@example.com", "correct horse")
		s.Require().NoError(err)
		s.NotEmpty(resp.AccessToken)
		s.Equal(registered.ID, resp.Identity.ID)
	})

	s.Run("wrong password", func() {
		_, err := s.service.Login(ctx, "ada@example.com", "battery staple")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	s.Run("unknown email uses the same error as wrong password", func() {
		_, err := s.service.Login(ctx, "nobody@example.com", "whatever")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})
}

func (s *IdentityServiceSuite) TestResolve() {
	ctx := context.Background()

	registered, err := s.service.Register(ctx, "ada@example.com", "correct horse", models.RoleIndividual, "Ada")
	s.Require().NoError(err)

	resolved, err := s.service.Resolve(ctx, registered.ID)
	s.Require().NoError(err)
	s.Equal(registered.Email, resolved.Email)

	_, err = s.service.Resolve(ctx, "missing")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *IdentityServiceSuite) TestSearch_ExcludesCaller() {
	ctx := context.Background()

	ada, err := s.service.Register(ctx, "ada@example.com", "correct horse", models.RoleIndividual, "Ada")
	s.Require().NoError(err)
	_, err = s.service.Register(ctx, "ted@example.com", "correct horse", models.RoleBusiness, "Ted's Plumbing")
	s.Require().NoError(err)

	results, err := s.service.Search(ctx, ada.ID, "", 10)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal("Ted's Plumbing", results[0].DisplayName)
}
