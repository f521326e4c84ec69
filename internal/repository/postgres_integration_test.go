//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pinguard/pinguard/internal/model"
	"github.com/pinguard/pinguard/internal/testutil"
)

type PostgresStoreSuite struct {
	StoreSuite
	repo   *Repository
	unlock func() error
}

func TestPostgresStoreSuite(t *testing.T) {
	databaseURL := testutil.RequireEnv(t, "DATABASE_URL")

	s := new(PostgresStoreSuite)
	s.newStore = func() interface {
		RegistrationStore
		DoorDirectory
	} {
		ctx := context.Background()
		s.Require().NoError(testutil.ResetSchema(ctx, s.repo.pool))
		s.Require().NoError(s.repo.SeedDoors(ctx, model.DefaultDoors()))
		return s.repo
	}

	repo, err := New(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(repo.Close)
	s.repo = repo

	unlock, err := testutil.AcquireDBLock(context.Background(), repo.pool)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	t.Cleanup(func() { _ = unlock() })

	suite.Run(t, s)
}

func (s *PostgresStoreSuite) TestSeedDoorsIsIdempotent() {
	s.Require().NoError(s.repo.SeedDoors(s.ctx, model.DefaultDoors()))
	s.Require().NoError(s.repo.SeedDoors(s.ctx, model.DefaultDoors()))

	doors, err := s.repo.ListDoors(s.ctx)
	s.Require().NoError(err)
	s.Len(doors, 4)
}

func (s *PostgresStoreSuite) TestRestrictionsRoundTripAsJSONB() {
	reg := testutil.NewTestRegistration(s.T(), "peter", "2468", "main", "gym")
	reg.Restrictions = []model.AccessRestriction{
		testutil.Window(s.T(), "2024-01-01", "2024-01-10"),
		testutil.Window(s.T(), "2024-02-01", ""),
	}

	_, err := s.repo.SaveRegistration(s.ctx, reg)
	s.Require().NoError(err)

	got, ok, err := s.repo.GetRegistration(s.ctx, "peter", "2468")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal([]string{"main", "gym"}, got.DoorIDs)
	s.Require().Len(got.Restrictions, 2)
	s.Nil(got.Restrictions[1].ValidTo)
	s.True(got.Restrictions[0].ValidTo.Equal(testutil.MustParseTime(s.T(), "2024-01-10")))
}
