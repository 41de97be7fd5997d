//go:build integration

package registration_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ysvs/internal/registration/models"
	regstore "ysvs/internal/registration/store/registration"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
	"ysvs/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *regstore.Postgres
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = regstore.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateModuleTables(s.ctx))
}

func (s *PostgresStoreSuite) seedRegistration(eventID id.EventID, userID id.UserID, number string) *models.Registration {
	now := time.Now().UTC().Truncate(time.Microsecond)
	reg := &models.Registration{
		ID:                 id.RegistrationID(uuid.New()),
		EventID:            eventID,
		UserID:             userID,
		Status:             models.StatusConfirmed,
		PaymentStatus:      models.PaymentFree,
		FormData:           map[string]any{"dietary": "vegetarian"},
		RegistrationNumber: number,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.Require().NoError(s.store.Create(s.ctx, reg))
	return reg
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	eventID := s.postgres.CreateTestEvent(s.ctx, s.T())
	userID := s.postgres.CreateTestMember(s.ctx, s.T())
	reg := s.seedRegistration(eventID, userID, "REG-2026-0badf00d")

	found, err := s.store.FindByID(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(reg.RegistrationNumber, found.RegistrationNumber)
	s.Equal("vegetarian", found.FormData["dietary"])

	byPair, err := s.store.FindByEventAndUser(s.ctx, eventID, userID)
	s.Require().NoError(err)
	s.Equal(reg.ID, byPair.ID)
}

func (s *PostgresStoreSuite) TestUniquenessConstraints() {
	eventID := s.postgres.CreateTestEvent(s.ctx, s.T())
	userID := s.postgres.CreateTestMember(s.ctx, s.T())
	s.seedRegistration(eventID, userID, "REG-2026-aaaa0001")

	s.Run("one registration per event and user pair", func() {
		dup := &models.Registration{
			ID:                 id.RegistrationID(uuid.New()),
			EventID:            eventID,
			UserID:             userID,
			Status:             models.StatusConfirmed,
			PaymentStatus:      models.PaymentFree,
			RegistrationNumber: "REG-2026-aaaa0002",
			CreatedAt:          time.Now().UTC(),
			UpdatedAt:          time.Now().UTC(),
		}
		s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("registration numbers are globally unique", func() {
		otherEvent := s.postgres.CreateTestEvent(s.ctx, s.T())
		dup := &models.Registration{
			ID:                 id.RegistrationID(uuid.New()),
			EventID:            otherEvent,
			UserID:             userID,
			Status:             models.StatusConfirmed,
			PaymentStatus:      models.PaymentFree,
			RegistrationNumber: "REG-2026-aaaa0001",
			CreatedAt:          time.Now().UTC(),
			UpdatedAt:          time.Now().UTC(),
		}
		s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
	})
}

func (s *PostgresStoreSuite) TestTransitionIsConditional() {
	eventID := s.postgres.CreateTestEvent(s.ctx, s.T())
	userID := s.postgres.CreateTestMember(s.ctx, s.T())
	reg := s.seedRegistration(eventID, userID, "REG-2026-cafe0001")
	attendedAt := time.Now().UTC().Truncate(time.Microsecond)

	s.Run("disallowed source state is rejected", func() {
		err := s.store.Transition(s.ctx, reg.ID,
			[]models.Status{models.StatusPending}, models.StatusAttended, attendedAt)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("allowed transition stamps attendance", func() {
		err := s.store.Transition(s.ctx, reg.ID,
			[]models.Status{models.StatusConfirmed}, models.StatusAttended, attendedAt)
		s.Require().NoError(err)

		found, err := s.store.FindByID(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusAttended, found.Status)
		s.Require().NotNil(found.AttendedAt)
		s.WithinDuration(attendedAt, *found.AttendedAt, time.Millisecond)
	})

	s.Run("unknown registration reports not found", func() {
		err := s.store.Transition(s.ctx, id.RegistrationID(uuid.New()),
			[]models.Status{models.StatusConfirmed}, models.StatusAttended, attendedAt)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestEligibilitySet() {
	eventID := s.postgres.CreateTestEvent(s.ctx, s.T())
	now := time.Now().UTC()

	attended := s.seedRegistration(eventID, s.postgres.CreateTestMember(s.ctx, s.T()), "REG-2026-e110001a")
	s.Require().NoError(s.store.Transition(s.ctx, attended.ID,
		[]models.Status{models.StatusConfirmed}, models.StatusAttended, now))

	issued := s.seedRegistration(eventID, s.postgres.CreateTestMember(s.ctx, s.T()), "REG-2026-e110001b")
	s.Require().NoError(s.store.Transition(s.ctx, issued.ID,
		[]models.Status{models.StatusConfirmed}, models.StatusAttended, now))
	s.Require().NoError(s.store.SetCertificateIssued(s.ctx, issued.ID, true, now))

	// Confirmed but never attended; stays out of the eligibility set.
	s.seedRegistration(eventID, s.postgres.CreateTestMember(s.ctx, s.T()), "REG-2026-e110001c")

	eligible, err := s.store.ListEligible(s.ctx, eventID)
	s.Require().NoError(err)
	s.Require().Len(eligible, 1)
	s.Equal(attended.ID, eligible[0].ID)
}
