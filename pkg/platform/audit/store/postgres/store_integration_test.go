//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"technovit/pkg/domain"
	audit "technovit/pkg/platform/audit"
	"technovit/pkg/testutil/containers"
)

type OutboxSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
	ctx   context.Context
}

func TestOutboxSuite(t *testing.T) {
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = New(s.pg.DB)
	s.ctx = context.Background()
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
	s.Require().NoError(s.store.EnsureSchema(s.ctx), "schema creation is idempotent")
}

func (s *OutboxSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE audit_outbox`)
	s.Require().NoError(err)
}

func (s *OutboxSuite) TestAppendFetchMark() {
	for _, driver := range []string{DriverPgx, DriverPQ} {
		s.Run(driver, func() {
			db, err := Open(s.ctx, driver, s.pg.DSN)
			s.Require().NoError(err)
			defer db.Close()
			store := New(db)

			userID := domain.NewUserID()
			s.Require().NoError(store.Append(s.ctx, audit.Event{
				UserID:  userID,
				Subject: "reg-1",
				Action:  string(audit.EventPaymentConfirmed),
			}))

			entries, err := store.FetchUnpublished(s.ctx, 10)
			s.Require().NoError(err)
			s.Require().Len(entries, 1)
			s.Equal(userID.String(), entries[0].AggregateID)
			s.Equal(string(audit.EventPaymentConfirmed), entries[0].EventType)

			var decoded audit.Event
			s.Require().NoError(json.Unmarshal(entries[0].Payload, &decoded))
			s.Equal("reg-1", decoded.Subject)

			s.Require().NoError(store.MarkPublished(s.ctx, []uuid.UUID{entries[0].ID}))
			entries, err = store.FetchUnpublished(s.ctx, 10)
			s.Require().NoError(err)
			s.Empty(entries)
		})
	}
}

func (s *OutboxSuite) TestOpenRejectsUnknownDriver() {
	_, err := Open(s.ctx, "mysql", s.pg.DSN)
	s.Error(err)
}
