//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"technovit/internal/registration/models"
	storage "technovit/internal/storage/mongo"
	"technovit/pkg/domain"
	"technovit/pkg/platform/sentinel"
	"technovit/pkg/testutil/containers"
)

type MongoStoreSuite struct {
	suite.Suite
	container *containers.MongoContainer
	db        *mongo.Database
	store     *Mongo
}

func TestMongoStoreSuite(t *testing.T) {
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) SetupSuite() {
	s.container = containers.NewMongoContainer(s.T())
}

func (s *MongoStoreSuite) SetupTest() {
	s.db = s.container.Database(s.T())
	s.Require().NoError(storage.EnsureIndexes(context.Background(), s.db))
	s.store = NewMongo(s.db)
}

func (s *MongoStoreSuite) TestPositionalInvitationUpdate() {
	ctx := context.Background()
	creator, member := domain.NewUserID(), domain.NewUserID()
	reg := team(creator, member)
	s.Require().NoError(s.store.Insert(ctx, reg))

	s.Require().NoError(s.store.SetInvitationStatus(ctx, reg.ID, member, models.InvitationDeclined, time.Now()))

	got, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(models.InvitationAccepted, got.InvitationStatus[0].Status)
	s.Equal(models.InvitationDeclined, got.InvitationStatus[1].Status)

	err = s.store.SetInvitationStatus(ctx, reg.ID, domain.NewUserID(), models.InvitationAccepted, time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MongoStoreSuite) TestExpiredTokenDoesNotMatch() {
	ctx := context.Background()
	creator, invitee := domain.NewUserID(), domain.NewUserID()
	reg := team(creator, invitee)
	expired := time.Now().Add(-time.Minute).UTC()
	reg.InvitationStatus[1] = models.Invitation{UserID: invitee, Status: models.InvitationPending, Token: "tok", TokenExpires: &expired}
	s.Require().NoError(s.store.Insert(ctx, reg))

	err := s.store.SetInvitationStatus(ctx, reg.ID, invitee, models.InvitationAccepted, time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MongoStoreSuite) TestRemoveMemberPullsBothLists() {
	ctx := context.Background()
	creator, a, b := domain.NewUserID(), domain.NewUserID(), domain.NewUserID()
	reg := team(creator, a, b)
	s.Require().NoError(s.store.Insert(ctx, reg))

	s.Require().NoError(s.store.RemoveMember(ctx, reg.ID, a))

	got, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal([]domain.UserID{creator, b}, got.TeamMembers)
	s.Len(got.InvitationStatus, 2)
}

func (s *MongoStoreSuite) TestLegacyStringReferencesDecode() {
	ctx := context.Background()
	creator := primitive.NewObjectID()
	regID := primitive.NewObjectID()
	_, err := s.db.Collection(storage.CollectionRegistrations).InsertOne(ctx, bson.M{
		"_id":              regID,
		"event":            primitive.NewObjectID().Hex(),
		"creator":          creator.Hex(),
		"teamMembers":      bson.A{creator.Hex()},
		"invitationStatus": bson.A{bson.M{"userId": creator.Hex(), "status": "accepted"}},
		"paymentStatus":    "pending",
		"paymentId":        nil,
	})
	s.Require().NoError(err)

	got, err := s.store.FindByID(ctx, domain.RegistrationID(regID))
	s.Require().NoError(err)
	s.Equal(domain.UserID(creator), got.Creator)
	s.Equal(domain.UserID(creator), got.InvitationStatus[0].UserID)
}

func (s *MongoStoreSuite) TestMarkPaid() {
	ctx := context.Background()
	reg := team(domain.NewUserID())
	s.Require().NoError(s.store.Insert(ctx, reg))

	s.Require().NoError(s.store.MarkPaid(ctx, reg.ID, "pi_1"))
	s.ErrorIs(s.store.MarkPaid(ctx, reg.ID, "pi_2"), sentinel.ErrConflict)
	s.ErrorIs(s.store.MarkPaid(ctx, domain.NewRegistrationID(), "pi_3"), sentinel.ErrNotFound)
}

func (s *MongoStoreSuite) TestMalformedReferenceDecodesAsNil() {
	ctx := context.Background()
	eventID := domain.NewEventID()
	creator := domain.NewUserID()
	healthy := team(creator, domain.NewUserID())
	healthy.Event = eventID
	s.Require().NoError(s.store.Insert(ctx, healthy))

	legacyID := primitive.NewObjectID()
	creatorOID := primitive.ObjectID(creator)
	_, err := s.db.Collection(storage.CollectionRegistrations).InsertOne(ctx, bson.M{
		"_id":         legacyID,
		"event":       primitive.ObjectID(eventID),
		"creator":     creatorOID,
		"teamMembers": bson.A{creatorOID, "not-a-valid-id"},
		"invitationStatus": bson.A{
			bson.M{"userId": creatorOID, "status": "accepted"},
			bson.M{"userId": "not-a-valid-id", "status": "accepted"},
		},
		"paymentStatus": "pending",
	})
	s.Require().NoError(err)

	regs, err := s.store.ListByEvents(ctx, []domain.EventID{eventID})
	s.Require().NoError(err)
	s.Require().Len(regs, 2)
	s.Equal(healthy.ID, regs[0].ID)
	s.Len(regs[0].TeamMembers, 2)

	legacy := regs[1]
	s.Equal(domain.RegistrationID(legacyID), legacy.ID)
	s.Equal(eventID, legacy.Event)
	s.Require().Len(legacy.TeamMembers, 2)
	s.Equal(creator, legacy.TeamMembers[0])
	s.True(legacy.TeamMembers[1].IsNil())
	s.True(legacy.InvitationStatus[1].UserID.IsNil())
}
