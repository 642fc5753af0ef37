package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"technovit/internal/registration/models"
	storage "technovit/internal/storage/mongo"
	"technovit/pkg/domain"
	"technovit/pkg/platform/sentinel"
)

// Mongo is the MongoDB-backed registration store. Every mutation is a single
// update on one document; no read-modify-write spans two round trips.
type Mongo struct {
	coll *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{coll: db.Collection(storage.CollectionRegistrations)}
}

func (s *Mongo) Insert(ctx context.Context, reg *models.Registration) error {
	if _, err := s.coll.InsertOne(ctx, reg); err != nil {
		return fmt.Errorf("insert registration: %w", storage.Translate(err))
	}
	return nil
}

func (s *Mongo) FindByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error) {
	var reg models.Registration
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&reg); err != nil {
		return nil, fmt.Errorf("find registration %s: %w", id, storage.Translate(err))
	}
	return &reg, nil
}

// ListVisibleTo matches the creator, team and invitation references. All three
// hold canonical ObjectIDs, so one representation per clause suffices.
func (s *Mongo) ListVisibleTo(ctx context.Context, userID domain.UserID) ([]*models.Registration, error) {
	return s.find(ctx, bson.M{"$or": bson.A{
		bson.M{"creator": userID},
		bson.M{"teamMembers": userID},
		bson.M{"invitationStatus.userId": userID},
	}})
}

func (s *Mongo) ListAll(ctx context.Context) ([]*models.Registration, error) {
	return s.find(ctx, bson.M{})
}

func (s *Mongo) ListByEvents(ctx context.Context, eventIDs []domain.EventID) ([]*models.Registration, error) {
	if eventIDs == nil {
		return s.find(ctx, bson.M{})
	}
	return s.find(ctx, bson.M{"event": bson.M{"$in": eventIDs}})
}

func (s *Mongo) find(ctx context.Context, filter bson.M) ([]*models.Registration, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find registrations: %w", storage.Translate(err))
	}
	regs := []*models.Registration{}
	if err := cur.All(ctx, &regs); err != nil {
		return nil, fmt.Errorf("decode registrations: %w", storage.Translate(err))
	}
	return regs, nil
}

// SetInvitationStatus is one positional update. $elemMatch pins "$" to the
// caller's record and excludes records whose token has expired.
func (s *Mongo) SetInvitationStatus(ctx context.Context, id domain.RegistrationID, userID domain.UserID, status models.InvitationStatus, now time.Time) error {
	filter := bson.M{
		"_id": id,
		"invitationStatus": bson.M{"$elemMatch": bson.M{
			"userId": userID,
			"$or": bson.A{
				bson.M{"tokenExpires": bson.M{"$exists": false}},
				bson.M{"tokenExpires": nil},
				bson.M{"tokenExpires": bson.M{"$gt": now}},
			},
		}},
	}
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"invitationStatus.$.status": status}})
	if err != nil {
		return fmt.Errorf("update invitation: %w", storage.Translate(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("invitation for %s in %s: %w", userID, id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Mongo) Delete(ctx context.Context, id domain.RegistrationID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete registration: %w", storage.Translate(err))
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("registration %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// RemoveMember pulls the user from both member lists in one update.
func (s *Mongo) RemoveMember(ctx context.Context, id domain.RegistrationID, userID domain.UserID) error {
	update := bson.M{"$pull": bson.M{
		"teamMembers":      userID,
		"invitationStatus": bson.M{"userId": userID},
	}}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("remove member: %w", storage.Translate(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("registration %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// MarkPaid only transitions pending registrations.
func (s *Mongo) MarkPaid(ctx context.Context, id domain.RegistrationID, paymentID string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "paymentStatus": models.PaymentPending},
		bson.M{"$set": bson.M{"paymentStatus": models.PaymentPaid, "paymentId": paymentID}},
	)
	if err != nil {
		return fmt.Errorf("mark paid: %w", storage.Translate(err))
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mark paid: %w", storage.Translate(err))
	}
	if n == 0 {
		return fmt.Errorf("registration %s: %w", id, sentinel.ErrNotFound)
	}
	return fmt.Errorf("registration %s already paid: %w", id, sentinel.ErrConflict)
}
