package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"technovit/internal/event/models"
	storage "technovit/internal/storage/mongo"
	"technovit/pkg/domain"
)

// Mongo is the MongoDB-backed event store.
type Mongo struct {
	coll *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{coll: db.Collection(storage.CollectionEvents)}
}

func (s *Mongo) Insert(ctx context.Context, ev *models.Event) error {
	if _, err := s.coll.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("insert event: %w", storage.Translate(err))
	}
	return nil
}

func (s *Mongo) FindByID(ctx context.Context, id domain.EventID) (*models.Event, error) {
	var ev models.Event
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&ev); err != nil {
		return nil, fmt.Errorf("find event %s: %w", id, storage.Translate(err))
	}
	return &ev, nil
}

func (s *Mongo) List(ctx context.Context, includeHidden bool) ([]*models.Event, error) {
	filter := bson.M{}
	if !includeHidden {
		filter["isHidden"] = bson.M{"$ne": true}
	}
	opts := options.Find().SetSort(bson.D{{Key: "isPinned", Value: -1}, {Key: "_id", Value: 1}})
	return s.find(ctx, filter, opts)
}

func (s *Mongo) FindByIDs(ctx context.Context, ids []domain.EventID) ([]*models.Event, error) {
	if len(ids) == 0 {
		return []*models.Event{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
}

func (s *Mongo) FindIDsByCoordinator(ctx context.Context, userID domain.UserID) ([]domain.EventID, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"studentCoordinators._id": userID},
		bson.M{"facultyCoordinators._id": userID},
	}}
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find coordinator events: %w", storage.Translate(err))
	}
	var rows []struct {
		ID domain.EventID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode coordinator events: %w", storage.Translate(err))
	}
	ids := make([]domain.EventID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// UpdateFields performs a single atomic $set and returns the updated document.
func (s *Mongo) UpdateFields(ctx context.Context, id domain.EventID, update models.Update) (*models.Event, error) {
	set := bson.M{}
	for field, v := range update {
		set[field] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var ev models.Event
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&ev); err != nil {
		return nil, fmt.Errorf("update event %s: %w", id, storage.Translate(err))
	}
	return &ev, nil
}

func (s *Mongo) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*models.Event, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", storage.Translate(err))
	}
	events := []*models.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", storage.Translate(err))
	}
	return events, nil
}
