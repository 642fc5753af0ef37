package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	storage "technovit/internal/storage/mongo"
	"technovit/internal/user/models"
	"technovit/pkg/domain"
)

// Mongo is the MongoDB-backed user store.
type Mongo struct {
	coll *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{coll: db.Collection(storage.CollectionUsers)}
}

func (s *Mongo) Create(ctx context.Context, user *models.User) error {
	doc := *user
	doc.Email = models.NormalizeEmail(user.Email)
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert user: %w", storage.Translate(err))
	}
	return nil
}

func (s *Mongo) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, storage.Translate(err))
	}
	return &u, nil
}

func (s *Mongo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, bson.M{"email": models.NormalizeEmail(email)}).Decode(&u); err != nil {
		return nil, fmt.Errorf("find user by email: %w", storage.Translate(err))
	}
	return &u, nil
}

func (s *Mongo) FindByIDs(ctx context.Context, ids []domain.UserID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	cur, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", storage.Translate(err))
	}
	var users []*models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", storage.Translate(err))
	}
	byID := make(map[domain.UserID]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]*models.User, 0, len(users))
	seen := make(map[domain.UserID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Mongo) CountVITians(ctx context.Context, ids []domain.UserID) (vitians, others int, err error) {
	if len(ids) == 0 {
		return 0, 0, nil
	}
	v, err := s.coll.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}, "isVITian": true})
	if err != nil {
		return 0, 0, fmt.Errorf("count vitians: %w", storage.Translate(err))
	}
	o, err := s.coll.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}, "isVITian": bson.M{"$ne": true}})
	if err != nil {
		return 0, 0, fmt.Errorf("count non-vitians: %w", storage.Translate(err))
	}
	return int(v), int(o), nil
}
