package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"technovit/internal/analytics/models"
	regmodels "technovit/internal/registration/models"
	storage "technovit/internal/storage/mongo"
	"technovit/pkg/domain"
)

// Mongo computes stats with count queries and a $lookup revenue pipeline.
type Mongo struct {
	registrations *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{registrations: db.Collection(storage.CollectionRegistrations)}
}

func scopeMatch(eventIDs []domain.EventID, extra bson.M) bson.M {
	match := bson.M{}
	if eventIDs != nil {
		match["event"] = bson.M{"$in": eventIDs}
	}
	for k, v := range extra {
		match[k] = v
	}
	return match
}

func (s *Mongo) Stats(ctx context.Context, eventIDs []domain.EventID) (*models.Stats, error) {
	total, err := s.registrations.CountDocuments(ctx, scopeMatch(eventIDs, nil))
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", storage.Translate(err))
	}
	paidMatch := scopeMatch(eventIDs, bson.M{"paymentStatus": regmodels.PaymentPaid})
	paid, err := s.registrations.CountDocuments(ctx, paidMatch)
	if err != nil {
		return nil, fmt.Errorf("count paid registrations: %w", storage.Translate(err))
	}
	unpaid, err := s.registrations.CountDocuments(ctx, scopeMatch(eventIDs, bson.M{"paymentStatus": regmodels.PaymentPending}))
	if err != nil {
		return nil, fmt.Errorf("count unpaid registrations: %w", storage.Translate(err))
	}

	revenue, err := s.paidRevenue(ctx, paidMatch)
	if err != nil {
		return nil, err
	}
	return &models.Stats{
		TotalRevenue:       revenue,
		TotalRegistrations: int(total),
		PaidCount:          int(paid),
		UnpaidCount:        int(unpaid),
	}, nil
}

// paidRevenue joins each paid registration to its event and sums the flat fee.
func (s *Mongo) paidRevenue(ctx context.Context, paidMatch bson.M) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: paidMatch}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: storage.CollectionEvents},
			{Key: "localField", Value: "event"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "eventData"},
		}}},
		{{Key: "$unwind", Value: "$eventData"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalRevenue", Value: bson.D{{Key: "$sum", Value: "$eventData.fee"}}},
		}}},
	}
	cur, err := s.registrations.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("aggregate revenue: %w", storage.Translate(err))
	}
	var rows []struct {
		TotalRevenue float64 `bson:"totalRevenue"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode revenue: %w", storage.Translate(err))
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].TotalRevenue, nil
}
