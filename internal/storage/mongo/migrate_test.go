package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeReference(t *testing.T) {
	oid := primitive.NewObjectID()
	other := primitive.NewObjectID()

	t.Run("scalar string reference", func(t *testing.T) {
		doc := bson.M{"event": oid.Hex()}
		assert.True(t, normalizeReference(doc, []string{"event"}))
		assert.Equal(t, oid, doc["event"])
	})

	t.Run("native reference is untouched", func(t *testing.T) {
		doc := bson.M{"creator": oid}
		assert.False(t, normalizeReference(doc, []string{"creator"}))
		assert.Equal(t, oid, doc["creator"])
	})

	t.Run("mixed array of references", func(t *testing.T) {
		doc := bson.M{"teamMembers": bson.A{oid, other.Hex()}}
		assert.True(t, normalizeReference(doc, []string{"teamMembers"}))
		assert.Equal(t, bson.A{oid, other}, doc["teamMembers"])
	})

	t.Run("references inside embedded documents", func(t *testing.T) {
		doc := bson.M{"invitationStatus": bson.A{
			bson.M{"userId": oid.Hex(), "status": "accepted"},
			bson.D{{Key: "userId", Value: other.Hex()}, {Key: "status", Value: "pending"}},
		}}
		assert.True(t, normalizeReference(doc, []string{"invitationStatus", "userId"}))
		inv := doc["invitationStatus"].(bson.A)
		assert.Equal(t, oid, inv[0].(bson.M)["userId"])
		assert.Equal(t, other, inv[1].(bson.D)[0].Value)
	})

	t.Run("malformed strings are left alone", func(t *testing.T) {
		doc := bson.M{"event": "not-an-id", "teamMembers": bson.A{"nope"}}
		assert.False(t, normalizeReference(doc, []string{"event"}))
		assert.False(t, normalizeReference(doc, []string{"teamMembers"}))
		assert.Equal(t, "not-an-id", doc["event"])
	})
}
