package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// referencePaths lists, per collection, the dotted paths holding identity references.
// Array elements are traversed transparently.
var referencePaths = map[string][]string{
	CollectionEvents: {
		"studentCoordinators._id",
		"facultyCoordinators._id",
	},
	CollectionRegistrations: {
		"event",
		"creator",
		"teamMembers",
		"invitationStatus.userId",
	},
}

// MigrationReport counts rewritten documents per collection.
type MigrationReport map[string]int

// MigrateReferenceIDs rewrites identity references stored as hex strings into
// native ObjectIDs so every reference has a single stored form.
func MigrateReferenceIDs(ctx context.Context, db *mongo.Database, logger *slog.Logger, dryRun bool) (MigrationReport, error) {
	report := MigrationReport{}
	for coll, paths := range referencePaths {
		n, err := migrateCollection(ctx, db.Collection(coll), paths, dryRun)
		if err != nil {
			return report, fmt.Errorf("migrate %s: %w", coll, err)
		}
		report[coll] = n
		logger.InfoContext(ctx, "reference migration",
			"collection", coll,
			"documents", n,
			"dry_run", dryRun,
		)
	}
	return report, nil
}

func migrateCollection(ctx context.Context, coll *mongo.Collection, paths []string, dryRun bool) (int, error) {
	or := make(bson.A, 0, len(paths))
	for _, p := range paths {
		or = append(or, bson.M{p: bson.M{"$type": "string"}})
	}
	cur, err := coll.Find(ctx, bson.M{"$or": or})
	if err != nil {
		return 0, Translate(err)
	}
	defer cur.Close(ctx)

	changed := 0
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return changed, err
		}
		set := bson.M{}
		for _, p := range paths {
			root := strings.SplitN(p, ".", 2)[0]
			if normalizeReference(doc, strings.Split(p, ".")) {
				set[root] = doc[root]
			}
		}
		if len(set) == 0 {
			continue
		}
		changed++
		if dryRun {
			continue
		}
		if _, err := coll.UpdateOne(ctx, bson.M{"_id": doc["_id"]}, bson.M{"$set": set}); err != nil {
			return changed, Translate(err)
		}
	}
	return changed, cur.Err()
}

// normalizeReference converts hex strings at path inside v to ObjectIDs in place.
func normalizeReference(v any, path []string) bool {
	switch node := v.(type) {
	case bson.M:
		if len(path) == 0 {
			return false
		}
		child, ok := node[path[0]]
		if !ok {
			return false
		}
		if len(path) == 1 {
			if converted, ok := toObjectID(child); ok {
				node[path[0]] = converted
				return true
			}
		}
		return normalizeReference(child, path[1:])
	case bson.D:
		for i := range node {
			if len(path) == 0 || node[i].Key != path[0] {
				continue
			}
			if len(path) == 1 {
				if converted, ok := toObjectID(node[i].Value); ok {
					node[i].Value = converted
					return true
				}
			}
			return normalizeReference(node[i].Value, path[1:])
		}
		return false
	case bson.A:
		changed := false
		for i, elem := range node {
			if len(path) == 0 {
				if converted, ok := toObjectID(elem); ok {
					node[i] = converted
					changed = true
				}
				continue
			}
			if normalizeReference(elem, path) {
				changed = true
			}
		}
		return changed
	default:
		return false
	}
}

func toObjectID(v any) (any, bool) {
	switch val := v.(type) {
	case string:
		oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(val))
		if err != nil {
			return nil, false
		}
		return oid, true
	case bson.A:
		changed := false
		for i, elem := range val {
			if s, ok := elem.(string); ok {
				if oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s)); err == nil {
					val[i] = oid
					changed = true
				}
			}
		}
		return val, changed
	default:
		return nil, false
	}
}
