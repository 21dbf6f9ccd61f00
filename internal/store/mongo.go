package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/text-analysis/web/internal/models"
)

// DefaultHistoryLimit caps how many runs a history page shows.
const DefaultHistoryLimit = 50

// MongoStore keeps the analysis run history in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("runs")}
}

func (s *MongoStore) InsertRun(ctx context.Context, run *models.Run) (string, error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.RunID == "" {
		run.RunID = NewID()
	}
	res, err := s.col.InsertOne(ctx, run)
	if err != nil {
		return "", fmt.Errorf("mongo insert: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	run.ID = oid
	return oid.Hex(), nil
}

// ListRuns returns a session's runs, newest first.
func (s *MongoStore) ListRuns(ctx context.Context, sessionID string, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.col.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var runs []models.Run
	if err := cur.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// DeleteRun removes one run and returns it. Runs of other sessions are
// never touched.
func (s *MongoStore) DeleteRun(ctx context.Context, sessionID, id string) (*models.Run, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %w", err)
	}
	var run models.Run
	err = s.col.FindOneAndDelete(ctx, bson.M{"_id": oid, "session_id": sessionID}).Decode(&run)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
