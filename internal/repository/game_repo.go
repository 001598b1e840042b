package repository

import (
	"context"
	"time"

	"sketchrooms/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GameRepo archives finished games
type GameRepo interface {
	Create(ctx context.Context, record *model.GameRecord) error
	ListRecent(ctx context.Context, limit int) ([]*model.GameRecord, error)
	GetByRoomCode(ctx context.Context, roomCode string) ([]*model.GameRecord, error)
}

type gameRepo struct {
	collection *mongo.Collection
}

// NewGameRepo creates a new game archive repository
func NewGameRepo(db *mongo.Database) GameRepo {
	return &gameRepo{
		collection: db.Collection("games"),
	}
}

func (r *gameRepo) Create(ctx context.Context, record *model.GameRecord) error {
	if record.ID == "" {
		record.ID = primitive.NewObjectID().Hex()
	}
	if record.FinishedAt.IsZero() {
		record.FinishedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, record)
	return err
}

func (r *gameRepo) ListRecent(ctx context.Context, limit int) ([]*model.GameRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "finishedAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.GameRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *gameRepo) GetByRoomCode(ctx context.Context, roomCode string) ([]*model.GameRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"roomCode": roomCode})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.GameRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
