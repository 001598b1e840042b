package repository

import (
	"context"

	"sketchrooms/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WordRepo handles MongoDB operations for the word bank
type WordRepo interface {
	ListAll(ctx context.Context) ([]model.WordEntry, error)
	Upsert(ctx context.Context, entries []model.WordEntry) (int, error)
	Count(ctx context.Context) (int64, error)
}

type wordRepo struct {
	collection *mongo.Collection
}

// NewWordRepo creates a new word repository
func NewWordRepo(db *mongo.Database) WordRepo {
	return &wordRepo{
		collection: db.Collection("words"),
	}
}

func (r *wordRepo) ListAll(ctx context.Context) ([]model.WordEntry, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []model.WordEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Upsert inserts entries keyed by word, returning how many were new
func (r *wordRepo) Upsert(ctx context.Context, entries []model.WordEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(entries))
	for _, e := range entries {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"word": e.Word}).
			SetUpdate(bson.M{"$set": e}).
			SetUpsert(true))
	}
	res, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return int(res.UpsertedCount), nil
}

func (r *wordRepo) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
