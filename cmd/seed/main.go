package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"sketchrooms/internal/config"
	"sketchrooms/internal/model"
	"sketchrooms/internal/repository"
	"sketchrooms/internal/service"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// seeds the word bank; pass -file words.json ([{"word":"cat","difficulty":"easy"}]) to add your own
func main() {
	file := flag.String("file", "", "JSON file with extra word entries")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.MongoURI == "" {
		logger.Fatal("MONGO_URI is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	entries := service.DefaultWordEntries()
	if *file != "" {
		extra, err := readEntries(*file)
		if err != nil {
			logger.Fatal("failed to read word file", zap.String("file", *file), zap.Error(err))
		}
		entries = append(entries, extra...)
	}

	repo := repository.NewWordRepo(client.Database(cfg.MongoDB))
	n, err := repo.Upsert(ctx, entries)
	if err != nil {
		logger.Fatal("failed to seed words", zap.Error(err))
	}
	total, err := repo.Count(ctx)
	if err != nil {
		logger.Fatal("failed to count words", zap.Error(err))
	}
	logger.Info("word bank seeded", zap.Int("upserted", n), zap.Int64("total", total))
}

func readEntries(path string) ([]model.WordEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []model.WordEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
