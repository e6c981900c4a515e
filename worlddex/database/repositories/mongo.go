package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/worlddex/worlddex/worlddex/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo-backed implementations of the repository interfaces. The engine's
// contract only needs load/replace of whole aggregates, so quests map to one
// document per quest and progress/stats to a single well-known document.

const (
	questCollection    = "quests"
	progressCollection = "user_progress"
	statsCollection    = "user_stats"
)

// ConnectMongo opens a client with a bounded handshake.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

type mongoQuestRepository struct {
	db *mongo.Database
}

func NewMongoQuestRepository(client *mongo.Client, dbName string) QuestRepository {
	return &mongoQuestRepository{db: client.Database(dbName)}
}

func (r *mongoQuestRepository) LoadQuests(ctx context.Context) ([]*models.Quest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.db.Collection(questCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var quests []*models.Quest
	if err := cur.All(ctx, &quests); err != nil {
		return nil, err
	}
	return quests, nil
}

func (r *mongoQuestRepository) SaveQuests(ctx context.Context, quests []*models.Quest) error {
	coll := r.db.Collection(questCollection)
	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return err
	}
	if len(quests) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(quests))
	for _, q := range quests {
		docs = append(docs, q)
	}
	_, err := coll.InsertMany(ctx, docs)
	return err
}

func (r *mongoQuestRepository) LoadUserProgress(ctx context.Context) (*models.UserProgress, error) {
	progress := new(models.UserProgress)
	err := r.db.Collection(progressCollection).
		FindOne(ctx, bson.D{{Key: "_id", Value: int64(1)}}).
		Decode(progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return progress, nil
}

func (r *mongoQuestRepository) SaveUserProgress(ctx context.Context, progress *models.UserProgress) error {
	progress.ID = 1
	progress.UpdatedAt = time.Now()

	_, err := r.db.Collection(progressCollection).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: int64(1)}},
		progress,
		options.Replace().SetUpsert(true))
	return err
}

type mongoStatsRepository struct {
	db *mongo.Database
}

func NewMongoStatsRepository(client *mongo.Client, dbName string) StatsRepository {
	return &mongoStatsRepository{db: client.Database(dbName)}
}

func (r *mongoStatsRepository) Load(ctx context.Context) (*models.Stats, error) {
	stats := new(models.Stats)
	err := r.db.Collection(statsCollection).
		FindOne(ctx, bson.D{{Key: "_id", Value: int64(1)}}).
		Decode(stats)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return stats, nil
}

func (r *mongoStatsRepository) Save(ctx context.Context, stats *models.Stats) error {
	stats.ID = 1
	stats.LastActivityDate = time.Now()

	_, err := r.db.Collection(statsCollection).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: int64(1)}},
		stats,
		options.Replace().SetUpsert(true))
	return err
}
