package services

import (
	"context"
	"time"

	"github.com/gatherly-app/gatherly-backend/internal/database"
	"github.com/gatherly-app/gatherly-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	newsCacheKey      = "news:latest"
	newsSourcesPrefix = "news:sources:"
	newsListLimit     = 50
)

// IngestNewsItem stores an aggregated news item in MongoDB and invalidates
// the listing cache so the next read picks it up.
func IngestNewsItem(ctx context.Context, item *models.NewsItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.PublishedAt.IsZero() {
		item.PublishedAt = item.CreatedAt
	}
	item.ID = primitive.NewObjectID()

	if _, err := database.DB.Collection("news_items").InsertOne(ctx, item); err != nil {
		return err
	}

	Cache.Delete(newsCacheKey)
	return nil
}

// ListNews returns the latest news items, Redis-cached. When sources is
// non-empty the cached listing is filtered down to those sources.
func ListNews(ctx context.Context, sources []string) ([]models.NewsItem, error) {
	var items []models.NewsItem

	hit, err := Cache.Get(newsCacheKey, &items)
	if err != nil || !hit {
		items, err = loadNewsFromMongo(ctx)
		if err != nil {
			return nil, err
		}
		Cache.SetWithTTL(newsCacheKey, items, 6*time.Hour)
	}

	if len(sources) == 0 {
		return items, nil
	}

	wanted := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		wanted[s] = struct{}{}
	}
	filtered := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		if _, ok := wanted[it.Source]; ok {
			filtered = append(filtered, it)
		}
	}
	return filtered, nil
}

func loadNewsFromMongo(ctx context.Context) ([]models.NewsItem, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}}).
		SetLimit(newsListLimit)

	cur, err := database.DB.Collection("news_items").Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []models.NewsItem
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SetNewsSourcePreferences stores a user's followed sources in Redis.
// Only called after the news_personalization consent check passed.
func SetNewsSourcePreferences(ctx context.Context, userID string, sources []string) error {
	key := newsSourcesPrefix + userID
	if err := database.RedisClient.Del(ctx, key).Err(); err != nil {
		return err
	}
	if len(sources) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(sources))
	for _, s := range sources {
		members = append(members, s)
	}
	if err := database.RedisClient.SAdd(ctx, key, members...).Err(); err != nil {
		return err
	}
	return database.RedisClient.Expire(ctx, key, 30*24*time.Hour).Err()
}

// GetNewsSourcePreferences returns a user's followed sources, empty when none.
func GetNewsSourcePreferences(ctx context.Context, userID string) ([]string, error) {
	key := newsSourcesPrefix + userID
	sources, err := database.RedisClient.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return sources, nil
}
