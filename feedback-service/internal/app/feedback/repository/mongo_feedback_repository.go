package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"feedbackai/feedback-service/internal/app/feedback/entity"
	"feedbackai/pkg/metrics"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ FeedbackRepository = (*MongoFeedbackRepository)(nil)

type MongoFeedbackRepository struct {
	collection *mongo.Collection
}

func NewMongoFeedbackRepository(db *mongo.Database) *MongoFeedbackRepository {
	return &MongoFeedbackRepository{
		collection: db.Collection(feedbackTable),
	}
}

// EnsureIndexes создаёт индексы по rating (фильтр и счётчики аналитики)
// и по created_at (последние отзывы)
func (r *MongoFeedbackRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "rating", Value: 1}},
			Options: options.Index().SetName("rating_idx"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("created_at_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create feedback indexes: %w", err)
	}
	return nil
}

func (r *MongoFeedbackRepository) Create(ctx context.Context, feedback *entity.Feedback) (err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, feedbackTable)
	defer func() { timer.Done(err) }()

	// MongoDB хранит время с точностью до миллисекунд
	now := time.Now().UTC().Truncate(time.Millisecond)
	feedback.ID = uuid.NewString()
	feedback.CreatedAt = now
	feedback.UpdatedAt = now

	if _, err = r.collection.InsertOne(ctx, feedback); err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	return nil
}

func (r *MongoFeedbackRepository) GetByID(ctx context.Context, id string) (_ *entity.Feedback, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, feedbackTable)
	defer func() { timer.Done(err) }()

	var feedback entity.Feedback
	err = r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&feedback)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	return &feedback, nil
}

func (r *MongoFeedbackRepository) List(ctx context.Context, filter entity.FeedbackFilter) (_ []entity.Feedback, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, feedbackTable)
	defer func() { timer.Done(err) }()

	query := bson.M{}
	if filter.Rating != nil {
		query["rating"] = *filter.Rating
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"review": pattern},
			bson.M{"ai.summary": pattern},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find feedbacks: %w", err)
	}
	defer cursor.Close(ctx)

	feedbacks := make([]entity.Feedback, 0)
	if err = cursor.All(ctx, &feedbacks); err != nil {
		return nil, fmt.Errorf("failed to decode feedbacks: %w", err)
	}

	return feedbacks, nil
}

func (r *MongoFeedbackRepository) Update(ctx context.Context, feedback *entity.Feedback) (err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, feedbackTable)
	defer func() { timer.Done(err) }()

	feedback.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	update := bson.M{
		"$set": bson.M{
			"rating":     feedback.Rating,
			"review":     feedback.Review,
			"updated_at": feedback.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": feedback.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrFeedbackNotFound
	}

	return nil
}

func (r *MongoFeedbackRepository) Delete(ctx context.Context, id string) (err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, feedbackTable)
	defer func() { timer.Done(err) }()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrFeedbackNotFound
	}

	return nil
}

func (r *MongoFeedbackRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, bson.M{})
}

func (r *MongoFeedbackRepository) CountByRating(ctx context.Context, rating int) (int64, error) {
	return r.count(ctx, bson.M{"rating": rating})
}

func (r *MongoFeedbackRepository) count(ctx context.Context, filter bson.M) (_ int64, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, feedbackTable)
	defer func() { timer.Done(err) }()

	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedbacks: %w", err)
	}
	return n, nil
}

func (r *MongoFeedbackRepository) AverageRating(ctx context.Context) (_ float64, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpAggregate, feedbackTable)
	defer func() { timer.Done(err) }()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate average rating: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Avg float64 `bson:"avg"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode average rating: %w", err)
	}

	// Пустая коллекция: $group не возвращает ни одного документа
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Avg, nil
}
