package mongo

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const notificationCollectionName = "notifications"

// mongoNotificationRepository implements repository.NotificationRepository.
// Producers only ever insert; the coach's tab switch is the only update.
type mongoNotificationRepository struct {
	collection *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) repository.NotificationRepository {
	return &mongoNotificationRepository{collection: db.Collection(notificationCollectionName)}
}

// Record upserts the unviewed flag for the triple. Two producers racing on
// the same triple both succeed: the loser hits the partial unique index.
func (r *mongoNotificationRepository) Record(ctx context.Context, coachID, studentID primitive.ObjectID, category domain.Category, at time.Time) error {
	filter := bson.M{
		"coachId":   coachID,
		"studentId": studentID,
		"category":  category,
		"isViewed":  false,
	}
	update := bson.M{"$setOnInsert": bson.M{"createdAt": at}}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return nil
}

type categoryCount struct {
	StudentID primitive.ObjectID `bson:"studentId"`
	Category  domain.Category    `bson:"category"`
	N         int                `bson:"n"`
}

func (r *mongoNotificationRepository) countBy(ctx context.Context, match bson.M) ([]categoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "studentId", Value: "$studentId"}, {Key: "category", Value: "$category"}}},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "studentId", Value: "$_id.studentId"},
			{Key: "category", Value: "$_id.category"},
			{Key: "n", Value: 1},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []categoryCount
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CountUnviewed tallies unviewed entries per category for one pair.
func (r *mongoNotificationRepository) CountUnviewed(ctx context.Context, coachID, studentID primitive.ObjectID) (domain.Counts, error) {
	var counts domain.Counts
	rows, err := r.countBy(ctx, bson.M{"coachId": coachID, "studentId": studentID, "isViewed": false})
	if err != nil {
		return counts, err
	}
	for _, row := range rows {
		counts.Add(row.Category, row.N)
	}
	return counts, nil
}

// CountUnviewedByCoach tallies unviewed entries per student for the roster.
func (r *mongoNotificationRepository) CountUnviewedByCoach(ctx context.Context, coachID primitive.ObjectID) (map[primitive.ObjectID]domain.Counts, error) {
	rows, err := r.countBy(ctx, bson.M{"coachId": coachID, "isViewed": false})
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]domain.Counts)
	for _, row := range rows {
		c := out[row.StudentID]
		c.Add(row.Category, row.N)
		out[row.StudentID] = c
	}
	return out, nil
}

// MarkViewed flags all unviewed entries of the triple in one UpdateMany.
func (r *mongoNotificationRepository) MarkViewed(ctx context.Context, coachID, studentID primitive.ObjectID, category domain.Category, at time.Time) (int64, error) {
	filter := bson.M{
		"coachId":   coachID,
		"studentId": studentID,
		"category":  category,
		"isViewed":  false,
	}
	update := bson.M{"$set": bson.M{"isViewed": true, "viewedAt": at}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// EnsureNotificationIndexes creates necessary indexes for the notifications collection.
func EnsureNotificationIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// At most one unviewed flag per triple
			Keys: bson.D{{Key: "coachId", Value: 1}, {Key: "studentId", Value: 1}, {Key: "category", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isViewed": false}).
				SetName("unviewed_triple"),
		},
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "isViewed", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
