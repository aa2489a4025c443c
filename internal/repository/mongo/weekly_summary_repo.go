package mongo

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const weeklySummaryCollectionName = "weekly_summaries"

// queueSort is the coach queue order: pending first, then FIFO by arrival.
var queueSort = bson.D{{Key: "taskCompleted", Value: 1}, {Key: "submissionOrder", Value: 1}}

// mongoWeeklySummaryRepository implements repository.WeeklySummaryRepository
type mongoWeeklySummaryRepository struct {
	collection *mongo.Collection
}

// NewMongoWeeklySummaryRepository creates a new WeeklySummary repository backed by MongoDB.
func NewMongoWeeklySummaryRepository(db *mongo.Database) repository.WeeklySummaryRepository {
	return &mongoWeeklySummaryRepository{
		collection: db.Collection(weeklySummaryCollectionName),
	}
}

// Create inserts a new weekly summary.
func (r *mongoWeeklySummaryRepository) Create(ctx context.Context, summary *domain.WeeklySummary) (primitive.ObjectID, error) {
	if summary.StudentID == primitive.NilObjectID || summary.CoachID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("weekly summary requires studentId and coachId")
	}
	if err := summary.CheckIntegrity(); err != nil {
		return primitive.NilObjectID, err
	}

	summary.ID = primitive.NewObjectID()
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, summary)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted weekly summary ID")
	}
	return insertedID, nil
}

// GetByID retrieves a weekly summary by its ID.
func (r *mongoWeeklySummaryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WeeklySummary, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

// GetLatestByStudent retrieves the student's most recent summary.
func (r *mongoWeeklySummaryRepository) GetLatestByStudent(ctx context.Context, studentID primitive.ObjectID) (*domain.WeeklySummary, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.findOne(ctx, bson.M{"studentId": studentID}, opts)
}

func (r *mongoWeeklySummaryRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.WeeklySummary, error) {
	var summary domain.WeeklySummary
	var err error
	if opts != nil {
		err = r.collection.FindOne(ctx, filter, opts).Decode(&summary)
	} else {
		err = r.collection.FindOne(ctx, filter).Decode(&summary)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := summary.CheckIntegrity(); err != nil {
		return nil, fmt.Errorf("summary %s: %w", summary.ID.Hex(), err)
	}
	return &summary, nil
}

// ListByStudent retrieves the student's summaries, newest first.
func (r *mongoWeeklySummaryRepository) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.WeeklySummary, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"studentId": studentID}, findOptions)
}

// ListByCoach retrieves the coach's queue in review order.
func (r *mongoWeeklySummaryRepository) ListByCoach(ctx context.Context, coachID primitive.ObjectID, completed *bool) ([]domain.WeeklySummary, error) {
	filter := bson.M{"coachId": coachID}
	if completed != nil {
		filter["taskCompleted"] = *completed
	}
	return r.find(ctx, filter, options.Find().SetSort(queueSort))
}

// ListDueOn retrieves summaries whose cooldown ends on day.
func (r *mongoWeeklySummaryRepository) ListDueOn(ctx context.Context, day time.Time) ([]domain.WeeklySummary, error) {
	return r.find(ctx, bson.M{"nextAllowedDate": domain.DateOf(day)}, options.Find())
}

// find decodes matching rows and drops the ones that fail CheckIntegrity.
func (r *mongoWeeklySummaryRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.WeeklySummary, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	summaries := []domain.WeeklySummary{}
	for cursor.Next(ctx) {
		var s domain.WeeklySummary
		if err := cursor.Decode(&s); err != nil {
			return nil, err
		}
		if s.CheckIntegrity() != nil {
			continue
		}
		summaries = append(summaries, s)
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// MarkComplete writes all completion fields in a single update so a row is
// never left half completed.
func (r *mongoWeeklySummaryRepository) MarkComplete(ctx context.Context, id, coachID primitive.ObjectID, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "coachId": coachID, "taskCompleted": false}
	update := bson.M{"$set": bson.M{
		"taskCompleted":   true,
		"taskCompletedAt": at,
		"viewedByCoach":   true,
		"viewedAt":        at,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if result.MatchedCount == 0 {
		// Either already completed (idempotent no-op) or not this coach's row.
		if err := r.ensureOwned(ctx, id, coachID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// MarkViewed flags the summary as opened by the coach, once.
func (r *mongoWeeklySummaryRepository) MarkViewed(ctx context.Context, id, coachID primitive.ObjectID, at time.Time) error {
	filter := bson.M{"_id": id, "coachId": coachID, "viewedByCoach": false}
	update := bson.M{"$set": bson.M{"viewedByCoach": true, "viewedAt": at}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return r.ensureOwned(ctx, id, coachID)
	}
	return nil
}

func (r *mongoWeeklySummaryRepository) SetFeedback(ctx context.Context, id, coachID primitive.ObjectID, feedback string, at time.Time) error {
	return r.setOwned(ctx, id, coachID, bson.M{"coachFeedback": feedback, "coachFeedbackSentAt": at})
}

func (r *mongoWeeklySummaryRepository) SetPrivateNotes(ctx context.Context, id, coachID primitive.ObjectID, notes *string) error {
	if notes == nil {
		return r.updateOwned(ctx, id, coachID, bson.M{"$unset": bson.M{"coachPrivateNotes": ""}})
	}
	return r.setOwned(ctx, id, coachID, bson.M{"coachPrivateNotes": *notes})
}

func (r *mongoWeeklySummaryRepository) SetPublicObservation(ctx context.Context, id, coachID primitive.ObjectID, text string, at time.Time) error {
	return r.setOwned(ctx, id, coachID, bson.M{"coachPublicObservation": text, "coachPublicObservationSentAt": at})
}

func (r *mongoWeeklySummaryRepository) setOwned(ctx context.Context, id, coachID primitive.ObjectID, fields bson.M) error {
	return r.updateOwned(ctx, id, coachID, bson.M{"$set": fields})
}

func (r *mongoWeeklySummaryRepository) updateOwned(ctx context.Context, id, coachID primitive.ObjectID, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "coachId": coachID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoWeeklySummaryRepository) ensureOwned(ctx context.Context, id, coachID primitive.ObjectID) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id, "coachId": coachID})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureWeeklySummaryIndexes creates necessary indexes for the weekly_summaries collection.
func EnsureWeeklySummaryIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Coach queue: filter by coach, sorted pending-first FIFO
			Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "taskCompleted", Value: 1}, {Key: "submissionOrder", Value: 1}},
			Options: options.Index(),
		},
		{
			// Gate lookup: latest summary per student
			Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Submission order is never reused within a coach's queue
			Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "submissionOrder", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "nextAllowedDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
