package mongo

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planCollectionName = "plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new Plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new plan. New plans start inactive.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.StudentID == primitive.NilObjectID || plan.CoachID == primitive.NilObjectID || plan.Title == "" {
		return primitive.NilObjectID, errors.New("plan requires studentId, coachId, and title")
	}
	if !plan.Kind.Valid() {
		return primitive.NilObjectID, domain.ErrInvalidPlanKind
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single plan by its ID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ListByStudent retrieves the student's plans, newest first. An empty kind
// lists every kind.
func (r *mongoPlanRepository) ListByStudent(ctx context.Context, studentID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error) {
	filter := bson.M{"studentId": studentID}
	if kind != "" {
		filter["kind"] = kind
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// ListActive retrieves active plans of a kind, most recently activated first.
// More than one result means an activation was interrupted.
func (r *mongoPlanRepository) ListActive(ctx context.Context, studentID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error) {
	filter := bson.M{"studentId": studentID, "kind": kind, "isActive": true}
	sort := bson.D{{Key: "activatedAt", Value: -1}, {Key: "updatedAt", Value: -1}}
	return r.find(ctx, filter, options.Find().SetSort(sort))
}

func (r *mongoPlanRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Plan, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.Plan{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// DeactivateOthers clears isActive on the student's other plans of the kind.
func (r *mongoPlanRepository) DeactivateOthers(ctx context.Context, studentID primitive.ObjectID, kind domain.PlanKind, keepID primitive.ObjectID) error {
	filter := bson.M{
		"studentId": studentID,
		"kind":      kind,
		"isActive":  true,
		"_id":       bson.M{"$ne": keepID},
	}
	update := bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}}
	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

// Activate marks one plan active.
func (r *mongoPlanRepository) Activate(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{"$set": bson.M{"isActive": true, "activatedAt": at, "updatedAt": at}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "kind", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Active plan lookup
			Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "kind", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
