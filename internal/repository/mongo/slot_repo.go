package mongo

import (
	"alcyxob/fitcoach/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const submissionSlotCollectionName = "submission_slots"

// mongoSubmissionSlotRepository keeps one document per student holding the
// date the next weekly summary may be sent. The document _id is the student
// id, so a conditional upsert either wins the slot or hits a duplicate key.
type mongoSubmissionSlotRepository struct {
	collection *mongo.Collection
}

func NewMongoSubmissionSlotRepository(db *mongo.Database) repository.SubmissionSlotRepository {
	return &mongoSubmissionSlotRepository{collection: db.Collection(submissionSlotCollectionName)}
}

func (r *mongoSubmissionSlotRepository) Claim(ctx context.Context, studentID primitive.ObjectID, today, next time.Time) error {
	filter := bson.M{"_id": studentID, "nextAllowedDate": bson.M{"$lte": today}}
	update := bson.M{"$set": bson.M{"nextAllowedDate": next, "updatedAt": time.Now().UTC()}}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrSlotTaken
		}
		return err
	}
	return nil
}

func (r *mongoSubmissionSlotRepository) Release(ctx context.Context, studentID primitive.ObjectID, claimed, reopenOn time.Time) error {
	filter := bson.M{"_id": studentID, "nextAllowedDate": claimed}
	update := bson.M{"$set": bson.M{"nextAllowedDate": reopenOn, "updatedAt": time.Now().UTC()}}
	_, err := r.collection.UpdateOne(ctx, filter, update)
	return err
}
