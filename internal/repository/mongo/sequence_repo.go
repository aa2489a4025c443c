package mongo

import (
	"alcyxob/fitcoach/internal/repository"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sequenceCollectionName = "sequences"

// mongoSequenceRepository hands out counters with an atomic $inc upsert, so
// two concurrent callers never receive the same value.
type mongoSequenceRepository struct {
	collection *mongo.Collection
}

func NewMongoSequenceRepository(db *mongo.Database) repository.SequenceRepository {
	return &mongoSequenceRepository{collection: db.Collection(sequenceCollectionName)}
}

// Next increments and returns the counter stored under key, starting at 1.
func (r *mongoSequenceRepository) Next(ctx context.Context, key string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}
