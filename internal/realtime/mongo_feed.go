package realtime

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collectionTopics maps watched collections to the topic they invalidate.
var collectionTopics = map[string]Topic{
	"notifications":    TopicNotifications,
	"weekly_summaries": TopicSummaries,
	"messages":         TopicMessages,
}

// MongoFeed watches the database change stream. It needs a replica set.
type MongoFeed struct {
	db  *mongo.Database
	log *slog.Logger
}

func NewMongoFeed(db *mongo.Database, log *slog.Logger) *MongoFeed {
	return &MongoFeed{db: db, log: log}
}

func (f *MongoFeed) Subscribe(ctx context.Context, coachID, studentID primitive.ObjectID) (<-chan Event, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := f.db.Watch(ctx, Pipeline(coachID, studentID), opts)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 8)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			var change struct {
				NS struct {
					Coll string `bson:"coll"`
				} `bson:"ns"`
			}
			if err := stream.Decode(&change); err != nil {
				f.log.Warn("change_stream_decode_failed", "error", err)
				continue
			}
			topic, ok := collectionTopics[change.NS.Coll]
			if !ok {
				continue
			}
			select {
			case out <- Event{Topic: topic, At: time.Now().UTC()}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			f.log.Warn("change_stream_closed", "coach_id", coachID.Hex(), "student_id", studentID.Hex(), "error", err)
		}
	}()
	return out, nil
}

// Pipeline filters inserts and updates on the watched collections down to
// one coach/student pair.
func Pipeline(coachID, studentID primitive.ObjectID) mongo.Pipeline {
	colls := make([]string, 0, len(collectionTopics))
	for c := range collectionTopics {
		colls = append(colls, c)
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType":          bson.M{"$in": bson.A{"insert", "update", "replace"}},
			"ns.coll":                bson.M{"$in": colls},
			"fullDocument.coachId":   coachID,
			"fullDocument.studentId": studentID,
		}}},
		{{Key: "$project", Value: bson.M{"ns": 1, "operationType": 1}}},
	}
}
