package mongo

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"})
}

func TestSequence_Next(t *testing.T) {
	mt := newMock(t)
	mt.Run("returns incremented value", func(mt *mtest.T) {
		repo := &mongoSequenceRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: "submissionOrder:x"}, {Key: "seq", Value: int64(4)}}},
		))
		n, err := repo.Next(context.Background(), "submissionOrder:x")
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), n)
	})
}

func TestSubmissionSlot_Claim(t *testing.T) {
	mt := newMock(t)
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	next := today.AddDate(0, 0, 7)

	mt.Run("free slot", func(mt *mtest.T) {
		repo := &mongoSubmissionSlotRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		assert.NoError(mt, repo.Claim(context.Background(), primitive.NewObjectID(), today, next))
	})

	mt.Run("slot held until a later date", func(mt *mtest.T) {
		repo := &mongoSubmissionSlotRepository{collection: mt.Coll}
		mt.AddMockResponses(duplicateKey())
		err := repo.Claim(context.Background(), primitive.NewObjectID(), today, next)
		assert.ErrorIs(mt, err, repository.ErrSlotTaken)
	})
}

func TestNotification_Record(t *testing.T) {
	mt := newMock(t)

	mt.Run("concurrent producer loses quietly", func(mt *mtest.T) {
		repo := &mongoNotificationRepository{collection: mt.Coll}
		mt.AddMockResponses(duplicateKey())
		err := repo.Record(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), domain.CategoryPhoto, time.Now())
		assert.NoError(mt, err)
	})

	mt.Run("counts grouped rows", func(mt *mtest.T) {
		repo := &mongoNotificationRepository{collection: mt.Coll}
		coach, student := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "fitcoach.notifications", mtest.FirstBatch,
			bson.D{{Key: "studentId", Value: student}, {Key: "category", Value: "photo"}, {Key: "n", Value: 2}},
			bson.D{{Key: "studentId", Value: student}, {Key: "category", Value: "diet"}, {Key: "n", Value: 1}},
		))
		counts, err := repo.CountUnviewed(context.Background(), coach, student)
		require.NoError(mt, err)
		assert.Equal(mt, 2, counts.Of(domain.CategoryPhoto))
		assert.Equal(mt, 1, counts.Of(domain.CategoryDiet))
		assert.Equal(mt, 0, counts.Of(domain.CategoryMessage))
	})
}

func TestWeeklySummary_MarkComplete(t *testing.T) {
	mt := newMock(t)
	at := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	mt.Run("first completion", func(mt *mtest.T) {
		repo := &mongoWeeklySummaryRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		changed, err := repo.MarkComplete(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), at)
		require.NoError(mt, err)
		assert.True(mt, changed)
	})

	mt.Run("already completed is a no-op", func(mt *mtest.T) {
		repo := &mongoWeeklySummaryRepository{collection: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "fitcoach.weekly_summaries", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)
		changed, err := repo.MarkComplete(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), at)
		require.NoError(mt, err)
		assert.False(mt, changed)
	})

	mt.Run("other coach's summary", func(mt *mtest.T) {
		repo := &mongoWeeklySummaryRepository{collection: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "fitcoach.weekly_summaries", mtest.FirstBatch),
		)
		_, err := repo.MarkComplete(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), at)
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})
}

func TestWeeklySummary_ListSkipsMalformedRows(t *testing.T) {
	mt := newMock(t)
	mt.Run("drops contradicting diet branch", func(mt *mtest.T) {
		repo := &mongoWeeklySummaryRepository{collection: mt.Coll}
		coach := primitive.NewObjectID()
		good := bson.D{
			{Key: "_id", Value: primitive.NewObjectID()}, {Key: "coachId", Value: coach},
			{Key: "followedDiet", Value: true}, {Key: "submissionOrder", Value: int64(1)},
		}
		bad := bson.D{
			{Key: "_id", Value: primitive.NewObjectID()}, {Key: "coachId", Value: coach},
			{Key: "followedDiet", Value: true}, {Key: "daysNotFollowed", Value: "mon"},
			{Key: "submissionOrder", Value: int64(2)},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "fitcoach.weekly_summaries", mtest.FirstBatch, good, bad))

		rows, err := repo.ListByCoach(context.Background(), coach, nil)
		require.NoError(mt, err)
		require.Len(mt, rows, 1)
		assert.Equal(mt, int64(1), rows[0].SubmissionOrder)
	})
}

func TestWeeklySummary_CreateRejectsMalformed(t *testing.T) {
	mt := newMock(t)
	mt.Run("no write for contradicting row", func(mt *mtest.T) {
		repo := &mongoWeeklySummaryRepository{collection: mt.Coll}
		days := 2
		s := &domain.WeeklySummary{
			StudentID:  primitive.NewObjectID(),
			CoachID:    primitive.NewObjectID(),
			DaysMissed: &days,
		}
		_, err := repo.Create(context.Background(), s)
		assert.ErrorIs(mt, err, domain.ErrMalformedSummary)
	})
}

func TestWeeklySummary_SetPrivateNotes(t *testing.T) {
	mt := newMock(t)

	mt.Run("nil notes unset the field", func(mt *mtest.T) {
		repo := &mongoWeeklySummaryRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		require.NoError(mt, repo.SetPrivateNotes(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), nil))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		_, err := evt.Command.LookupErr("updates", "0", "u", "$unset", "coachPrivateNotes")
		assert.NoError(mt, err)
		_, err = evt.Command.LookupErr("updates", "0", "u", "$set")
		assert.Error(mt, err)
	})

	mt.Run("notes are set", func(mt *mtest.T) {
		repo := &mongoWeeklySummaryRepository{collection: mt.Coll}
		notes := "watch knee"
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		require.NoError(mt, repo.SetPrivateNotes(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), &notes))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		got := evt.Command.Lookup("updates", "0", "u", "$set", "coachPrivateNotes").StringValue()
		assert.Equal(mt, notes, got)
	})

	mt.Run("other coach's summary", func(mt *mtest.T) {
		repo := &mongoWeeklySummaryRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		err := repo.SetPrivateNotes(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), nil)
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})
}
