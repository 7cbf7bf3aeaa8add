package survey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type surveyDoc struct {
	ID                  bson.ObjectID `bson:"_id,omitempty"`
	Rating              int           `bson:"rating"`
	EaseOfUse           *int          `bson:"easeOfUse"`
	PositiveFeedback    string        `bson:"positiveFeedback"`
	ImprovementFeedback string        `bson:"improvementFeedback"`
	RecordingTimes      []int         `bson:"recordingTimes"`
	CreatedAt           time.Time     `bson:"createdAt"`
}

func (d surveyDoc) toSurvey() Survey {
	return Survey{
		ID:                  d.ID.Hex(),
		Rating:              d.Rating,
		EaseOfUse:           d.EaseOfUse,
		PositiveFeedback:    d.PositiveFeedback,
		ImprovementFeedback: d.ImprovementFeedback,
		RecordingTimes:      d.RecordingTimes,
		CreatedAt:           d.CreatedAt,
	}
}

type mongoRepo struct {
	coll *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) Repo {
	return &mongoRepo{coll: db.Collection("surveys")}
}

func (r *mongoRepo) Insert(ctx context.Context, s Survey) (string, error) {
	res, err := r.coll.InsertOne(ctx, surveyDoc{
		Rating:              s.Rating,
		EaseOfUse:           s.EaseOfUse,
		PositiveFeedback:    s.PositiveFeedback,
		ImprovementFeedback: s.ImprovementFeedback,
		RecordingTimes:      s.RecordingTimes,
		CreatedAt:           s.CreatedAt,
	})
	if err != nil {
		return "", err
	}

	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

func (r *mongoRepo) List(ctx context.Context, limit int64) ([]Survey, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []surveyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	surveys := make([]Survey, 0, len(docs))
	for _, d := range docs {
		surveys = append(surveys, d.toSurvey())
	}
	return surveys, nil
}

func (r *mongoRepo) Get(ctx context.Context, id string) (Survey, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return Survey{}, ErrNotFound
	}

	var doc surveyDoc
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Survey{}, ErrNotFound
	}
	if err != nil {
		return Survey{}, err
	}
	return doc.toSurvey(), nil
}

func (r *mongoRepo) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
