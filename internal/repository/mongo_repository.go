package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	apperrors "go-imaging-report/internal/errors"
	"go-imaging-report/internal/logger"
	"go-imaging-report/internal/report"
)

// mongoReportRepository implements ReportRepository backed by MongoDB.
type mongoReportRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoReportRepository connects to MongoDB and verifies the
// connection with a short ping.
func NewMongoReportRepository(uri, database, collection string) (ReportRepository, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to connect to MongoDB", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperrors.NewInternalError("MongoDB unreachable", err)
	}

	return &mongoReportRepository{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (r *mongoReportRepository) StoreReport(ctx context.Context, doc *report.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return apperrors.NewInternalError("failed to store report", err)
	}
	logger.WithStage("repository").WithFields(map[string]interface{}{
		"report_id": doc.ID,
		"filename":  doc.Filename,
	}).Info("report stored")
	return nil
}

func (r *mongoReportRepository) GetReport(ctx context.Context, filename string) (*report.Document, error) {
	var doc report.Document
	err := r.collection.FindOne(ctx,
		bson.M{"filename": filename},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NewNotFoundError("report not found", err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load report", err)
	}
	return &doc, nil
}

func (r *mongoReportRepository) ListReports(ctx context.Context) ([]*report.Document, error) {
	cursor, err := r.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list reports", err)
	}
	defer cursor.Close(ctx)

	var docs []*report.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperrors.NewInternalError("failed to decode reports", err)
	}
	return docs, nil
}

func (r *mongoReportRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
