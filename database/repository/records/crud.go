package recordsRepo

import (
	"context"
	"errors"
	"time"

	"dhub/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new booking record and returns its ID.
func (r *mongoRecordRepo) Create(ctx context.Context, record models.BookingRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()

	_, err := r.coll.InsertOne(ctx, record)
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// GetByOrderID returns a booking record by its order ID.
func (r *mongoRecordRepo) GetByOrderID(ctx context.Context, orderID string) (*models.BookingRecord, error) {
	var record models.BookingRecord
	err := r.coll.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecent fetches the most recent booking records for a vertical.
func (r *mongoRecordRepo) ListRecent(ctx context.Context, verticalID string, limit int64) ([]models.BookingRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	filter := bson.M{}
	if verticalID != "" {
		filter["verticalId"] = verticalID
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.BookingRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateStatus sets the status of a booking record by order ID.
func (r *mongoRecordRepo) UpdateStatus(ctx context.Context, orderID, status string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"orderId": orderID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("booking record not found")
	}
	return nil
}
