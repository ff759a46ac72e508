package recordsRepo

import (
	"context"

	"dhub/database"
	"dhub/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// BookingRecordRepository persists the trail of confirmed bookings.
type BookingRecordRepository interface {
	Create(ctx context.Context, record models.BookingRecord) (string, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.BookingRecord, error)
	ListRecent(ctx context.Context, verticalID string, limit int64) ([]models.BookingRecord, error)
	UpdateStatus(ctx context.Context, orderID, status string) error
}

type mongoRecordRepo struct {
	coll *mongo.Collection
}

// NewMongoRecordRepo returns a new BookingRecordRepository instance using MongoDB.
func NewMongoRecordRepo() BookingRecordRepository {
	db := database.MongoClient.Database(database.DatabaseName)
	return &mongoRecordRepo{
		coll: db.Collection("booking_records"),
	}
}
