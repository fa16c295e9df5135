package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
)

const auditCollection = "payment_audit"

// AuditRepository persists insert-only audit documents: applied webhooks,
// amount mismatches awaiting manual review, and status anomalies.
type AuditRepository interface {
	Insert(ctx context.Context, record *models.AuditRecord) error
	FindByOrderReference(ctx context.Context, ref string) ([]models.AuditRecord, error)
}

type mongoAuditRepo struct {
	coll *mongo.Collection
}

func NewMongoAuditRepo(db *mongo.Database) AuditRepository {
	return &mongoAuditRepo{coll: db.Collection(auditCollection)}
}

func (r *mongoAuditRepo) Insert(ctx context.Context, record *models.AuditRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := r.coll.InsertOne(ctx, record)
	return err
}

func (r *mongoAuditRepo) FindByOrderReference(ctx context.Context, ref string) ([]models.AuditRecord, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"order_reference": ref},
		options.Find().SetSort(bson.M{"created_at": -1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.AuditRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
