package repository

import (
	"context"
	"fmt"
	"time"

	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/infrastructure/repository/entity"
	"adscope-integrations-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCredentialRepository implements CredentialRepository using MongoDB
type MongoCredentialRepository struct {
	collection *mongo.Collection
}

// NewMongoCredentialRepository creates a new MongoDB credential repository
func NewMongoCredentialRepository(db *mongo.Database) ports.CredentialRepository {
	return &MongoCredentialRepository{
		collection: db.Collection("integration_credentials"),
	}
}

// Upsert creates or replaces the credential record for (account, service)
func (r *MongoCredentialRepository) Upsert(ctx context.Context, credential *domain.IntegrationCredential) error {
	doc := entity.MongoCredentialDocFromDomain(credential)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	// Unique index on (accountId, serviceName) enforces the
	// one-record-per-service invariant
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "accountId", Value: 1}, {Key: "serviceName", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	filter := bson.M{"accountId": credential.AccountID, "serviceName": credential.ServiceName}
	update := bson.M{
		"$set": bson.M{
			"status":          doc.Status,
			"encryptedSecret": doc.EncryptedSecret,
			"failureReason":   doc.FailureReason,
			"pixelInstall":    doc.PixelInstall,
			"updatedAt":       doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"accountId":   doc.AccountID,
			"serviceName": doc.ServiceName,
			"createdAt":   doc.CreatedAt,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}

	return nil
}

// GetByService retrieves the credential record for a service
func (r *MongoCredentialRepository) GetByService(ctx context.Context, accountID, serviceName string) (*domain.IntegrationCredential, error) {
	var doc entity.MongoCredentialDoc
	filter := bson.M{"accountId": accountID, "serviceName": serviceName}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListByAccount lists every credential record for an account
func (r *MongoCredentialRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.IntegrationCredential, error) {
	filter := bson.M{"accountId": accountID}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer cursor.Close(ctx)

	var credentials []*domain.IntegrationCredential
	for cursor.Next(ctx) {
		var doc entity.MongoCredentialDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode credential: %w", err)
		}
		credentials = append(credentials, doc.ToDomain())
	}

	return credentials, nil
}

// Delete removes the credential record
func (r *MongoCredentialRepository) Delete(ctx context.Context, accountID, serviceName string) error {
	filter := bson.M{"accountId": accountID, "serviceName": serviceName}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("credential not found")
	}
	return nil
}
