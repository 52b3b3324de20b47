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

// MongoDomainRepository implements DomainRepository using MongoDB
type MongoDomainRepository struct {
	collection *mongo.Collection
}

// NewMongoDomainRepository creates a new MongoDB domain repository
func NewMongoDomainRepository(db *mongo.Database) ports.DomainRepository {
	return &MongoDomainRepository{
		collection: db.Collection("domains"),
	}
}

// Save saves or updates a domain record
func (r *MongoDomainRepository) Save(ctx context.Context, accountID string, d *domain.Domain) error {
	doc := entity.MongoDomainDocFromDomain(accountID, d)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"accountId": accountID, "domainId": d.ID}
	update := bson.M{"$set": doc}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save domain: %w", err)
	}

	return nil
}

// GetByURL retrieves a domain record by its normalized URL
func (r *MongoDomainRepository) GetByURL(ctx context.Context, accountID, domainURL string) (*domain.Domain, error) {
	var doc entity.MongoDomainDoc
	filter := bson.M{"accountId": accountID, "domainUrl": domain.NormalizeDomainURL(domainURL)}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}

	return doc.ToDomain(), nil
}

// List lists every domain record for an account
func (r *MongoDomainRepository) List(ctx context.Context, accountID string) ([]*domain.Domain, error) {
	filter := bson.M{"accountId": accountID}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer cursor.Close(ctx)

	var domains []*domain.Domain
	for cursor.Next(ctx) {
		var doc entity.MongoDomainDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode domain: %w", err)
		}
		domains = append(domains, doc.ToDomain())
	}

	return domains, nil
}

// Delete removes a domain record
func (r *MongoDomainRepository) Delete(ctx context.Context, accountID string, id int64) error {
	filter := bson.M{"accountId": accountID, "domainId": id}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete domain: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("domain not found")
	}
	return nil
}
