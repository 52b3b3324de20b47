package entity

import (
	"time"

	"adscope-integrations-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoCredentialDoc represents an integration credential in MongoDB
type MongoCredentialDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	AccountID       string             `bson:"accountId"`
	ServiceName     string             `bson:"serviceName"`
	Status          string             `bson:"status"`
	EncryptedSecret string             `bson:"encryptedSecret,omitempty"`
	FailureReason   string             `bson:"failureReason,omitempty"`
	PixelInstall    bool               `bson:"pixelInstall"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoCredentialDoc) ToDomain() *domain.IntegrationCredential {
	return &domain.IntegrationCredential{
		ID:              d.ID.Hex(),
		AccountID:       d.AccountID,
		ServiceName:     d.ServiceName,
		Status:          domain.ConnectionStatus(d.Status),
		EncryptedSecret: d.EncryptedSecret,
		FailureReason:   d.FailureReason,
		PixelInstall:    d.PixelInstall,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// MongoCredentialDocFromDomain converts a domain entity to a MongoDB document
func MongoCredentialDocFromDomain(credential *domain.IntegrationCredential) *MongoCredentialDoc {
	doc := &MongoCredentialDoc{
		AccountID:       credential.AccountID,
		ServiceName:     credential.ServiceName,
		Status:          string(credential.Status),
		EncryptedSecret: credential.EncryptedSecret,
		FailureReason:   credential.FailureReason,
		PixelInstall:    credential.PixelInstall,
		CreatedAt:       credential.CreatedAt,
		UpdatedAt:       credential.UpdatedAt,
	}

	if credential.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(credential.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}

// MongoDomainDoc represents a tracked domain record in MongoDB
type MongoDomainDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	AccountID        string             `bson:"accountId"`
	DomainID         int64              `bson:"domainId"`
	DomainURL        string             `bson:"domainUrl"`
	DataProviderID   int64              `bson:"dataProviderId"`
	IsPixelInstalled bool               `bson:"isPixelInstalled"`
	Enabled          bool               `bson:"enabled"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoDomainDoc) ToDomain() *domain.Domain {
	return &domain.Domain{
		ID:               d.DomainID,
		DomainURL:        d.DomainURL,
		DataProviderID:   d.DataProviderID,
		IsPixelInstalled: d.IsPixelInstalled,
		Enabled:          d.Enabled,
	}
}

// MongoDomainDocFromDomain converts a domain entity to a MongoDB document
func MongoDomainDocFromDomain(accountID string, dom *domain.Domain) *MongoDomainDoc {
	return &MongoDomainDoc{
		AccountID:        accountID,
		DomainID:         dom.ID,
		DomainURL:        dom.DomainURL,
		DataProviderID:   dom.DataProviderID,
		IsPixelInstalled: dom.IsPixelInstalled,
		Enabled:          dom.Enabled,
	}
}
