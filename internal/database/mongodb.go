package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names outside the identity collections.
const (
	AppointmentsCollection = "appointments"
	StockCollection        = "bloodstocks"
	RequestsCollection     = "recipientrequests"
	DeleteLogsCollection   = "deletelogs"
	RevocationsCollection  = "revokedtokens"
	JobRunsCollection      = "jobruns"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectWithRetry retries ConnectMongo with exponential backoff to ride out startup races.
func ConnectWithRetry(ctx context.Context, uri string, timeout time.Duration, attempts int) (*mongo.Client, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := ConnectMongo(ctx, uri, timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, attempts, err)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, lastErr
}

// EnsureIndexes creates the unique and lookup indexes the services rely on.
// Email uniqueness is per identity collection, never across roles.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	specs := map[string][]mongo.IndexModel{
		models.RoleDonor.Collection():     {{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		models.RoleRecipient.Collection(): {{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		models.RoleAdmin.Collection():     {{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		models.RoleHospital.Collection(): {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "licenseNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "hospitalName", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		AppointmentsCollection: {
			{Keys: bson.D{{Key: "donorId", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "hospitalName", Value: 1}}},
		},
		StockCollection: {
			{Keys: bson.D{{Key: "hospitalId", Value: 1}, {Key: "bloodGroup", Value: 1}}},
			{Keys: bson.D{{Key: "expiryDate", Value: 1}, {Key: "status", Value: 1}}},
		},
		RequestsCollection: {
			{Keys: bson.D{{Key: "recipientId", Value: 1}}},
			{Keys: bson.D{{Key: "hospitalId", Value: 1}, {Key: "status", Value: 1}}},
		},
		DeleteLogsCollection: {
			{Keys: bson.D{{Key: "recovered", Value: 1}, {Key: "deletedAt", Value: -1}}},
		},
		JobRunsCollection: {{Keys: bson.D{{Key: "job", Value: 1}}, Options: options.Index().SetUnique(true)}},
		RevocationsCollection: {
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
	for col, idx := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}
