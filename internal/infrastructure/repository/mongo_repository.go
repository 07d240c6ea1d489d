package repository

import (
	"context"
	"fmt"
	"time"

	"pixelift/internal/domain"
	"pixelift/internal/infrastructure/repository/entity"
	"pixelift/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	shopsCollection     *mongo.Collection
	imageLogsCollection *mongo.Collection
}

// NewMongoRepository creates a new MongoDB repository
func NewMongoRepository(db *mongo.Database) ports.Repository {
	r := &MongoRepository{
		shopsCollection:     db.Collection("shops"),
		imageLogsCollection: db.Collection("image_logs"),
	}

	// Unique index on domain, shop lookups are always by domain
	domainIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "domain", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.shopsCollection.Indexes().CreateOne(context.Background(), domainIndex)

	shopIDIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "shopId", Value: 1}},
	}
	_, _ = r.imageLogsCollection.Indexes().CreateOne(context.Background(), shopIDIndex)

	return r
}

// CreateShop inserts a new shop
func (r *MongoRepository) CreateShop(ctx context.Context, shop *domain.Shop) error {
	doc := entity.ShopDocFromDomain(shop)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
		shop.CreatedAt = doc.CreatedAt
	}
	doc.UpdatedAt = time.Now()

	if _, err := r.shopsCollection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create shop: %w", err)
	}
	return nil
}

// GetShopByDomain retrieves a shop by its canonical domain
func (r *MongoRepository) GetShopByDomain(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	var doc entity.ShopDoc
	err := r.shopsCollection.FindOne(ctx, bson.M{"domain": shopDomain}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("shop %s: %w", shopDomain, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return doc.ToDomain(), nil
}

// GetShopByID retrieves a shop by id
func (r *MongoRepository) GetShopByID(ctx context.Context, id string) (*domain.Shop, error) {
	var doc entity.ShopDoc
	err := r.shopsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("shop %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return doc.ToDomain(), nil
}

// UpdateShopScanTime stamps the last scan time
func (r *MongoRepository) UpdateShopScanTime(ctx context.Context, id string, at time.Time) error {
	update := bson.M{"$set": bson.M{"lastScanAt": at, "updatedAt": time.Now()}}
	res, err := r.shopsCollection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update scan time: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("shop %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateShopToken stores the access token and scope after an OAuth callback
func (r *MongoRepository) UpdateShopToken(ctx context.Context, shopDomain string, accessToken string, scope string) error {
	update := bson.M{"$set": bson.M{
		"accessToken": accessToken,
		"scope":       scope,
		"updatedAt":   time.Now(),
	}}
	res, err := r.shopsCollection.UpdateOne(ctx, bson.M{"domain": shopDomain}, update)
	if err != nil {
		return fmt.Errorf("failed to update shop token: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("shop %s: %w", shopDomain, domain.ErrNotFound)
	}
	return nil
}

// UpdateShopProStatus flips the subscription flag
func (r *MongoRepository) UpdateShopProStatus(ctx context.Context, id string, isPro bool) error {
	update := bson.M{"$set": bson.M{"isPro": isPro, "updatedAt": time.Now()}}
	res, err := r.shopsCollection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update pro status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("shop %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CreateImageLog inserts a new image log row
func (r *MongoRepository) CreateImageLog(ctx context.Context, log *domain.ImageLog) error {
	doc := entity.ImageLogDocFromDomain(log)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
		log.CreatedAt = doc.CreatedAt
	}

	if _, err := r.imageLogsCollection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create image log: %w", err)
	}
	return nil
}

// GetImageLogByID retrieves one image log row
func (r *MongoRepository) GetImageLogByID(ctx context.Context, id string) (*domain.ImageLog, error) {
	var doc entity.ImageLogDoc
	err := r.imageLogsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image log: %w", err)
	}
	return doc.ToDomain(), nil
}

// GetImageLogsByShopID lists all image rows of one shop
func (r *MongoRepository) GetImageLogsByShopID(ctx context.Context, shopID string) ([]*domain.ImageLog, error) {
	cursor, err := r.imageLogsCollection.Find(ctx, bson.M{"shopId": shopID})
	if err != nil {
		return nil, fmt.Errorf("failed to list image logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []*domain.ImageLog
	for cursor.Next(ctx) {
		var doc entity.ImageLogDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode image log: %w", err)
		}
		logs = append(logs, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return logs, nil
}

// UpdateImageLogStatus applies a status transition, keeping the
// optimizedSize/optimizedAt pair in lockstep with the optimized status.
func (r *MongoRepository) UpdateImageLogStatus(ctx context.Context, id string, status domain.ImageStatus, optimizedSize *int64) (*domain.ImageLog, error) {
	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("status %q: %w", status, domain.ErrInvalidInput)
	}

	var update bson.M
	if status == domain.StatusOptimized {
		update = bson.M{"$set": bson.M{
			"status":        string(status),
			"optimizedSize": optimizedSize,
			"optimizedAt":   time.Now(),
		}}
	} else {
		update = bson.M{
			"$set":   bson.M{"status": string(status)},
			"$unset": bson.M{"optimizedSize": "", "optimizedAt": ""},
		}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc entity.ImageLogDoc
	err := r.imageLogsCollection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update image log status: %w", err)
	}
	return doc.ToDomain(), nil
}

// SetImageLogSynced flips the sync flag
func (r *MongoRepository) SetImageLogSynced(ctx context.Context, id string, synced bool) error {
	res, err := r.imageLogsCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"synced": synced}})
	if err != nil {
		return fmt.Errorf("failed to set synced flag: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteImageLogsByShopID removes all image rows of a shop, used as the
// preface to bulk-recreating them during a scan.
func (r *MongoRepository) DeleteImageLogsByShopID(ctx context.Context, shopID string) error {
	if _, err := r.imageLogsCollection.DeleteMany(ctx, bson.M{"shopId": shopID}); err != nil {
		return fmt.Errorf("failed to delete image logs: %w", err)
	}
	return nil
}
