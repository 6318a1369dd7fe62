package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/repository"
)

const (
	transactionsCollection = "transactions"
	buyersCollection       = "buyers"
	fieldsCollection       = "fields"
	reportsCollection      = "daily_reports"
)

// MongoDBRepository implements the repository contracts on MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ repository.Store = (*MongoDBRepository)(nil)

// NewMongoDBRepository connects, pings and ensures indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{client: client, db: client.Database(dbName), logger: logger}
	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return r, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		transactionsCollection: {
			{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "transactionDate", Value: -1}}},
			{Keys: bson.D{{Key: "buyerId", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		buyersCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "interestedCrops", Value: 1}}},
		},
		fieldsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
	}

	for coll, idx := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	r.logger.Debug("mongodb indexes ensured")
	return nil
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// Insert stores a transaction.
func (r *MongoDBRepository) Insert(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == "" {
		tx.ID = newID()
	}
	tx.ComputeTotal()

	if _, err := r.db.Collection(transactionsCollection).InsertOne(ctx, tx); err != nil {
		return models.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return tx, nil
}

func (r *MongoDBRepository) FindByID(ctx context.Context, id string) (models.Transaction, error) {
	var tx models.Transaction
	err := r.db.Collection(transactionsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&tx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Transaction{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to find transaction %s: %w", id, err)
	}
	return tx, nil
}

// List returns matching transactions ordered by transactionDate, newest first.
func (r *MongoDBRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "transactionDate", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.db.Collection(transactionsCollection).Find(ctx, transactionQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	out := make([]models.Transaction, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return out, nil
}

func transactionQuery(f models.TransactionFilter) bson.M {
	q := bson.M{}
	if f.FarmerID != "" {
		q["farmerId"] = f.FarmerID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.BuyerID != "" {
		q["buyerId"] = f.BuyerID
	}
	if f.FieldID != "" {
		q["fieldId"] = f.FieldID
	}
	created := bson.M{}
	if !f.CreatedFrom.IsZero() {
		created["$gte"] = f.CreatedFrom
	}
	if !f.CreatedTo.IsZero() {
		created["$lt"] = f.CreatedTo
	}
	if len(created) > 0 {
		q["createdAt"] = created
	}
	updated := bson.M{}
	if !f.UpdatedFrom.IsZero() {
		updated["$gte"] = f.UpdatedFrom
	}
	if !f.UpdatedTo.IsZero() {
		updated["$lt"] = f.UpdatedTo
	}
	if len(updated) > 0 {
		q["updatedAt"] = updated
	}
	return q
}

// UpdateIfStatus sets the patched fields in one conditional update.
func (r *MongoDBRepository) UpdateIfStatus(ctx context.Context, id string, expected models.TransactionStatus, patch models.TransactionPatch) (models.Transaction, error) {
	coll := r.db.Collection(transactionsCollection)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var tx models.Transaction
	err := coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": expected},
		bson.M{"$set": patchDocument(patch)},
		opts,
	).Decode(&tx)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Transaction{}, fmt.Errorf("failed to update transaction %s: %w", id, err)
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to check transaction %s: %w", id, err)
	}
	if n == 0 {
		return models.Transaction{}, repository.ErrNotFound
	}
	return models.Transaction{}, repository.ErrStatusConflict
}

func patchDocument(p models.TransactionPatch) bson.M {
	set := bson.M{"updatedAt": p.UpdatedAt}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.PaymentStatus != nil {
		set["paymentStatus"] = *p.PaymentStatus
	}
	if p.PaymentMethod != nil {
		set["paymentMethod"] = *p.PaymentMethod
	}
	if p.Notes != nil {
		set["notes"] = *p.Notes
	}
	if p.DeliveryDate != nil {
		set["deliveryDate"] = *p.DeliveryDate
	}
	if p.QualityRating != nil {
		set["qualityRating"] = *p.QualityRating
	}
	return set
}

func (r *MongoDBRepository) InsertBuyer(ctx context.Context, buyer models.Buyer) (models.Buyer, error) {
	if buyer.ID == "" {
		buyer.ID = newID()
	}
	if _, err := r.db.Collection(buyersCollection).InsertOne(ctx, buyer); err != nil {
		return models.Buyer{}, fmt.Errorf("failed to insert buyer: %w", err)
	}
	return buyer, nil
}

func (r *MongoDBRepository) FindBuyerByID(ctx context.Context, id string) (models.Buyer, error) {
	var buyer models.Buyer
	err := r.db.Collection(buyersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&buyer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Buyer{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Buyer{}, fmt.Errorf("failed to find buyer %s: %w", id, err)
	}
	return buyer, nil
}

func (r *MongoDBRepository) ListActiveBuyers(ctx context.Context, crop string) ([]models.Buyer, error) {
	q := bson.M{"status": models.BuyerActive}
	if crop != "" {
		q["interestedCrops"] = crop
	}
	return r.findBuyers(ctx, q)
}

func (r *MongoDBRepository) ListBuyersWithoutCoordinates(ctx context.Context) ([]models.Buyer, error) {
	return r.findBuyers(ctx, bson.M{"coordinates": nil})
}

func (r *MongoDBRepository) findBuyers(ctx context.Context, q bson.M) ([]models.Buyer, error) {
	cur, err := r.db.Collection(buyersCollection).Find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list buyers: %w", err)
	}

	out := make([]models.Buyer, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode buyers: %w", err)
	}
	return out, nil
}

func (r *MongoDBRepository) SetBuyerCoordinates(ctx context.Context, id string, coords models.Coordinates) error {
	res, err := r.db.Collection(buyersCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"coordinates": coords}},
	)
	if err != nil {
		return fmt.Errorf("failed to set coordinates for buyer %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MongoDBRepository) CountBuyers(ctx context.Context) (int64, error) {
	n, err := r.db.Collection(buyersCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count buyers: %w", err)
	}
	return n, nil
}

func (r *MongoDBRepository) InsertField(ctx context.Context, field models.Field) (models.Field, error) {
	if field.ID == "" {
		field.ID = newID()
	}
	if _, err := r.db.Collection(fieldsCollection).InsertOne(ctx, field); err != nil {
		return models.Field{}, fmt.Errorf("failed to insert field: %w", err)
	}
	return field, nil
}

func (r *MongoDBRepository) FindFieldByID(ctx context.Context, id string) (models.Field, error) {
	var field models.Field
	err := r.db.Collection(fieldsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&field)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Field{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Field{}, fmt.Errorf("failed to find field %s: %w", id, err)
	}
	return field, nil
}

func (r *MongoDBRepository) ListFieldsByUser(ctx context.Context, userID string) ([]models.Field, error) {
	cur, err := r.db.Collection(fieldsCollection).Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}

	out := make([]models.Field, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return out, nil
}

// SaveDailyReport upserts the report of one day.
func (r *MongoDBRepository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	_, err := r.db.Collection(reportsCollection).ReplaceOne(ctx,
		bson.M{"date": report.Date},
		report,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save daily report: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
