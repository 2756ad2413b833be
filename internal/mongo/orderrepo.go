package mongo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	aqm "github.com/appetiteclub/apt"
	aqmevents "github.com/appetiteclub/apt/events"
	"github.com/chopline/kds/internal/event"
	"github.com/chopline/kds/internal/kds"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderRepo is the backing order store. It owns the change feed for the rows
// it writes: every successful mutation is published as a row-level event so
// all attached displays converge on the same view.
type OrderRepo struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	counters   *mongo.Collection
	publisher  aqmevents.Publisher
	logger     aqm.Logger
	config     *aqm.Config
}

func NewOrderRepo(config *aqm.Config, publisher aqmevents.Publisher, logger aqm.Logger) *OrderRepo {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &OrderRepo{
		publisher: publisher,
		logger:    logger,
		config:    config,
	}
}

func (r *OrderRepo) Start(ctx context.Context) error {
	mongoURL, _ := r.config.GetString("db.mongo.url")
	if mongoURL == "" {
		mongoURL = "mongodb://localhost:27017"
	}

	dbName, _ := r.config.GetString("db.mongo.name")
	if dbName == "" {
		dbName = "chopline_kds"
	}

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.collection = r.db.Collection("orders")
	r.counters = r.db.Collection("counters")

	statusIndexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, statusIndexModel); err != nil {
		return fmt.Errorf("cannot create status index: %w", err)
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s, collection: orders", mongoURL, dbName)
	return nil
}

func (r *OrderRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

// nextID allocates a monotonically increasing order id from the counters
// collection, preserving the integer-id scheme of the original schema.
func (r *OrderRepo) nextID(ctx context.Context) (kds.OrderID, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "orders"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("cannot allocate order id: %w", err)
	}
	return doc.Seq, nil
}

func (r *OrderRepo) Create(ctx context.Context, o *kds.Order) error {
	if o.ID == 0 {
		id, err := r.nextID(ctx)
		if err != nil {
			return err
		}
		o.ID = id
	}
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt

	if _, err := r.collection.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("cannot insert order: %w", err)
	}

	r.publishChange(ctx, event.KindInsert, o, nil)
	return nil
}

func (r *OrderRepo) FindByID(ctx context.Context, id kds.OrderID) (*kds.Order, error) {
	var order kds.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("cannot find order: %w", err)
	}
	return &order, nil
}

func (r *OrderRepo) List(ctx context.Context, filter kds.OrderFilter) ([]kds.Order, error) {
	query := bson.M{}

	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}})

	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot find orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []kds.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	return orders, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id kds.OrderID, status string) error {
	var updated kds.Order
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return fmt.Errorf("order not found")
		}
		return fmt.Errorf("cannot update order status: %w", err)
	}

	r.publishChange(ctx, event.KindUpdate, &updated, nil)
	return nil
}

func (r *OrderRepo) Delete(ctx context.Context, id kds.OrderID) error {
	var removed kds.Order
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&removed)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return fmt.Errorf("order not found")
		}
		return fmt.Errorf("cannot delete order: %w", err)
	}

	r.publishChange(ctx, event.KindDelete, nil, &removed)
	return nil
}

func (r *OrderRepo) publishChange(ctx context.Context, kind string, newOrder, oldOrder *kds.Order) {
	if r.publisher == nil {
		return
	}

	evt := event.OrderChangeEvent{
		EventID:    uuid.NewString(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		New:        recordFromOrder(newOrder),
		Old:        recordFromOrder(oldOrder),
	}

	data, _ := json.Marshal(evt)
	if err := r.publisher.Publish(ctx, event.OrderChangesTopic, data); err != nil {
		r.logger.Errorf("failed to publish %s change event for order: %v", kind, err)
	}
}

func recordFromOrder(o *kds.Order) *event.OrderRecord {
	if o == nil {
		return nil
	}
	rec := &event.OrderRecord{
		ID:        o.ID,
		Name:      o.Name,
		TableNo:   o.TableNo,
		Price:     o.Price,
		Note:      o.Note,
		Status:    o.Status,
		Priority:  o.Priority,
		CreatedAt: o.CreatedAt,
	}
	if !o.UpdatedAt.IsZero() {
		t := o.UpdatedAt
		rec.UpdatedAt = &t
	}
	return rec
}
