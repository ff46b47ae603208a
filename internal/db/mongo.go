package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/catalog"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB using the given URI.
func ConnectMongo(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoVehicleCollection wraps a MongoDB collection for vehicle records.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// InsertVehicle inserts a vehicle and fills in its generated ID.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if vehicle.CreatedAt.IsZero() {
		vehicle.CreatedAt = time.Now()
	}
	res, err := c.Collection.InsertOne(ctx, vehicle)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		vehicle.ID = oid
	}
	return nil
}

// FindVehicleByID finds a vehicle by its ID.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var vehicle models.Vehicle
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&vehicle)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &vehicle, nil
}

// FindVehicles returns all registered vehicles.
func (c *MongoVehicleCollection) FindVehicles(ctx context.Context) ([]models.Vehicle, error) {
	cursor, err := c.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var vehicles []models.Vehicle
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// ListVehicleIDs returns the IDs of all registered vehicles. Used by the
// periodic recompute sweep.
func (c *MongoVehicleCollection) ListVehicleIDs(ctx context.Context) ([]string, error) {
	cursor, err := c.Collection.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.Hex())
	}
	return ids, nil
}

// MongoStateCollection wraps a MongoDB collection for maintenance state.
type MongoStateCollection struct {
	Collection *mongo.Collection
}

// FindStateByVehicle loads the maintenance state for a vehicle.
func (c *MongoStateCollection) FindStateByVehicle(ctx context.Context, vehicleID string) (*models.MaintenanceState, error) {
	var state models.MaintenanceState
	err := c.Collection.FindOne(ctx, bson.M{"vehicle_id": vehicleID}).Decode(&state)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &state, nil
}

// SaveState upserts the maintenance state for a vehicle.
func (c *MongoStateCollection) SaveState(ctx context.Context, state *models.MaintenanceState) error {
	state.UpdatedAt = time.Now()
	filter := bson.M{"vehicle_id": state.VehicleID}
	update := bson.M{"$set": bson.M{
		"vehicle_id":              state.VehicleID,
		"current_mileage_km":      state.CurrentMileageKm,
		"last_service_date":       state.LastServiceDate,
		"last_service_mileage_km": state.LastServiceMileageKm,
		"components":              state.Components,
		"updated_at":              state.UpdatedAt,
	}}
	_, err := c.Collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// MongoMaintenanceRecordCollection wraps a MongoDB collection for the
// append-only service history.
type MongoMaintenanceRecordCollection struct {
	Collection *mongo.Collection
}

// InsertRecord appends a maintenance record and fills in its generated ID.
func (c *MongoMaintenanceRecordCollection) InsertRecord(ctx context.Context, record *models.MaintenanceRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	res, err := c.Collection.InsertOne(ctx, record)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid
	}
	return nil
}

// FindRecordsByVehicle returns a vehicle's service history, newest first.
func (c *MongoMaintenanceRecordCollection) FindRecordsByVehicle(ctx context.Context, vehicleID string) ([]models.MaintenanceRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "service_date", Value: -1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"vehicle_id": vehicleID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var records []models.MaintenanceRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// MongoNotificationCollection wraps a MongoDB collection for maintenance
// notifications.
type MongoNotificationCollection struct {
	Collection *mongo.Collection
}

// InsertNotification inserts a notification and fills in its generated ID.
func (c *MongoNotificationCollection) InsertNotification(ctx context.Context, n *models.MaintenanceNotification) error {
	res, err := c.Collection.InsertOne(ctx, n)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid
	}
	return nil
}

// UpdateNotification replaces a notification by its ID.
func (c *MongoNotificationCollection) UpdateNotification(ctx context.Context, n *models.MaintenanceNotification) error {
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": n.ID}, bson.M{"$set": n})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindNotificationByID finds a notification by its ID.
func (c *MongoNotificationCollection) FindNotificationByID(ctx context.Context, id string) (*models.MaintenanceNotification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var n models.MaintenanceNotification
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&n)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// FindNotificationsByVehicle returns all notifications for a vehicle,
// newest first.
func (c *MongoNotificationCollection) FindNotificationsByVehicle(ctx context.Context, vehicleID string) ([]models.MaintenanceNotification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"vehicle_id": vehicleID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var notifications []models.MaintenanceNotification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// FindOpenNotification returns the unactioned notification for a
// (vehicle, component) pair.
func (c *MongoNotificationCollection) FindOpenNotification(ctx context.Context, vehicleID string, component catalog.Component) (*models.MaintenanceNotification, error) {
	filter := bson.M{"vehicle_id": vehicleID, "component": component, "action_taken": false}
	var n models.MaintenanceNotification
	err := c.Collection.FindOne(ctx, filter).Decode(&n)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// FindLatestActioned returns the most recently actioned notification for
// a (vehicle, component) pair.
func (c *MongoNotificationCollection) FindLatestActioned(ctx context.Context, vehicleID string, component catalog.Component) (*models.MaintenanceNotification, error) {
	filter := bson.M{"vehicle_id": vehicleID, "component": component, "action_taken": true}
	opts := options.FindOne().SetSort(bson.D{{Key: "action_taken_at", Value: -1}})
	var n models.MaintenanceNotification
	err := c.Collection.FindOne(ctx, filter, opts).Decode(&n)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}
