// Package mongo provides the MongoDB connectivity probe.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	// MarkerCollection holds the throwaway marker documents.
	MarkerCollection = "dbprobe_markers"
	cleanupTimeout   = 5 * time.Second
	unknownVersion   = "unknown"
)

// Service defines the interface for the MongoDB probe.
type Service interface {
	Probe(ctx context.Context, cfg models.MongoConfig) *models.ProbeResult
}

// Client wraps *mongo.Client for mocking.
type Client interface {
	Ping(ctx context.Context) error
	ServerVersion(ctx context.Context) (string, error)
	Collection(database, name string) Collection
	Disconnect(ctx context.Context) error
}

// Collection wraps *mongo.Collection for mocking.
type Collection interface {
	InsertOne(ctx context.Context, doc any) error
	FindOne(ctx context.Context, filter any, out any) error
	DeleteOne(ctx context.Context, filter any) (int64, error)
}

// ClientFactory creates MongoDB clients.
type ClientFactory interface {
	NewClient(cfg models.MongoConfig) (Client, error)
}

// DefaultClientFactory is the default MongoDB client factory.
type DefaultClientFactory struct{}

// NewClient creates a client for cfg. The driver connects lazily, so
// failures usually surface on the first Ping.
func (f *DefaultClientFactory) NewClient(cfg models.MongoConfig) (Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI()).
		SetServerSelectionTimeout(cfg.Timeout).
		SetConnectTimeout(cfg.Timeout).
		SetMaxPoolSize(1)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}
	return &defaultClient{client: client}, nil
}

type defaultClient struct {
	client *mongo.Client
}

func (c *defaultClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *defaultClient) ServerVersion(ctx context.Context) (string, error) {
	var info struct {
		Version string `bson:"version"`
	}
	cmd := bson.D{{Key: "buildInfo", Value: 1}}
	if err := c.client.Database("admin").RunCommand(ctx, cmd).Decode(&info); err != nil {
		return "", err
	}
	return info.Version, nil
}

func (c *defaultClient) Collection(database, name string) Collection {
	return &defaultCollection{coll: c.client.Database(database).Collection(name)}
}

func (c *defaultClient) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type defaultCollection struct {
	coll *mongo.Collection
}

func (c *defaultCollection) InsertOne(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return err
}

func (c *defaultCollection) FindOne(ctx context.Context, filter any, out any) error {
	return c.coll.FindOne(ctx, filter).Decode(out)
}

func (c *defaultCollection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Marker is the document written and removed by the probe.
type Marker struct {
	ID        string    `bson:"_id"`
	Probe     string    `bson:"probe"`
	Timestamp time.Time `bson:"timestamp"`
}

// Impl implements the MongoDB Service interface.
type Impl struct {
	clientFactory ClientFactory
	newID         func() string
	logger        zerolog.Logger
}

// New creates a new MongoDB probe.
func New(logger zerolog.Logger) *Impl {
	return NewWithClientFactory(logger, &DefaultClientFactory{})
}

// NewWithClientFactory creates a new MongoDB probe with a custom client factory (for testing).
func NewWithClientFactory(logger zerolog.Logger, factory ClientFactory) *Impl {
	return &Impl{
		clientFactory: factory,
		newID:         uuid.NewString,
		logger:        logger,
	}
}

// Probe connects, inserts, finds and deletes a marker document, and disconnects.
func (s *Impl) Probe(ctx context.Context, cfg models.MongoConfig) *models.ProbeResult {
	s.logger.Info().
		Str("addr", cfg.Addr()).
		Str("database", cfg.Database).
		Msg("testing MongoDB connection")

	start := time.Now()
	result := s.probe(ctx, cfg)
	result.Duration = time.Since(start)

	if result.Error != nil {
		s.logger.Error().Err(result.Error).Dur("duration", result.Duration).Msg("MongoDB: connection failed")
		return result
	}

	s.logger.Info().
		Str("version", result.Version).
		Dur("duration", result.Duration).
		Msg("MongoDB: connected successfully")

	return result
}

func (s *Impl) probe(ctx context.Context, cfg models.MongoConfig) *models.ProbeResult {
	client, err := s.clientFactory.NewClient(cfg)
	if err != nil {
		return models.NewFailedResult(models.BackendMongoDB, fmt.Errorf("creating client: %w", err))
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to disconnect MongoDB client")
		}
	}()

	opCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := client.Ping(opCtx); err != nil {
		return models.NewFailedResult(models.BackendMongoDB, fmt.Errorf("connecting: %w", err))
	}

	coll := client.Collection(cfg.Database, MarkerCollection)
	if err := s.roundTrip(opCtx, coll); err != nil {
		return models.NewFailedResult(models.BackendMongoDB, err)
	}

	version, err := client.ServerVersion(opCtx)
	if err != nil || version == "" {
		s.logger.Debug().Err(err).Msg("buildInfo not available")
		version = unknownVersion
	}

	return &models.ProbeResult{
		Backend: models.BackendMongoDB,
		Success: true,
		Version: version,
		Message: fmt.Sprintf("Version: %s, test document inserted and retrieved", version),
	}
}

// roundTrip inserts a marker document, reads it back and always deletes it.
func (s *Impl) roundTrip(ctx context.Context, coll Collection) (err error) {
	marker := Marker{
		ID:        s.newID(),
		Probe:     "dbprobe",
		Timestamp: time.Now().UTC(),
	}
	filter := bson.D{{Key: "_id", Value: marker.ID}}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()

		deleted, delErr := coll.DeleteOne(cleanupCtx, filter)
		switch {
		case delErr != nil:
			s.logger.Warn().Err(delErr).Str("id", marker.ID).Msg("failed to delete marker document")
			if err == nil {
				err = fmt.Errorf("deleting marker document: %w", delErr)
			}
		case deleted != 1 && err == nil:
			err = fmt.Errorf("deleting marker document: %d documents removed", deleted)
		}
	}()

	// A failed insert may still have been applied; the deferred delete covers it.
	if err := coll.InsertOne(ctx, marker); err != nil {
		return fmt.Errorf("inserting marker document: %w", err)
	}

	var found Marker
	if err := coll.FindOne(ctx, filter, &found); err != nil {
		return fmt.Errorf("reading marker document: %w", err)
	}
	if found.ID != marker.ID {
		return fmt.Errorf("marker document mismatch: got %q", found.ID)
	}

	s.logger.Debug().Str("id", marker.ID).Msg("marker document inserted and retrieved")
	return nil
}
