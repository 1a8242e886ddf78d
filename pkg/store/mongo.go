package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgio "github.com/checklistapp/diagram/pkg/io"
)

// MongoStore keeps one document per version in a collection, with a unique
// index on (project_id, meta.version). The newest version of each project
// carries is_current=true.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// MongoOptions configures [NewMongoStore].
type MongoOptions struct {
	URI        string
	Database   string // defaults to "diagram"
	Collection string // defaults to "diagrams"
}

type mongoRecord struct {
	Record    `bson:",inline"`
	IsCurrent bool `bson:"is_current"`
}

// NewMongoStore connects to MongoDB and ensures the version index exists.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.Database == "" {
		opts.Database = "diagram"
	}
	if opts.Collection == "" {
		opts.Collection = "diagrams"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	coll := client.Database(opts.Database).Collection(opts.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "meta.version", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &MongoStore{client: client, coll: coll, now: time.Now}, nil
}

func (s *MongoStore) Put(ctx context.Context, projectID string, doc pkgio.GraphDocument) (Version, error) {
	next := 1
	var latest mongoRecord
	err := s.coll.FindOne(ctx,
		bson.M{"project_id": projectID},
		options.FindOne().SetSort(bson.D{{Key: "meta.version", Value: -1}}),
	).Decode(&latest)
	switch {
	case err == nil:
		next = latest.Version.Number + 1
	case !errors.Is(err, mongo.ErrNoDocuments):
		return Version{}, fmt.Errorf("find latest version: %w", err)
	}

	rec := mongoRecord{Record: newRecord(projectID, next, doc, s.now()), IsCurrent: true}
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return Version{}, fmt.Errorf("insert version %d: %w", next, err)
	}
	_, err = s.coll.UpdateMany(ctx,
		bson.M{"project_id": projectID, "meta.version": bson.M{"$ne": next}, "is_current": true},
		bson.M{"$set": bson.M{"is_current": false}},
	)
	if err != nil {
		return Version{}, fmt.Errorf("clear current flag: %w", err)
	}
	return rec.Version, nil
}

func (s *MongoStore) Current(ctx context.Context, projectID string) (Record, error) {
	return s.findOne(ctx, bson.M{"project_id": projectID, "is_current": true},
		fmt.Sprintf("project %s", projectID))
}

func (s *MongoStore) Get(ctx context.Context, projectID string, version int) (Record, error) {
	return s.findOne(ctx, bson.M{"project_id": projectID, "meta.version": version},
		fmt.Sprintf("project %s version %d", projectID, version))
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M, what string) (Record, error) {
	var rec mongoRecord
	err := s.coll.FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("find %s: %w", what, err)
	}
	return rec.Record, nil
}

func (s *MongoStore) List(ctx context.Context, projectID string) ([]Version, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"project_id": projectID},
		options.Find().
			SetSort(bson.D{{Key: "meta.version", Value: 1}}).
			SetProjection(bson.M{"document": 0}),
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer cur.Close(ctx)

	var out []Version
	for cur.Next(ctx) {
		var rec mongoRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode version: %w", err)
		}
		out = append(out, rec.Version)
	}
	return out, cur.Err()
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
