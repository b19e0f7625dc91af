package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/okian/kartboard/internal/domain/linking"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/pkg/logger"
	"github.com/okian/kartboard/pkg/metrics"
)

const mongoStoreName = "mongo"

// MongoStore is a Store backed by two MongoDB collections: drivers and
// tournaments (with races embedded).
type MongoStore struct {
	client          *mongo.Client
	database        string
	driversName     string
	tournamentsName string
	connectTimeout  time.Duration
	offlineStart    bool
	log             logger.Logger

	drivers     *mongo.Collection
	tournaments *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to uri, verifies the connection and ensures the
// indexes the store relies on.
func NewMongoStore(ctx context.Context, uri string, opts ...MongoOption) (*MongoStore, error) {
	s := &MongoStore{
		database:        "kartboard",
		driversName:     "drivers",
		tournamentsName: "tournaments",
		connectTimeout:  10 * time.Second,
		log:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cctx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", ErrUnavailable, err)
	}
	s.client = client
	db := client.Database(s.database)
	s.drivers = db.Collection(s.driversName)
	s.tournaments = db.Collection(s.tournamentsName)

	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		if s.offlineStart {
			// The driver reconnects on its own; indexes are left to the seeder.
			s.log.Warn(ctx, "mongo unreachable at start", logger.Error(err))
			return s, nil
		}
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}

	if err := s.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.log.Info(ctx, "mongo store connected",
		logger.String("database", s.database),
		logger.String("drivers", s.driversName),
		logger.String("tournaments", s.tournamentsName))
	return s, nil
}

// ensureIndexes makes linked emails unique among linked drivers.
func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.drivers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "linkedEmail", Value: 1}},
		Options: options.Index().
			SetName("linked_email_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"linked": true}),
	})
	if err != nil {
		return fmt.Errorf("%w: create index: %w", ErrUnavailable, err)
	}
	return nil
}

// Name implements Store.
func (s *MongoStore) Name() string { return mongoStoreName }

// ListDrivers implements Store.
func (s *MongoStore) ListDrivers(ctx context.Context) (_ []model.Driver, err error) {
	defer observe(mongoStoreName, "list_drivers", time.Now(), &err)
	cur, err := s.drivers.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, unavailable(err)
	}
	var docs []driverDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable(err)
	}
	out := make([]model.Driver, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

// ListTournaments implements Store. Tournaments that fail validation are
// skipped and logged rather than failing the whole listing.
func (s *MongoStore) ListTournaments(ctx context.Context) (_ []model.Tournament, err error) {
	defer observe(mongoStoreName, "list_tournaments", time.Now(), &err)
	cur, err := s.tournaments.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, unavailable(err)
	}
	var docs []tournamentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable(err)
	}
	out := make([]model.Tournament, 0, len(docs))
	for _, d := range docs {
		t, warnings, terr := d.model()
		for _, w := range warnings {
			s.log.Warn(ctx, "tournament field ignored", logger.String("tournament_id", d.ID), logger.String("reason", w))
		}
		if terr != nil {
			metrics.RecordStoreError(mongoStoreName, "decode_tournament")
			s.log.Error(ctx, "tournament rejected", logger.String("tournament_id", d.ID), logger.Error(terr))
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// CreateDriver implements Store.
func (s *MongoStore) CreateDriver(ctx context.Context, d model.Driver) (err error) {
	defer observe(mongoStoreName, "create_driver", time.Now(), &err)
	if d.ID == "" {
		return fmt.Errorf("%w: driver without id", ErrInvalid)
	}
	if _, err := s.drivers.InsertOne(ctx, toDriverDoc(d)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return unavailable(err)
	}
	return nil
}

// ApplyLink implements Store. Both directions are conditional updates, so
// a concurrent claim of the same driver loses with ErrConflict.
func (s *MongoStore) ApplyLink(ctx context.Context, in linking.Intent) (err error) {
	defer observe(mongoStoreName, string(in.Action)+"_driver", time.Now(), &err)
	var filter, update bson.M
	switch in.Action {
	case linking.ActionLink:
		filter = bson.M{"_id": in.DriverID, "linkedEmail": bson.M{"$in": bson.A{nil, ""}}}
		update = bson.M{"$set": bson.M{"linkedEmail": in.Email, "linked": true}}
	case linking.ActionUnlink:
		filter = bson.M{"_id": in.DriverID, "linkedEmail": in.Email}
		update = bson.M{"$set": bson.M{"linked": false}, "$unset": bson.M{"linkedEmail": ""}}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalid, in.Action)
	}
	res, err := s.drivers.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: email already linked", ErrConflict)
		}
		return unavailable(err)
	}
	if res.MatchedCount == 0 {
		return s.missOrConflict(ctx, in.DriverID)
	}
	return nil
}

// UpdateProfile implements Store. Absent number or weight are unset.
func (s *MongoStore) UpdateProfile(ctx context.Context, driverID string, p model.ProfileUpdate) (err error) {
	defer observe(mongoStoreName, "update_profile", time.Now(), &err)
	set := bson.M{"phrase": p.Phrase}
	unset := bson.M{}
	if p.Number != nil {
		set["number"] = *p.Number
	} else {
		unset["number"] = ""
	}
	if p.WeightKg != nil {
		set["weightKg"] = *p.WeightKg
	} else {
		unset["weightKg"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return s.updateByID(ctx, driverID, update)
}

// SetAttendance implements Store.
func (s *MongoStore) SetAttendance(ctx context.Context, driverID string, attending bool) (err error) {
	defer observe(mongoStoreName, "set_attendance", time.Now(), &err)
	return s.updateByID(ctx, driverID, bson.M{"$set": bson.M{"attendingNextRace": attending}})
}

// SetPhoto implements Store.
func (s *MongoStore) SetPhoto(ctx context.Context, driverID, url string) (err error) {
	defer observe(mongoStoreName, "set_photo", time.Now(), &err)
	return s.updateByID(ctx, driverID, bson.M{"$set": bson.M{"photo": url}})
}

// PutDriver implements Store.
func (s *MongoStore) PutDriver(ctx context.Context, d model.Driver) (err error) {
	defer observe(mongoStoreName, "put_driver", time.Now(), &err)
	if d.ID == "" {
		return fmt.Errorf("%w: driver without id", ErrInvalid)
	}
	_, err = s.drivers.ReplaceOne(ctx, bson.M{"_id": d.ID}, toDriverDoc(d), options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return unavailable(err)
	}
	return nil
}

// PutTournament implements Store.
func (s *MongoStore) PutTournament(ctx context.Context, t model.Tournament) (err error) {
	defer observe(mongoStoreName, "put_tournament", time.Now(), &err)
	if t.ID == "" {
		return fmt.Errorf("%w: tournament without id", ErrInvalid)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	_, err = s.tournaments.ReplaceOne(ctx, bson.M{"_id": t.ID}, toTournamentDoc(t), options.Replace().SetUpsert(true))
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Ping implements Store.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return unavailable(err)
	}
	return nil
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) updateByID(ctx context.Context, driverID string, update bson.M) error {
	res, err := s.drivers.UpdateOne(ctx, bson.M{"_id": driverID}, update)
	if err != nil {
		return unavailable(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) missOrConflict(ctx context.Context, driverID string) error {
	n, err := s.drivers.CountDocuments(ctx, bson.M{"_id": driverID})
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

// unavailable marks a backend failure as opaque to callers.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
