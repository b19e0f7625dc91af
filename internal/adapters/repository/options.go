package repository

import (
	"time"

	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/pkg/logger"
)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithSnapshot preloads the store with a roster and result history.
func WithSnapshot(snap model.Snapshot) MemoryOption {
	return func(s *MemoryStore) {
		for _, d := range snap.Drivers {
			s.putDriver(d)
		}
		for _, t := range snap.Tournaments {
			s.putTournament(t)
		}
	}
}

// MongoOption configures a MongoStore.
type MongoOption func(*MongoStore)

// WithDatabase sets the database name.
func WithDatabase(name string) MongoOption {
	return func(s *MongoStore) {
		if name != "" {
			s.database = name
		}
	}
}

// WithCollections overrides the drivers and tournaments collection names.
func WithCollections(drivers, tournaments string) MongoOption {
	return func(s *MongoStore) {
		if drivers != "" {
			s.driversName = drivers
		}
		if tournaments != "" {
			s.tournamentsName = tournaments
		}
	}
}

// WithConnectTimeout bounds the initial connection and ping.
func WithConnectTimeout(d time.Duration) MongoOption {
	return func(s *MongoStore) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithOfflineStart makes NewMongoStore succeed when the first ping fails.
func WithOfflineStart() MongoOption {
	return func(s *MongoStore) {
		s.offlineStart = true
	}
}

// WithMongoLogger sets the logger used by the store.
func WithMongoLogger(l logger.Logger) MongoOption {
	return func(s *MongoStore) {
		if l != nil {
			s.log = l
		}
	}
}
