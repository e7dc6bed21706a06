package repository

import (
	"context"
	"fmt"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
	"mavencrawler/shared/infrastructure/database"
	"mavencrawler/shared/infrastructure/repository/mongo"
)

// Open connects the backend selected by cfg.Adapters.Database and returns
// its repositories. Closing them closes the underlying connection.
func Open(ctx context.Context, cfg *config.Config, obs ports.Observability) (ports.Repositories, error) {
	switch cfg.Adapters.Database {
	case "postgres", "":
		db, err := database.NewPostgresAdapter(&cfg.Database, obs)
		if err != nil {
			return nil, err
		}
		repos, err := NewRepositories(db, obs)
		if err != nil {
			db.Close()
			return nil, err
		}
		return repos, nil

	case "mongo":
		return mongo.Connect(ctx, &cfg.Mongo, obs)

	default:
		return nil, fmt.Errorf("unsupported database adapter: %s", cfg.Adapters.Database)
	}
}
