package queue

import (
	"errors"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
)

// CreateQueue connects the download job publisher. RabbitMQ is the only
// broker; jobs are routed by cfg.Queue.Name at publish time.
func CreateQueue(cfg *config.Config, obs ports.Observability) (ports.Queue, error) {
	if cfg.Queue.URL == "" {
		return nil, errors.New("RABBITMQ_URL is not set")
	}
	return NewRabbitMQQueue(cfg.Queue.URL, obs)
}
