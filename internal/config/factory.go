package config

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pipedeck/console/internal/identity"
	"github.com/pipedeck/console/internal/sessions"
	"github.com/pipedeck/console/internal/storage"
)

// NewStore opens the configured storage backend, namespaced by the identity
// service hostname.
func (c *Config) NewStore() (storage.Store, error) {

	namespace := c.GetIdentityHostname()

	logrus.WithFields(logrus.Fields{
		"backend":   c.Storage.Backend,
		"namespace": namespace,
	}).Debugln("Opening session storage")

	switch strings.ToLower(c.Storage.Backend) {
	case StorageBackendFile, "":
		return storage.NewFileStore(c.Storage.Path, namespace)
	case StorageBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
		})
		return storage.NewRedisStore(
			client,
			c.Storage.Redis.Prefix,
			namespace,
			storage.WithRedisTimeout(c.Storage.Redis.Timeout),
		)
	case StorageBackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}
}

func (c *Config) NewIdentityClient() (*identity.Client, error) {
	if !c.HasIdentityEndpoint() {
		return nil, ErrNoIdentityEndpoint
	}
	return identity.NewClient(c.Identity.Endpoint, identity.WithTimeout(c.Identity.Timeout))
}

// NewSessionManager wires the configured store and identity client into a
// session manager. The manager is not initialized.
func (c *Config) NewSessionManager() (*sessions.Manager, error) {

	client, err := c.NewIdentityClient()
	if err != nil {
		return nil, err
	}

	store, err := c.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	return sessions.NewManager(store, client, sessions.WithTimeout(c.Identity.Timeout)), nil
}
