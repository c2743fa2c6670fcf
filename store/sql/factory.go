package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/uptrace/bun"
)

// RepositoryFactory wires the four ledger stores over one bun connection.
// It satisfies both core.RepositoryStoreFactory and core.StoreProvider.
type RepositoryFactory struct {
	db *bun.DB

	eventStore        *EventStore
	endpointStore     *EndpointStore
	subscriptionStore *SubscriptionStore
	deliveryStore     *DeliveryStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.eventStore != nil && f.deliveryStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) EventStore() core.EventStore {
	if f == nil {
		return nil
	}
	return f.eventStore
}

func (f *RepositoryFactory) EndpointStore() core.EndpointStore {
	if f == nil {
		return nil
	}
	return f.endpointStore
}

func (f *RepositoryFactory) SubscriptionStore() core.SubscriptionStore {
	if f == nil {
		return nil
	}
	return f.subscriptionStore
}

func (f *RepositoryFactory) DeliveryStore() core.DeliveryStore {
	if f == nil {
		return nil
	}
	return f.deliveryStore
}

// Endpoints returns the concrete endpoint store for callers that need the
// write surface (Insert) beyond the core contract.
func (f *RepositoryFactory) Endpoints() *EndpointStore {
	if f == nil {
		return nil
	}
	return f.endpointStore
}

func (f *RepositoryFactory) initStores() error {
	eventStore, err := NewEventStore(f.db)
	if err != nil {
		return err
	}
	f.eventStore = eventStore
	endpointStore, err := NewEndpointStore(f.db)
	if err != nil {
		return err
	}
	f.endpointStore = endpointStore
	subscriptionStore, err := NewSubscriptionStore(f.db)
	if err != nil {
		return err
	}
	f.subscriptionStore = subscriptionStore
	deliveryStore, err := NewDeliveryStore(f.db)
	if err != nil {
		return err
	}
	f.deliveryStore = deliveryStore
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
