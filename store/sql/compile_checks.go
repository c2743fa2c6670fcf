package sqlstore

import "github.com/goliatone/go-webhooks/core"

var (
	_ core.EventStore             = (*EventStore)(nil)
	_ core.EndpointStore          = (*EndpointStore)(nil)
	_ core.EndpointStore          = (*CachedEndpointStore)(nil)
	_ core.SubscriptionStore      = (*SubscriptionStore)(nil)
	_ core.DeliveryStore          = (*DeliveryStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
