package redis

// Key prefixes for primary entity storage.
const (
	prefixEndpoint = "hooks:ep:"
	prefixEvent    = "hooks:evt:"
)

// Keys for sorted set indexes. Endpoints are scored by creation time,
// events by trigger time, so range queries map onto ZRANGEBYSCORE.
const (
	zEndpointAll  = "hooks:z:ep:all"
	zEventAll     = "hooks:z:evt:all"
	zEventWebhook = "hooks:z:evt:wh:" // + webhook ID
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}
