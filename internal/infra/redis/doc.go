// Package redis wraps go-redis for scanledger.
//
// Client manages the connection with TLS, pooling and connect retries.
// StringCache backs the assignee display-name lookups of the dashboard,
// and RateLimiter throttles batch uploads across API replicas. Operation
// latencies, cache hit ratios and limiter decisions are exported under
// scanledger_redis_*; NewPoolCollector adds the connection pool gauges.
package redis
