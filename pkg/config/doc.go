// Package config loads service configuration from BIZGATE_* environment
// variables.
//
// # Variables
//
// Server:
//
//	BIZGATE_HOST="0.0.0.0"
//	BIZGATE_PORT="8080"
//	BIZGATE_HEALTH_PORT="9090"
//	BIZGATE_READ_TIMEOUT="15s"
//	BIZGATE_SHUTDOWN_TIMEOUT="30s"
//
// Database and Redis:
//
//	BIZGATE_DATABASE_URL="postgres://localhost/bizgate?sslmode=disable"
//	BIZGATE_DATABASE_REPLICA_URLS="postgres://replica1/bizgate,postgres://replica2/bizgate"
//	BIZGATE_REDIS_URL="redis://localhost:6379"
//
// Auth:
//
//	BIZGATE_JWT_SECRET="..."            # at least 32 bytes
//	BIZGATE_JWT_ISSUER="https://id.example.com"
//	BIZGATE_SUPER_ADMINS="uuid1,uuid2"  # in addition to the super_admins table
//
// Subscription:
//
//	BIZGATE_CREDIT_GRANT="5"
//	BIZGATE_SESSION_CACHE_SIZE="10000"
//	BIZGATE_SESSION_TTL="30m"
//	BIZGATE_SESSION_LOAD_TIMEOUT="10s"
//	BIZGATE_CHANGE_CHANNEL="bizgate:subscription:changes"
//	BIZGATE_DEDUCT_RATE_LIMIT="30"
//	BIZGATE_DEDUCT_RATE_WINDOW="1m"
//
// Observability:
//
//	BIZGATE_LOG_LEVEL="info"
//	BIZGATE_LOG_FORMAT="json"  # or text
//	BIZGATE_OTEL_ENABLED="false"
//	BIZGATE_OTEL_ENDPOINT="localhost:4317"
//
// LoadConfig validates the result and reports every problem at once.
package config
