// Package redis holds the Redis-backed pieces of the relay: the shared app token,
// a read-through cache in front of the broadcaster directory with pub/sub
// invalidation across replicas, and EventSub message deduplication.
package redis
