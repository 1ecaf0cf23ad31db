// Package arqmon is the store-facing half of the job monitor: it knows how an
// arq-style queue lays its jobs out in Redis, decodes definition and result
// payloads, answers the queue's native status lookup and can enqueue or abort
// jobs the same way the queue producer does.
//
// Quick start:
//  1. Create a go-redis client pointing at the queue's Redis.
//  2. Wrap it with arqmon.NewRedisStore(rdb, arqmon.RedisStoreOptions{...}).
//  3. Hand the Store to the resolution pipeline in internal/jobs.
//  4. Use arqmon.NewClient to enqueue demo or test jobs.
//
// An asynq deployment can be observed instead through NewAsynqStore.
package arqmon
