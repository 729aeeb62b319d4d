// Package redisstore shares access tokens between processes through Redis.
//
// A Store implements oauth2client.Store. Plug it into a provider with
// oauth2client.WithStore and every replica that uses the same key reuses one
// token instead of requesting its own:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := redisstore.New(rdb, "billing-api")
//	provider, err := oauth2client.NewProvider(tokenURL, grant, oauth2client.WithStore(store))
//
// Entries expire in Redis at the token's effective expiry, so a stale token
// is never served from the store.
package redisstore
