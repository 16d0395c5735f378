// Package client is the medscribe CLI's connection to the outside world.
//
// # Overview
//
// The package provides:
//  1. The Client interface: the REST API the optimistic layer and services
//     depend on (auth, patients, conversation logs, AI assistant).
//  2. HTTPClient, its implementation. Text and voice logs are posted as
//     multipart forms carrying a clientRef correlation id; recordings come
//     back with relative audio URLs resolved against the base URL. Expired
//     access tokens are refreshed once. GETs are retried with
//     exponential backoff (sethvargo/go-retry) while the server is
//     unavailable. Ping uses the gRPC health service.
//  3. InitDatabase and NewRepositories, which open the local SQLite file and
//     apply the embedded goose migrations.
//
// # Error Handling
//
// Failed responses are returned as *APIError. ParseErrorBody classifies the
// body as a structured detail ({"detail":{"code","message"}}), a text detail
// ({"detail":"..."}) or raw, so callers switch on Kind instead of probing
// fields. APIError unwraps to the sentinel for its status code, so
// errors.Is(err, common.ErrUnauthorized) and errors.Is(err, ErrUnavailable)
// work alongside errors.As.
package client
