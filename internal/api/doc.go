// Package api serves the retriever over HTTP: query and index endpoints
// under /v1, a status endpoint and a health check, with request-ID and
// access-log middleware and optional bearer-token auth.
package api
