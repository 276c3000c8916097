// Package cli implements the codectx command tree: project registry
// management, indexing, querying and the HTTP and MCP server entry points.
package cli
