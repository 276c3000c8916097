// Package mcpserver exposes the retriever over the Model Context Protocol
// on stdio, with tools to index a codebase, search it and report status.
package mcpserver
