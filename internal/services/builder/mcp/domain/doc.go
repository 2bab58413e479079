// Package domain defines the MCP tools exposed by the builder service and
// their handlers. Tools operate directly on the rule-definition store and the
// in-process session manager; every mutation flows through the same canvas
// pipeline the HTTP API uses.
package domain
