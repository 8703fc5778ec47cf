// Package taskgraph extracts scheduled task definitions from Snowflake DDL
// and orders them by their AFTER dependencies.
//
// Edges point from a child task to the predecessor named in its AFTER
// clause. The root of a chain is the task reached by following first
// predecessors upward; a predecessor no artifact defines is assumed to live
// only in the warehouse and becomes the root. The graph must be acyclic.
package taskgraph
