// Package registry provides the central "glue" for the module system.
//
// The Registry maps the kind names used in graph definitions (e.g. "print")
// to the compiled Go work functions that implement them. Modules under
// modules/ register their kinds at startup.
//
// Before a graph is built, Validate checks that every node in the loaded
// model refers to a known kind and that its params fit the kind's params
// struct, so definition errors surface before anything runs.
package registry
