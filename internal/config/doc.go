// Package config defines the format-agnostic model of graph definitions,
// along with the Loader interface implemented by each file format.
//
// The `config.Model` is the single source of truth for the builder. Concrete
// loaders for HCL and YAML live in separate packages.
package config
