// Package hcl provides the HCL implementation of the config.Loader interface.
// It is responsible for file parsing and for translating `graph` and `node`
// blocks into the format-agnostic model.
//
// A file may declare nodes at the top level, which belong to the "main"
// graph, or group them in named graph blocks:
//
//	graph "etl" {
//	  node "extract" {
//	    kind   = "http_request"
//	    params = { url = "https://example.com/${env.DATASET}" }
//	  }
//	  node "load" {
//	    kind       = "print"
//	    depends_on = ["extract"]
//	    timeout    = "30s"
//	  }
//	}
//
// Params expressions may read environment variables through `env` and call a
// small set of string and collection functions.
package hcl
