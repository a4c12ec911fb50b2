package app

import (
	"io"
	"net/http"
	"time"

	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/modules/env_vars"
	"github.com/specialistvlad/conduit/modules/http_request"
	"github.com/specialistvlad/conduit/modules/print"
	"github.com/specialistvlad/conduit/modules/sleep"
	"github.com/specialistvlad/conduit/modules/value"
)

// coreModules is the definitive list of all modules that are compiled into
// the conduit binary.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&value.Module{},
		&print.Module{Out: outW},
		&sleep.Module{},
		&env_vars.Module{},
		&http_request.Module{Client: &http.Client{Timeout: 30 * time.Second}},
	}
}
