package cmd

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/loomflow/loom/pkg/registry"
)

const defaultHTTPTimeout = 30 * time.Second

// NewRegistry builds the executor registry with every built-in kind wired
// to its production side-effect dependency.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaults(registry.Dependencies{
		EmailSender: NewLogEmailSender(logger),
		HTTPClient:  &http.Client{Timeout: defaultHTTPTimeout},
		QueryRunner: NewSQLQueryRunner(logger),
	})

	return reg
}
