// Package registry provides executor factory registration for the built-in node kinds.
package registry

import (
	"github.com/loomflow/loom/pkg/executors/apicall"
	"github.com/loomflow/loom/pkg/executors/condition"
	"github.com/loomflow/loom/pkg/executors/email"
	"github.com/loomflow/loom/pkg/executors/noop"
	"github.com/loomflow/loom/pkg/executors/storage"
	"github.com/loomflow/loom/pkg/executors/transform"
	"github.com/loomflow/loom/pkg/protocol"
)

// Dependencies carries the injected side-effect implementations for the
// built-in executors. Nil fields are allowed; the affected executors then
// fail at execution time with a node-level error.
type Dependencies struct {
	EmailSender protocol.EmailSender
	HTTPClient  protocol.HTTPDoer
	QueryRunner protocol.QueryRunner
}

// RegisterDefaults registers every built-in executor factory and installs
// the noop fallback for kinds without their own semantics.
func (r *Registry) RegisterDefaults(deps Dependencies) {
	r.Register(email.NewFactory(deps.EmailSender))
	r.Register(apicall.NewFactory(deps.HTTPClient))
	r.Register(storage.NewFactory(deps.QueryRunner))
	r.Register(condition.NewFactory())
	r.Register(transform.NewFactory())

	r.SetFallback(noop.NewFactory())
}
