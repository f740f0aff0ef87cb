package services

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/langconfig"
	"github.com/fyrsmithlabs/foldkit/internal/provider"
	"github.com/fyrsmithlabs/foldkit/internal/viewbus"
	"github.com/fyrsmithlabs/foldkit/internal/viewstate"
)

// Registry provides access to the shared folding services.
type Registry interface {
	Providers() *provider.Registry
	Rules() *langconfig.Set
	// ViewState is nil when persistence is disabled.
	ViewState() *viewstate.Store
	// Bus is nil when hidden ranges are not published.
	Bus() *viewbus.Bus
	Logger() *zap.Logger
	// NewController builds a controller for doc. opts apply after the
	// registry's own options.
	NewController(doc controller.Document, opts ...controller.Option) *controller.Controller
}

// Options configures the registry with service instances. Nil fields take
// defaults or disable the service.
type Options struct {
	Folding   controller.Config
	Providers *provider.Registry
	Rules     *langconfig.Set
	Logger    *zap.Logger
	Metrics   *controller.Metrics
	Telemetry *folding.Metrics
	ViewState *viewstate.Store
	Bus       *viewbus.Bus
}

type registry struct {
	folding   controller.Config
	providers *provider.Registry
	rules     *langconfig.Set
	logger    *zap.Logger
	metrics   *controller.Metrics
	telemetry *folding.Metrics
	viewState *viewstate.Store
	bus       *viewbus.Bus
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	r := &registry{
		folding:   opts.Folding,
		providers: opts.Providers,
		rules:     opts.Rules,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		telemetry: opts.Telemetry,
		viewState: opts.ViewState,
		bus:       opts.Bus,
	}
	if r.providers == nil {
		r.providers = provider.NewRegistry()
	}
	if r.rules == nil {
		r.rules = langconfig.Default()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

func (r *registry) Providers() *provider.Registry { return r.providers }
func (r *registry) Rules() *langconfig.Set         { return r.rules }
func (r *registry) ViewState() *viewstate.Store    { return r.viewState }
func (r *registry) Bus() *viewbus.Bus              { return r.bus }
func (r *registry) Logger() *zap.Logger            { return r.logger }

func (r *registry) NewController(doc controller.Document, opts ...controller.Option) *controller.Controller {
	base := []controller.Option{
		controller.WithConfig(r.folding),
		controller.WithRegistry(r.providers),
		controller.WithLanguageRules(r.rules),
		controller.WithLogger(r.logger),
		controller.WithMetrics(r.metrics),
		controller.WithTelemetry(r.telemetry),
	}
	return controller.New(doc, append(base, opts...)...)
}
