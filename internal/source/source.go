// Package source fetches raw job listings from the supported origins.
//
// Every source returns listings exactly as received; normalization happens
// later in the pipeline.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"go-job-digest/internal/config"
	"go-job-digest/internal/models"

	"go.uber.org/zap"
)

var (
	ErrUnknownSource = errors.New("unknown source")
	ErrNotConfigured = errors.New("source not configured")

	// ErrBadPayload means a response parsed but did not contain a job list.
	ErrBadPayload = errors.New("unexpected payload shape")
)

// Source defines what every fetch backend must implement
type Source interface {
	//Name is the source name written into each record (web104, imap, ...)
	Name() string

	//Fetch returns raw listings in source order
	Fetch(ctx context.Context) ([]models.RawJob, error)
}

// Options carries what the constructors need. Zero values get defaults.
type Options struct {
	Config     *config.Config
	InputFile  string
	Logger     *zap.Logger
	Limiter    *HostLimiter
	HTTPClient *http.Client
}

func (o Options) withDefaults() Options {
	if o.Config == nil {
		o.Config = config.Defaults()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Limiter == nil {
		o.Limiter = NewHostLimiter(2, 2)
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	return o
}

type constructor func(Options) (Source, error)

var registry = map[string]constructor{
	"web104": func(o Options) (Source, error) {
		return NewWeb104(o.Config.Web104, o.HTTPClient, o.Limiter, o.Logger), nil
	},
	"api": func(o Options) (Source, error) {
		return NewAPI(o.Config.API, o.HTTPClient, o.Limiter)
	},
	"file": func(o Options) (Source, error) {
		return NewFile(o.InputFile)
	},
	"imap": func(o Options) (Source, error) {
		return NewIMAP(o.Config.IMAP, nil, o.Logger)
	},
	"browser": func(o Options) (Source, error) {
		return NewBrowser(o.Config.Web104, o.Config.Browser, nil, o.Logger), nil
	},
}

// Names lists the registered source names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the named source.
func New(name string, opts Options) (Source, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownSource, name, Names())
	}
	return ctor(opts.withDefaults())
}
