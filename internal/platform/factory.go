package platform

import (
	"github.com/aretw0/setlist/pkg/autosave"
	"github.com/aretw0/setlist/pkg/setlist"
)

// New builds the store and wraps it in a Service.
//
//	svc, err := setlist.New("./shows", setlist.WithAdapter("sqlite"))
func New(uri string, opts ...Option) (*setlist.Service, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	repo, err := o.init(uri)
	if err != nil {
		return nil, err
	}

	svcOpts := []setlist.Option{setlist.WithLogger(o.log())}
	if d := o.autosaveInterval(); d > 0 {
		svcOpts = append(svcOpts, setlist.WithAutosaveOptions(autosave.WithInterval(d)))
	}
	return setlist.New(repo, svcOpts...), nil
}
