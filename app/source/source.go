package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/lysyi3m/newsbell/app/feed"
)

var (
	ErrTimeout = errors.New("timeout")
	ErrNetwork = errors.New("network error")
	ErrParse   = errors.New("parse error")
)

// Source yields the current candidate items of one named news source.
// Fetch must honour ctx cancellation and has no side effects on the history.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]feed.RawItem, error)
}

// FetchError is a failed fetch of one source. Kind is ErrTimeout, ErrNetwork or ErrParse.
type FetchError struct {
	Source string
	Kind   error
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func fetchError(source string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	kind := ErrNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = ErrTimeout
	}
	return &FetchError{Source: source, Kind: kind, Err: err}
}

func parseError(source string, err error) *FetchError {
	return &FetchError{Source: source, Kind: ErrParse, Err: err}
}

type Options struct {
	HTTPClient *http.Client
	UserAgent  string
	Extractor  *feed.SummaryExtractor
}

// New builds the adapter for a configured source.
func New(config *feed.SourceConfig, opts Options) (Source, error) {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	switch config.Kind {
	case feed.SourceKindRSS, "":
		return NewRSS(config, opts), nil
	case feed.SourceKindNewsAPI:
		return NewNewsAPI(config, opts), nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s", config.Kind)
	}
}
