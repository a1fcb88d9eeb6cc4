// Package reqflow exposes the client builder.
//
// Requests are described with the urlbuilder and request packages and
// sent through a client.Client whose handlers add tokens, API versions
// and static headers on the way out.
package reqflow

import (
	"fmt"

	"github.com/adamwoolhether/reqflow/client"
	"github.com/adamwoolhether/reqflow/config"
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, a fresh http.Client over http.DefaultTransport is used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// NewClientFromConfig loads settings with config.Load and builds a
// client from them. extra options are applied after the loaded ones,
// so their handlers sit closer to the transport.
func NewClientFromConfig(loadOpts []config.LoaderOption, extra ...client.Option) (*client.Client, error) {
	settings, err := config.Load(loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	opts, err := settings.Options()
	if err != nil {
		return nil, fmt.Errorf("converting settings: %w", err)
	}

	return client.Build(append(opts, extra...)...)
}
