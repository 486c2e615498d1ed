package simulation

import (
	"encoding/json"
	"io"

	"combatsim/broker/internal/combat"
)

// Request is the transport neutral body of a simulation call: the combat
// configuration plus the run parameters.
type Request struct {
	combat.Config `yaml:",inline"`
	Trials int     `json:"trials,omitempty" yaml:"trials,omitempty"`
	Seed   *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Options converts the run parameters of the request.
func (r Request) Options() Options {
	return Options{Trials: r.Trials, Seed: r.Seed}
}

// DecodeRequest parses a JSON request strictly so misspelled fields surface as errors.
func DecodeRequest(body io.Reader) (Request, error) {
	var req Request
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return Request{}, &combat.ConfigError{Field: "body", Reason: err.Error(), Err: err}
	}
	return req, nil
}
