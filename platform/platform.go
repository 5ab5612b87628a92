// Package platform collects deployment metadata (region, route, deployment
// identifiers) for the runtime the process is executing on.
//
// Providers snapshot the environment variables they care about when they are
// constructed; Metadata never touches the process environment again.
package platform

import "os"

// Info is the platform section attached to a log event.
type Info struct {
	Provider        string `json:"provider"`
	Source          string `json:"source,omitempty"`
	Environment     string `json:"environment,omitempty"`
	Region          string `json:"region,omitempty"`
	Route           string `json:"route,omitempty"`
	Host            string `json:"host,omitempty"`
	DeploymentID    string `json:"deploymentId,omitempty"`
	DeploymentURL   string `json:"deploymentUrl,omitempty"`
	Commit          string `json:"commit,omitempty"`
	FunctionName    string `json:"functionName,omitempty"`
	FunctionVersion string `json:"functionVersion,omitempty"`
	MemoryMB        string `json:"memoryMb,omitempty"`
}

// Provider supplies platform metadata for one deployment target.
type Provider interface {
	// Name identifies the deployment target, e.g. "vercel".
	Name() string
	// Metadata returns a fresh Info for an event emitted by source, or nil
	// when the process is not running on this target.
	Metadata(source string) *Info
}

// Env is a snapshot of environment variables.
type Env map[string]string

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

func lookupEnv(lookup LookupFunc, keys map[string]bool) Env {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	res := Env{}
	for key := range keys {
		if val, ok := lookup(key); ok {
			res[key] = val
		}
	}
	return res
}

// Detect returns the provider matching the current environment. A nil
// lookup reads the process environment.
func Detect(lookup LookupFunc) Provider {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if _, ok := lookup(vercelMarkerKey); ok {
		return NewVercel(lookup)
	}
	if _, ok := lookup(netlifyMarkerKey); ok {
		return NewNetlify(lookup)
	}
	if _, ok := lookup(lambdaFunctionNameKey); ok {
		return NewLambda(lookup)
	}
	return Generic{}
}

// Generic is used outside of any known deployment target. It never
// produces metadata.
type Generic struct{}

func (Generic) Name() string          { return "generic" }
func (Generic) Metadata(string) *Info { return nil }
