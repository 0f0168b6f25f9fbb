package gateway

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tordrt/autogql/internal/derive"
)

// ShowErrorStack values
const (
	StackNone   = ""
	StackString = "true"
	StackJSON   = "json"
)

// Extended error fields that may be lifted to the top level of error objects
const (
	ExtHint    = "hint"
	ExtDetail  = "detail"
	ExtErrcode = "errcode"
)

// DefaultMountPath is where the gateway serves GraphQL
const DefaultMountPath = "/graphql"

// Options controls derivation and serving
type Options struct {
	// MountPath is the HTTP path of the endpoint
	MountPath string

	Subscriptions bool
	WatchSchema   bool
	// WatchInterval is the poll period of the schema watcher
	WatchInterval time.Duration

	DynamicJSON                bool
	SetofFunctionsContainNulls bool
	IgnorePrivileges           bool

	ShowErrorStack string
	ExtendedErrors []string

	// ExportSchemaPath receives the SDL after every derivation; empty disables export
	ExportSchemaPath string

	GraphiQL        bool
	EnhanceGraphiQL bool

	EnableQueryBatching bool
	LegacyRelations     string
	Plugins             []derive.Plugin
}

// DefaultOptions is the configuration the api app runs with
func DefaultOptions() Options {
	return Options{
		MountPath:                  DefaultMountPath,
		Subscriptions:              true,
		WatchSchema:                true,
		WatchInterval:              2 * time.Second,
		DynamicJSON:                true,
		SetofFunctionsContainNulls: false,
		IgnorePrivileges:           false,
		ShowErrorStack:             StackJSON,
		ExtendedErrors:             []string{ExtHint, ExtDetail, ExtErrcode},
		ExportSchemaPath:           "./schema/schema.graphql",
		GraphiQL:                   true,
		EnhanceGraphiQL:            true,
		EnableQueryBatching:        true,
		LegacyRelations:            derive.LegacyOmit,
		Plugins: []derive.Plugin{
			derive.SimplifyPlugin{},
			derive.AggregatesPlugin{},
			derive.ManyToManyPlugin{},
		},
	}
}

// PluginByName resolves the plugin names accepted on the command line
func PluginByName(name string) (derive.Plugin, error) {
	switch name {
	case "simplify-inflector", "simplify":
		return derive.SimplifyPlugin{}, nil
	case "aggregates":
		return derive.AggregatesPlugin{}, nil
	case "many-to-many":
		return derive.ManyToManyPlugin{}, nil
	default:
		return nil, errors.Errorf("unknown plugin %q", name)
	}
}

// Validate normalizes defaults and rejects unknown values
func (o *Options) Validate() error {
	if o.MountPath == "" {
		o.MountPath = DefaultMountPath
	}
	if o.WatchInterval <= 0 {
		o.WatchInterval = 2 * time.Second
	}

	switch o.ShowErrorStack {
	case StackNone, StackString, StackJSON:
	default:
		return errors.Errorf("showErrorStack must be empty, %q or %q, got %q", StackString, StackJSON, o.ShowErrorStack)
	}

	for _, ext := range o.ExtendedErrors {
		switch ext {
		case ExtHint, ExtDetail, ExtErrcode:
		default:
			return errors.Errorf("unknown extended error field %q", ext)
		}
	}

	switch o.LegacyRelations {
	case "", derive.LegacyOmit, derive.LegacyDeprecated, derive.LegacyOnly:
	default:
		return errors.Errorf("legacyRelations must be omit, deprecated or only, got %q", o.LegacyRelations)
	}
	return nil
}

func (o Options) deriveOptions() derive.Options {
	plugins := append([]derive.Plugin(nil), o.Plugins...)
	return derive.Options{
		SetofFunctionsContainNulls: o.SetofFunctionsContainNulls,
		IgnorePrivileges:           o.IgnorePrivileges,
		LegacyRelations:            o.LegacyRelations,
		Plugins:                    plugins,
	}
}
