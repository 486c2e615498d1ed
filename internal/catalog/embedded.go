package catalog

import (
	"sync"

	_ "embed"
)

//go:embed traits.yaml
var traitsPayload []byte

//go:embed default_catalog.yaml
var defaultCatalogPayload []byte

var (
	traitsOnce sync.Once
	traitsData map[string]TraitSpec
	traitsErr  error

	defaultOnce sync.Once
	defaultData *Catalog
	defaultErr  error
)

// BuiltinTraits exposes the shared defensive trait table keyed by part name.
func BuiltinTraits() map[string]TraitSpec {
	traitsOnce.Do(func() {
		//1.- Parse the embedded YAML payload once so concurrent callers share the same data.
		var doc Document
		doc, traitsErr = Parse(traitsPayload, FormatYAML)
		traitsData = doc.Traits
	})
	//2.- A broken embedded table is a build defect, not a runtime condition.
	if traitsErr != nil {
		panic(traitsErr)
	}
	//3.- Return a copy so callers cannot mutate the cached table.
	out := make(map[string]TraitSpec, len(traitsData))
	for name, spec := range traitsData {
		out[name] = spec
	}
	return out
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		var doc Document
		doc, defaultErr = Parse(defaultCatalogPayload, FormatYAML)
		if defaultErr != nil {
			return
		}
		if len(doc.Traits) == 0 {
			doc.Traits = BuiltinTraits()
		}
		defaultData, defaultErr = New(doc)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultData
}
