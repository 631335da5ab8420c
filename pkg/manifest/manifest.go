// Package manifest loads reconciliation requests from files and CLI pairs.
//
// A manifest is a YAML (or JSON) mapping from resource name to baseline
// version. The mapping may sit at the top level or under a "resources" key:
//
//	resources:
//	  en_tn: v86
//	  en_ult: v48
//
// Key order is preserved so the request follows the file.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/versync/pkg/errors"
	"github.com/agentstation/versync/pkg/reconcile"
)

const resourcesKey = "resources"

// Load reads and parses the manifest at path.
func Load(path string) (reconcile.Request, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return reconcile.Request{}, errors.WrapIO("read", path, err)
	}
	req, err := Parse(data)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return reconcile.Request{}, err
	}
	return req, nil
}

// Parse decodes a manifest document.
func Parse(data []byte) (reconcile.Request, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return reconcile.Request{}, errors.NewValidationError("manifest", nil, "manifest is empty")
	}

	var root yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(data, &root, yaml.UseOrderedMap()); err != nil {
		return reconcile.Request{}, errors.WrapParse("yaml", "", err)
	}

	items := root
	if len(root) == 1 && fmt.Sprint(root[0].Key) == resourcesKey {
		nested, ok := root[0].Value.(yaml.MapSlice)
		if !ok {
			return reconcile.Request{}, errors.NewValidationError(resourcesKey, root[0].Value, "resources must be a mapping")
		}
		items = nested
	}

	var req reconcile.Request
	for _, item := range items {
		name := strings.TrimSpace(fmt.Sprint(item.Key))
		version, ok := item.Value.(string)
		if !ok {
			return reconcile.Request{}, errors.NewValidationError(name, item.Value,
				"version must be a string such as v1.2 (quote numeric versions)")
		}
		req.Set(name, strings.TrimSpace(version))
	}

	if err := req.Validate(); err != nil {
		return reconcile.Request{}, err
	}
	return req, nil
}

// ParsePairs builds a request from name=version arguments.
func ParsePairs(pairs []string) (reconcile.Request, error) {
	var req reconcile.Request
	if err := Merge(&req, pairs); err != nil {
		return reconcile.Request{}, err
	}
	if err := req.Validate(); err != nil {
		return reconcile.Request{}, err
	}
	return req, nil
}

// Merge adds name=version pairs to req, overriding existing versions.
func Merge(req *reconcile.Request, pairs []string) error {
	for _, pair := range pairs {
		name, version, err := SplitPair(pair)
		if err != nil {
			return err
		}
		req.Set(name, version)
	}
	return nil
}

// SplitPair splits "name=version".
func SplitPair(pair string) (string, string, error) {
	name, version, ok := strings.Cut(pair, "=")
	name, version = strings.TrimSpace(name), strings.TrimSpace(version)
	if !ok || name == "" || version == "" {
		return "", "", errors.NewValidationError("resource", pair, "expected name=version")
	}
	return name, version, nil
}

// Marshal renders req as an ordered manifest.
func Marshal(req reconcile.Request) ([]byte, error) {
	items := make(yaml.MapSlice, 0, req.Len())
	for _, e := range req.Entries() {
		items = append(items, yaml.MapItem{Key: e.Resource, Value: e.Version})
	}
	return yaml.Marshal(yaml.MapSlice{{Key: resourcesKey, Value: items}})
}
