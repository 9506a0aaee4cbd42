// Package manifest reads application manifests and extracts the runtime
// packages, their callables and the event relations declared on them.
//
// Declaration order is significant: it is the order subscriptions are
// reconciled in. The manifest is therefore walked as a yaml.Node tree rather
// than decoded into maps.
package manifest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-event-registrations/core"
)

const (
	DefaultFileName = "app.config.yaml"

	RelationEventListener = "event-listener-for"
	// RelationEventListenerAlias is accepted for manifests written against
	// older tooling.
	RelationEventListenerAlias = "listeners-for-events"
)

// Loader reads a manifest from disk. Fallback fills deployment target
// fields the manifest leaves empty.
type Loader struct {
	Path     string
	Fallback core.DeploymentTarget
}

func NewLoader(path string, fallback core.DeploymentTarget) *Loader {
	if strings.TrimSpace(path) == "" {
		path = DefaultFileName
	}
	return &Loader{Path: path, Fallback: fallback}
}

func (l *Loader) LoadManifest(context.Context) (core.Manifest, error) {
	raw, err := os.ReadFile(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Manifest{}, core.ConfigurationMissingError(
				fmt.Sprintf("manifest %s not found", l.Path),
				map[string]any{"path": l.Path},
			)
		}
		return core.Manifest{}, fmt.Errorf("manifest: read %s: %w", l.Path, err)
	}
	manifest, err := Parse(raw)
	if err != nil {
		return core.Manifest{}, fmt.Errorf("manifest: %s: %w", l.Path, err)
	}
	manifest.Target = mergeTarget(manifest.Target, l.Fallback)
	return manifest, nil
}

// Parse accepts application configs (application.runtimeManifest and
// extensions.*.runtimeManifest), bare runtime manifests (runtimeManifest or
// top level packages).
func Parse(raw []byte) (core.Manifest, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return core.Manifest{}, fmt.Errorf("parsing manifest: %w", err)
	}
	root := documentRoot(&document)
	if root == nil {
		return core.Manifest{}, nil
	}

	var manifest core.Manifest
	var parseErr error
	appendPackages := func(runtimeManifest *yaml.Node) {
		if parseErr != nil || runtimeManifest == nil {
			return
		}
		packages, err := parsePackages(child(runtimeManifest, "packages"))
		if err != nil {
			parseErr = err
			return
		}
		manifest.Packages = append(manifest.Packages, packages...)
	}

	if application := child(root, "application"); application != nil {
		appendPackages(child(application, "runtimeManifest"))
		manifest.Target = mergeTarget(manifest.Target, parseTarget(child(application, "ow")))
	}
	if extensions := child(root, "extensions"); extensions != nil {
		for _, pair := range pairs(extensions) {
			appendPackages(child(pair.value, "runtimeManifest"))
		}
	}
	appendPackages(child(root, "runtimeManifest"))
	if child(root, "packages") != nil {
		appendPackages(root)
	}
	manifest.Target = mergeTarget(manifest.Target, parseTarget(child(root, "ow")))

	if parseErr != nil {
		return core.Manifest{}, parseErr
	}
	return manifest, nil
}

func parsePackages(node *yaml.Node) ([]core.PackageDecl, error) {
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: packages must be a mapping", node.Line)
	}
	out := make([]core.PackageDecl, 0, len(node.Content)/2)
	for _, pair := range pairs(node) {
		actions, err := parseCallables(child(pair.value, "actions"))
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", pair.key, err)
		}
		sequences, err := parseCallables(child(pair.value, "sequences"))
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", pair.key, err)
		}
		out = append(out, core.PackageDecl{Name: pair.key, Actions: actions, Sequences: sequences})
	}
	return out, nil
}

func parseCallables(node *yaml.Node) ([]core.CallableDecl, error) {
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: callables must be a mapping", node.Line)
	}
	out := make([]core.CallableDecl, 0, len(node.Content)/2)
	for _, pair := range pairs(node) {
		relations := child(pair.value, "relations")
		listens, err := eventList(child(relations, RelationEventListener))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pair.key, err)
		}
		alias, err := eventList(child(relations, RelationEventListenerAlias))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pair.key, err)
		}
		out = append(out, core.CallableDecl{Name: pair.key, ListensFor: append(listens, alias...)})
	}
	return out, nil
}

// eventList accepts a sequence of event codes or a single scalar code.
func eventList(node *yaml.Node) ([]string, error) {
	if isNull(node) {
		return nil, nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if value := strings.TrimSpace(node.Value); value != "" {
			return []string{value}, nil
		}
		return nil, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: event codes must be strings", item.Line)
			}
			if value := strings.TrimSpace(item.Value); value != "" {
				out = append(out, value)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: event relation must be a list of event codes", node.Line)
	}
}

func parseTarget(node *yaml.Node) core.DeploymentTarget {
	if node == nil {
		return core.DeploymentTarget{}
	}
	return core.DeploymentTarget{
		Namespace:  scalar(child(node, "namespace")),
		APIHost:    scalar(child(node, "apihost")),
		APIVersion: scalar(child(node, "apiversion")),
	}
}

func mergeTarget(current, fallback core.DeploymentTarget) core.DeploymentTarget {
	if current.Namespace == "" {
		current.Namespace = fallback.Namespace
	}
	if current.APIHost == "" {
		current.APIHost = fallback.APIHost
	}
	if current.APIVersion == "" {
		current.APIVersion = fallback.APIVersion
	}
	return current
}

type pair struct {
	key   string
	value *yaml.Node
}

func documentRoot(document *yaml.Node) *yaml.Node {
	node := document
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	return node
}

func pairs(node *yaml.Node) []pair {
	node = resolveAlias(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]pair, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out = append(out, pair{key: node.Content[i].Value, value: resolveAlias(node.Content[i+1])})
	}
	return out
}

func child(node *yaml.Node, key string) *yaml.Node {
	for _, p := range pairs(node) {
		if p.key == key {
			return p.value
		}
	}
	return nil
}

// isNull reports a missing node or a key declared without a value.
func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	if node != nil && node.Kind == yaml.AliasNode {
		return node.Alias
	}
	return node
}

func scalar(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode {
		return ""
	}
	return strings.TrimSpace(node.Value)
}

var _ core.ManifestLoader = (*Loader)(nil)
