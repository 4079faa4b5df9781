package metadata

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrParse is returned for any malformed metadata-list document: a
// duplicate exact-name entry, an uncompilable regex, or dirty/clean info
// attached to a regex entry (spec §4.5 "Loading... Parsing is strict").
var ErrParse = fmt.Errorf("metadata list parse error")

// ErrFileAccess is returned when a list file cannot be read, or a write
// would silently overwrite an existing file without permission.
var ErrFileAccess = fmt.Errorf("file access error")

// preludeRef matches a "{{name}}" substitution reference.
var preludeRef = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// docYAML is the top-level shape of a metadata-list file (spec §6).
type docYAML struct {
	BashTags []string         `yaml:"bash_tags"`
	Globals  []Message        `yaml:"globals"`
	Plugins  []PluginMetadata `yaml:"plugins"`
	Prelude  map[string]string `yaml:"prelude"`
}

// MetadataList is an in-memory collection of plugin metadata entries
// (spec §3 "MetadataList").
type MetadataList struct {
	ExactPlugins  map[string]*PluginMetadata // keyed by lowercased name
	RegexPlugins  []*PluginMetadata          // in load order
	regexCache    map[string]*regexp.Regexp
	GlobalMessages []Message
	KnownBashTags []string
}

// NewMetadataList creates an empty MetadataList.
func NewMetadataList() *MetadataList {
	return &MetadataList{
		ExactPlugins: make(map[string]*PluginMetadata),
		regexCache:   make(map[string]*regexp.Regexp),
	}
}

// Load parses a YAML-superset document (spec §4.5/§6), expanding
// "{{name}}" prelude references textually before the structural parse.
func (l *MetadataList) Load(data []byte) error {
	expanded, err := expandPrelude(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	var doc docYAML
	if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	exact := make(map[string]*PluginMetadata)
	var regexEntries []*PluginMetadata
	regexCache := make(map[string]*regexp.Regexp)

	for i := range doc.Plugins {
		pm := doc.Plugins[i]
		if pm.IsRegex() {
			if len(pm.DirtyInfo) > 0 || len(pm.CleanInfo) > 0 {
				return fmt.Errorf("%w: regex entry %q may not carry dirty/clean info", ErrParse, pm.Name)
			}
			re, err := regexp.Compile(pm.Name)
			if err != nil {
				return fmt.Errorf("%w: invalid regex %q: %v", ErrParse, pm.Name, err)
			}
			regexCache[pm.Name] = re
			entry := pm
			regexEntries = append(regexEntries, &entry)
			continue
		}
		key := strings.ToLower(pm.Name)
		if _, exists := exact[key]; exists {
			return fmt.Errorf("%w: duplicate plugin entry %q", ErrParse, pm.Name)
		}
		entry := pm
		exact[key] = &entry
	}

	l.ExactPlugins = exact
	l.RegexPlugins = regexEntries
	l.regexCache = regexCache
	l.GlobalMessages = doc.Globals
	l.KnownBashTags = doc.BashTags
	return nil
}

// expandPrelude extracts the top-level "prelude" mapping and textually
// substitutes "{{name}}" references to it throughout the rest of the
// document, before the structural YAML parse runs. This mirrors the
// spec's "the loader expands references before parse" instruction
// without requiring a templating engine dependency the rest of the pack
// never uses.
func expandPrelude(data []byte) ([]byte, error) {
	var probe struct {
		Prelude map[string]string `yaml:"prelude"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if len(probe.Prelude) == 0 {
		return data, nil
	}

	text := string(data)
	replaced := preludeRef.ReplaceAllStringFunc(text, func(m string) string {
		sub := preludeRef.FindStringSubmatch(m)
		if sub == nil {
			return m
		}
		if v, ok := probe.Prelude[sub[1]]; ok {
			return v
		}
		return m
	})
	return []byte(replaced), nil
}

// LoadFile reads and parses path.
func (l *MetadataList) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	return l.Load(data)
}

// FindPlugin returns the exact-name entry merged left-to-right with
// every regex entry whose pattern matches name (spec §4.5 "Lookup").
// The second return value is false if no entry (exact or regex) matched.
func (l *MetadataList) FindPlugin(name string) (*PluginMetadata, bool) {
	key := strings.ToLower(name)

	var result *PluginMetadata
	if exact, ok := l.ExactPlugins[key]; ok {
		merged := *exact
		result = &merged
	}

	found := result != nil
	for _, entry := range l.RegexPlugins {
		re := l.regexCache[entry.Name]
		if re == nil || !re.MatchString(name) {
			continue
		}
		found = true
		if result == nil {
			merged := *entry
			result = &merged
		} else {
			result = result.Merge(entry)
		}
	}

	if !found {
		return nil, false
	}
	return result, true
}

// AddPlugin inserts pm as a new entry. A regex name is appended to the
// regex entries, failing with ErrParse (and adding nothing) if it does
// not compile; an exact name fails if it already exists (spec §4.5
// "Mutation... add_plugin throws if the exact name already exists").
func (l *MetadataList) AddPlugin(pm *PluginMetadata) error {
	if pm.IsRegex() {
		re, err := regexp.Compile(pm.Name)
		if err != nil {
			return fmt.Errorf("%w: invalid regex %q: %v", ErrParse, pm.Name, err)
		}
		if l.regexCache == nil {
			l.regexCache = make(map[string]*regexp.Regexp)
		}
		l.regexCache[pm.Name] = re
		l.RegexPlugins = append(l.RegexPlugins, pm)
		return nil
	}

	key := strings.ToLower(pm.Name)
	if _, exists := l.ExactPlugins[key]; exists {
		return fmt.Errorf("%w: plugin %q already has an entry", ErrParse, pm.Name)
	}
	if l.ExactPlugins == nil {
		l.ExactPlugins = make(map[string]*PluginMetadata)
	}
	l.ExactPlugins[key] = pm
	return nil
}

// ErasePlugin removes the exact-name entry for name, reporting whether
// one existed.
func (l *MetadataList) ErasePlugin(name string) bool {
	key := strings.ToLower(name)
	if _, exists := l.ExactPlugins[key]; !exists {
		return false
	}
	delete(l.ExactPlugins, key)
	return true
}

// Clear empties the list entirely.
func (l *MetadataList) Clear() {
	l.ExactPlugins = make(map[string]*PluginMetadata)
	l.RegexPlugins = nil
	l.regexCache = make(map[string]*regexp.Regexp)
	l.GlobalMessages = nil
	l.KnownBashTags = nil
}

// sortedExactNames returns the exact-entry plugin names in fixed
// (lexicographic, case-insensitive) order, for deterministic
// serialisation.
func (l *MetadataList) sortedExactNames() []string {
	names := make([]string, 0, len(l.ExactPlugins))
	for _, pm := range l.ExactPlugins {
		names = append(names, pm.Name)
	}
	sort.Slice(names, func(i, j int) bool { return strings.ToLower(names[i]) < strings.ToLower(names[j]) })
	return names
}
