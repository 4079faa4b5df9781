package metadata

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrGitState is returned when the masterlist-update collaborator cannot
// reach a parseable revision after stepping back repeatedly.
var ErrGitState = fmt.Errorf("masterlist repository state error")

// maxRollbackAttempts bounds the revision-rollback retry loop in Update
// so a repository with no earlier parseable commit fails fast instead of
// looping forever.
const maxRollbackAttempts = 50

// RevisionInfo is the version-control collaborator's report of a
// masterlist's current checked-out revision (spec §3 "Masterlist").
type RevisionInfo struct {
	ID         string
	Date       string
	IsModified bool
}

// MasterlistUpdater is the external version-control collaborator
// consumed by Masterlist.Update (spec §6 "Masterlist updater"). StepBack
// is a pragmatic addition beyond §6's three listed methods: §7.3
// explicitly specifies a step-back-one-commit-and-retry rollback
// sequence, which requires some way to drive the rollback; see
// DESIGN.md.
type MasterlistUpdater interface {
	// Update fetches path from url/branch, reporting true iff the
	// checked-out content changed.
	Update(path, url, branch string) (changed bool, err error)
	// GetInfo reports the revision currently checked out at path.
	GetInfo(path string, short bool) (RevisionInfo, error)
	// IsRepository reports whether path is a version-controlled
	// checkout the updater recognises.
	IsRepository(path string) bool
	// StepBack rolls the checkout at path back by one revision.
	StepBack(path string) error
}

// Masterlist is a MetadataList plus revision metadata supplied by the
// external version-control collaborator (spec §3 "Masterlist").
type Masterlist struct {
	*MetadataList
	RevisionID   string
	RevisionDate string
	IsModified   bool
}

// NewMasterlist creates an empty Masterlist.
func NewMasterlist() *Masterlist {
	return &Masterlist{MetadataList: NewMetadataList()}
}

// Update fetches the latest masterlist via updater, then loads it,
// stepping back one revision at a time and retrying the parse on
// failure (spec §7.3). read re-reads the checked-out file content after
// each step; it is injected so this package never touches a VCS
// directly. On success, an error-type Message explaining the rollback is
// returned if any rollback occurred.
func (m *Masterlist) Update(updater MasterlistUpdater, path, url, branch string, read func(path string) ([]byte, error)) ([]Message, error) {
	if _, err := updater.Update(path, url, branch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGitState, err)
	}

	var warnings []Message
	var lastParseErr error

	for attempt := 0; ; attempt++ {
		data, err := read(path)
		if err != nil {
			return warnings, fmt.Errorf("%w: %v", ErrFileAccess, err)
		}

		parseErr := m.MetadataList.Load(data)
		if parseErr == nil {
			if lastParseErr != nil {
				warnings = append(warnings, Message{
					Type: MessageError,
					Content: []MessageContent{{
						Text:     fmt.Sprintf("masterlist revision at the fetched tip failed to parse (%v); rolled back to a working revision", lastParseErr),
						Language: EnglishLanguage,
					}},
				})
			}
			break
		}

		lastParseErr = parseErr
		if attempt >= maxRollbackAttempts {
			return warnings, fmt.Errorf("%w: no parseable revision found within %d rollback attempts: %v", ErrGitState, maxRollbackAttempts, parseErr)
		}
		if err := updater.StepBack(path); err != nil {
			return warnings, fmt.Errorf("%w: rollback failed: %v", ErrGitState, err)
		}
	}

	info, err := updater.GetInfo(path, true)
	if err != nil {
		return warnings, fmt.Errorf("%w: %v", ErrGitState, err)
	}
	if info.ID == "" {
		// Ad hoc/local masterlists with no VCS behind them still need a
		// stable-for-the-process revision identifier.
		info.ID = uuid.NewString()
	}
	m.RevisionID = info.ID
	m.RevisionDate = info.Date
	m.IsModified = info.IsModified

	return warnings, nil
}

// marshalDoc renders a docYAML with a fixed two-space indent (spec §6
// "Behaviour is bit-exact on serialised file output: ... indentation is
// two spaces").
func marshalDoc(doc docYAML) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// checkOverwrite enforces the overwrite=false / file-exists refusal rule
// shared by WriteUserMetadata and WriteMinimalList.
func checkOverwrite(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s already exists and overwrite is false", ErrFileAccess, path)
	}
	return nil
}

// WriteUserMetadata emits only list's own entries (never masterlist-
// derived; the caller is responsible for passing the userlist, not a
// Masterlist) to path (spec §4.5 "write_user_metadata").
func WriteUserMetadata(list *MetadataList, path string, overwrite bool) error {
	if err := checkOverwrite(path, overwrite); err != nil {
		return err
	}

	doc := docYAML{BashTags: list.KnownBashTags, Globals: list.GlobalMessages}
	for _, name := range list.sortedExactNames() {
		doc.Plugins = append(doc.Plugins, *list.ExactPlugins[strings.ToLower(name)])
	}
	for _, pm := range list.RegexPlugins {
		doc.Plugins = append(doc.Plugins, *pm)
	}

	data, err := marshalDoc(doc)
	if err != nil {
		return fmt.Errorf("marshal user metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	return nil
}

// minimalPluginYAML is the trimmed stanza shape for WriteMinimalList
// (spec §4.5: "containing only {name, tag[], dirty[]}").
type minimalPluginYAML struct {
	Name  string               `yaml:"name"`
	Tags  []Tag                `yaml:"tag,omitempty"`
	Dirty []PluginCleaningData `yaml:"dirty,omitempty"`
}

// WriteMinimalList emits one stanza per entry in list whose tags or
// dirty info are non-empty, containing only {name, tag[], dirty[]}
// (spec §4.5 "write_minimal_list", §8 testable property 9: "contains
// exactly those plugins... whose merged metadata has non-empty tags or
// dirty_info, and no other fields").
func WriteMinimalList(list *MetadataList, path string, overwrite bool) error {
	if err := checkOverwrite(path, overwrite); err != nil {
		return err
	}

	var plugins []minimalPluginYAML
	for _, name := range list.sortedExactNames() {
		pm := list.ExactPlugins[strings.ToLower(name)]
		if len(pm.Tags) == 0 && len(pm.DirtyInfo) == 0 {
			continue
		}
		plugins = append(plugins, minimalPluginYAML{Name: pm.Name, Tags: pm.Tags, Dirty: pm.DirtyInfo})
	}
	for _, pm := range list.RegexPlugins {
		if len(pm.Tags) == 0 && len(pm.DirtyInfo) == 0 {
			continue
		}
		plugins = append(plugins, minimalPluginYAML{Name: pm.Name, Tags: pm.Tags, Dirty: pm.DirtyInfo})
	}

	doc := struct {
		Plugins []minimalPluginYAML `yaml:"plugins"`
	}{plugins}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("marshal minimal list: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshal minimal list: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	return nil
}
