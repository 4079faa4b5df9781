// Package metadata implements the community/user plugin metadata model:
// PluginMetadata and its constituent File/Message/Tag/PluginCleaningData
// types, plus the MetadataList and Masterlist that hold collections of
// them (spec §3/§4.4/§4.5).
package metadata

import "strings"

// regexMetaChars is the set of characters whose presence in a name marks
// it as a regex pattern rather than a literal plugin filename (spec
// §4.4: "Regex detection: a metadata entry is a regex iff its name
// contains any of `:*?|`").
const regexMetaChars = `:*?|`

// IsRegexName reports whether name should be treated as a regex pattern.
func IsRegexName(name string) bool {
	return strings.ContainsAny(name, regexMetaChars)
}

// Priority is a signed clamp-to-[-127,127] integer paired with an
// explicit/implicit flag. The zero value, (0, false), is the implicit
// default; an explicit (0, true) is distinct from it for merge purposes
// (spec §3 "Priority").
type Priority struct {
	Value    int8
	Explicit bool
}

// Clamp returns p with Value clamped to [-127, 127].
func (p Priority) Clamp() Priority {
	if p.Value < -127 {
		p.Value = -127
	}
	if p.Value > 127 {
		p.Value = 127
	}
	return p
}

// File is a named file reference with an optional display override and
// condition, used for load_after/requirements/incompatibilities entries
// (spec §3 "File reference").
type File struct {
	Name        string
	DisplayName string
	Condition   string
}

// IsRegex reports whether Name should be treated as a regex pattern.
func (f File) IsRegex() bool { return IsRegexName(f.Name) }

// sameName reports case-insensitive equality of two File names, the
// equality notion used when set-unioning File slices (spec §4.4).
func sameName(a, b string) bool { return strings.EqualFold(a, b) }

// MessageType is the severity of a Message.
type MessageType string

const (
	MessageSay   MessageType = "say"
	MessageWarn  MessageType = "warn"
	MessageError MessageType = "error"
)

// MessageContent is one localisation of a Message's text, with
// substitution placeholders ("%1%"..."%N%") already expanded against a
// parallel subs[] list at parse time (spec §3 "Message").
type MessageContent struct {
	Text     string
	Language string
}

// EnglishLanguage is the fallback language a multi-entry Message's
// content list must include at least one of.
const EnglishLanguage = "en"

// Message is a condition-gated, possibly multi-language notice attached
// to a plugin or emitted globally.
type Message struct {
	Type      MessageType
	Content   []MessageContent
	Condition string
}

// Tag is a Bash Tag suggestion; removal tags are written with a leading
// "-" in the scalar YAML form (spec §3 "Tag").
type Tag struct {
	Name       string
	IsAddition bool
	Condition  string
}

// PluginCleaningData is a dirty-edit fingerprint: cleanliness is
// established when CRC equals the plugin's real CRC (spec §3
// "PluginCleaningData").
type PluginCleaningData struct {
	CRC             uint32
	UtilityName     string
	InfoMessages    []MessageContent
	ITMCount        int
	DeletedRefCount int
	DeletedNavCount int
}

// Location is a URL+name pointer to where a plugin can be obtained.
type Location struct {
	URL  string `yaml:"link"`
	Name string `yaml:"name,omitempty"`
}

// PluginMetadata holds the community/user constraints about a single
// plugin, keyed by either an exact filename or a regex over filenames
// (spec §3 "PluginMetadata").
type PluginMetadata struct {
	// Name is the literal filename or the regex source this entry
	// applies to.
	Name              string
	Enabled           bool
	LocalPriority     Priority
	GlobalPriority    Priority
	LoadAfter         []File
	Requirements      []File
	Incompatibilities []File
	Messages          []Message
	Tags              []Tag
	DirtyInfo         []PluginCleaningData
	CleanInfo         []PluginCleaningData
	Locations         []Location
}

// IsRegex reports whether Name should be treated as a regex pattern.
func (pm *PluginMetadata) IsRegex() bool { return IsRegexName(pm.Name) }

// HasNameOnly reports whether every field except Name is empty/default,
// i.e. the entry carries no actual metadata (spec §3 "HasNameOnly()").
func (pm *PluginMetadata) HasNameOnly() bool {
	return !pm.Enabled &&
		pm.LocalPriority == (Priority{}) &&
		pm.GlobalPriority == (Priority{}) &&
		len(pm.LoadAfter) == 0 &&
		len(pm.Requirements) == 0 &&
		len(pm.Incompatibilities) == 0 &&
		len(pm.Messages) == 0 &&
		len(pm.Tags) == 0 &&
		len(pm.DirtyInfo) == 0 &&
		len(pm.CleanInfo) == 0 &&
		len(pm.Locations) == 0
}
