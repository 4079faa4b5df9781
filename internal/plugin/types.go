// Package plugin parses Bethesda plugin files (.esp/.esm/.esl) and holds
// the parsed, cached view of the plugins installed in a game's data
// directory.
package plugin

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// PluginType represents the type of plugin file based on flags.
type PluginType string

const (
	// PluginTypeESM is an Elder Scrolls Master file.
	PluginTypeESM PluginType = "ESM"
	// PluginTypeESP is an Elder Scrolls Plugin file.
	PluginTypeESP PluginType = "ESP"
	// PluginTypeESL is an Elder Scrolls Light plugin file.
	PluginTypeESL PluginType = "ESL"
)

// PluginFlags contains the parsed flags from the plugin header.
type PluginFlags struct {
	// IsMaster indicates the plugin has the ESM flag set.
	IsMaster bool `json:"isMaster"`
	// IsLight indicates the plugin has the ESL/Light flag set.
	IsLight bool `json:"isLight"`
	// IsLocalized indicates the plugin uses localized strings.
	IsLocalized bool `json:"isLocalized"`
}

// Master represents a master file dependency, in declared order.
type Master struct {
	// Filename is the name of the master file.
	Filename string `json:"filename"`
	// Size is the recorded size of the master file (may be 0).
	Size uint64 `json:"size,omitempty"`
}

// FormID is an opaque 32-bit record identifier. The top byte identifies
// the owning master slot at the time the plugin was authored.
type FormID uint32

// Plugin is the fully parsed, cached view of a single installed plugin.
// Instances are treated as immutable once inserted into a Cache.
type Plugin struct {
	// Name is the logical plugin filename, with any ".ghost" suffix
	// stripped. Comparisons against Name must case-fold (see FoldName).
	Name string
	// IsGhosted records whether the on-disk file carried a ".ghost" suffix.
	IsGhosted bool
	// Header carries the parsed header/subrecord data.
	Header PluginHeader
	// RecordIDs is the set of form IDs found in the plugin body.
	RecordIDs map[FormID]struct{}
	// OverrideRecordIDs is the subset of RecordIDs whose origin plugin
	// (per the top byte of the form ID, resolved against Header.Masters)
	// is not this plugin itself.
	OverrideRecordIDs map[FormID]struct{}
	// BashTags is the list of Bash Tag suggestions embedded in the
	// description as a "{{BASH:Tag1,Tag2}}" marker.
	BashTags []string
	// CRC32 is the CRC-32 (IEEE) of the plugin file on disk. Zero for
	// header-only loads.
	CRC32 uint32
	// FileSize is the size in bytes of the on-disk file.
	FileSize int64
	// LoadsArchive is true when a sibling resource archive (.bsa/.ba2)
	// with the matching basename exists in the data directory.
	LoadsArchive bool
	// IsActive records whether the load-order collaborator reports this
	// plugin as currently active in the game's load order.
	IsActive bool
	// HeaderOnly records whether the body was skipped during parsing.
	HeaderOnly bool
}

// IsMaster reports whether the plugin carries the master (ESM) flag.
func (p *Plugin) IsMaster() bool {
	return p.Header.Flags.IsMaster
}

// OverrideCount returns the number of override records the plugin carries.
func (p *Plugin) OverrideCount() int {
	return len(p.OverrideRecordIDs)
}

// PluginHeader contains the parsed header information from a plugin file.
type PluginHeader struct {
	// Filename is the original filename of the plugin (logical name).
	Filename string `json:"filename"`
	// Type is the determined plugin type based on flags and extension.
	Type PluginType `json:"type"`
	// Flags contains the parsed plugin flags.
	Flags PluginFlags `json:"flags"`
	// Author is the author string from the CNAM subrecord.
	Author string `json:"author,omitempty"`
	// Description is the description from the SNAM subrecord.
	Description string `json:"description,omitempty"`
	// Masters is the list of master file dependencies in load order.
	Masters []Master `json:"masters"`
	// HeaderVersion is the floating point version from the HEDR subrecord.
	HeaderVersion float32 `json:"headerVersion"`
	// FormVersion is the form version from the record header.
	FormVersion uint16 `json:"formVersion"`
	// NumRecords is the number of records in the file (if available).
	NumRecords uint32 `json:"numRecords,omitempty"`
}

// Record flag constants for the TES4 record.
const (
	// FlagMaster indicates the plugin is a master file (.esm behavior).
	FlagMaster uint32 = 0x00000001
	// FlagLocalized indicates the plugin uses localized strings.
	FlagLocalized uint32 = 0x00000080
	// FlagCompressed indicates a record's data is zlib-compressed.
	FlagCompressed uint32 = 0x00040000
	// FlagLight indicates the plugin is a light plugin (.esl behavior).
	// This flag was added in Skyrim Special Edition.
	FlagLight uint32 = 0x00000200
)

// Common TES4/5 record type signatures.
const (
	// SignatureTES4 is the header record signature for all plugin files.
	SignatureTES4 = "TES4"
	// SignatureGRUP is the group pseudo-record signature.
	SignatureGRUP = "GRUP"
	// SignatureHEDR is the header data subrecord.
	SignatureHEDR = "HEDR"
	// SignatureCNAM is the author subrecord.
	SignatureCNAM = "CNAM"
	// SignatureSNAM is the description subrecord.
	SignatureSNAM = "SNAM"
	// SignatureINTV is the internal version subrecord.
	SignatureINTV = "INTV"
	// SignatureMAST is the master file subrecord.
	SignatureMAST = "MAST"
	// SignatureDATA is the master file size subrecord.
	SignatureDATA = "DATA"
	// SignatureONAM is the overridden forms subrecord.
	SignatureONAM = "ONAM"
)

// foldCaser performs Unicode simple case-folding, used throughout this
// module (and by callers comparing plugin names) instead of strings.ToLower
// so that filenames agree across runtimes that disagree on simple
// lower-casing of non-ASCII runes. See spec §9 "Plugin name equality".
var foldCaser = cases.Fold()

// FoldName canonicalises a plugin filename for comparison/hashing purposes.
func FoldName(name string) string {
	return foldCaser.String(name)
}

// bashTagMarker matches the "{{BASH:Tag1,Tag2}}" marker embedded in a
// plugin's free-text description.
var bashTagMarker = regexp.MustCompile(`\{\{BASH:([^}]*)\}\}`)

// ExtractBashTags pulls the comma-separated tag list out of a "{{BASH:...}}"
// marker in a plugin description, returning nil if no marker is present.
func ExtractBashTags(description string) []string {
	m := bashTagMarker.FindStringSubmatch(description)
	if m == nil {
		return nil
	}
	var tags []string
	for _, raw := range strings.Split(m[1], ",") {
		tag := strings.TrimSpace(raw)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
