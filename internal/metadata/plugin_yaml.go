package metadata

import "gopkg.in/yaml.v3"

// pluginMetadataYAML mirrors the on-disk key names for a plugin stanza
// (spec §6: "Each plugin has keys {name, enabled?, priority?,
// global_priority?, after?, req?, inc?, msg?, tag?, dirty?, clean?,
// url?}"). Priority fields are pointers so presence vs. absence can be
// told apart: an absent key means (0, false) implicit; a present key,
// even "priority: 0", means explicit.
type pluginMetadataYAML struct {
	Name              string               `yaml:"name"`
	Enabled           *bool                `yaml:"enabled,omitempty"`
	Priority          *int8                `yaml:"priority,omitempty"`
	GlobalPriority    *int8                `yaml:"global_priority,omitempty"`
	After             []File               `yaml:"after,omitempty"`
	Requirements      []File               `yaml:"req,omitempty"`
	Incompatibilities []File               `yaml:"inc,omitempty"`
	Messages          []Message            `yaml:"msg,omitempty"`
	Tags              []Tag                `yaml:"tag,omitempty"`
	DirtyInfo         []PluginCleaningData `yaml:"dirty,omitempty"`
	CleanInfo         []PluginCleaningData `yaml:"clean,omitempty"`
	Locations         []Location           `yaml:"url,omitempty"`
}

// UnmarshalYAML decodes a single plugin stanza.
func (pm *PluginMetadata) UnmarshalYAML(node *yaml.Node) error {
	var raw pluginMetadataYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}

	pm.Name = raw.Name
	if raw.Enabled != nil {
		pm.Enabled = *raw.Enabled
	} else {
		// Absent "enabled" on a non-regex (userlist) entry defaults to
		// true; regex/masterlist entries never carry it meaningfully.
		pm.Enabled = true
	}
	if raw.Priority != nil {
		pm.LocalPriority = Priority{Value: *raw.Priority, Explicit: true}
	}
	if raw.GlobalPriority != nil {
		pm.GlobalPriority = Priority{Value: *raw.GlobalPriority, Explicit: true}
	}
	pm.LoadAfter = raw.After
	pm.Requirements = raw.Requirements
	pm.Incompatibilities = raw.Incompatibilities
	pm.Messages = raw.Messages
	pm.Tags = raw.Tags
	pm.DirtyInfo = raw.DirtyInfo
	pm.CleanInfo = raw.CleanInfo
	pm.Locations = raw.Locations
	return nil
}

// MarshalYAML emits a single plugin stanza, omitting defaulted fields.
func (pm PluginMetadata) MarshalYAML() (interface{}, error) {
	raw := pluginMetadataYAML{
		Name:              pm.Name,
		After:             pm.LoadAfter,
		Requirements:      pm.Requirements,
		Incompatibilities: pm.Incompatibilities,
		Messages:          pm.Messages,
		Tags:              pm.Tags,
		DirtyInfo:         pm.DirtyInfo,
		CleanInfo:         pm.CleanInfo,
		Locations:         pm.Locations,
	}
	if !pm.Enabled {
		f := false
		raw.Enabled = &f
	}
	if pm.LocalPriority.Explicit {
		v := pm.LocalPriority.Value
		raw.Priority = &v
	}
	if pm.GlobalPriority.Explicit {
		v := pm.GlobalPriority.Value
		raw.GlobalPriority = &v
	}
	return raw, nil
}
