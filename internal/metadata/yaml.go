package metadata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML implements the scalar-or-mapping shorthand for File
// references (spec §6: "Files may be scalars (just a filename) or
// mappings with display?, condition?").
func (f *File) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&f.Name)
	}
	var raw struct {
		Name      string `yaml:"name"`
		Display   string `yaml:"display"`
		Condition string `yaml:"condition"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	f.Name = raw.Name
	f.DisplayName = raw.Display
	f.Condition = raw.Condition
	return nil
}

// MarshalYAML emits the scalar shorthand when there's no display name or
// condition, falling back to the mapping form otherwise.
func (f File) MarshalYAML() (interface{}, error) {
	if f.DisplayName == "" && f.Condition == "" {
		return f.Name, nil
	}
	return struct {
		Name      string `yaml:"name"`
		Display   string `yaml:"display,omitempty"`
		Condition string `yaml:"condition,omitempty"`
	}{f.Name, f.DisplayName, f.Condition}, nil
}

// UnmarshalYAML implements the Tag scalar shorthand: "Name" for an
// addition, "-Name" for a removal (spec §3 "Tag").
func (t *Tag) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		t.Name, t.IsAddition = parseTagScalar(s)
		return nil
	}
	var raw struct {
		Name      string `yaml:"name"`
		Condition string `yaml:"condition"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	t.Name, t.IsAddition = parseTagScalar(raw.Name)
	t.Condition = raw.Condition
	return nil
}

func parseTagScalar(s string) (name string, isAddition bool) {
	if strings.HasPrefix(s, "-") {
		return strings.TrimPrefix(s, "-"), false
	}
	return s, true
}

// MarshalYAML emits the scalar shorthand when there's no condition.
func (t Tag) MarshalYAML() (interface{}, error) {
	name := t.Name
	if !t.IsAddition {
		name = "-" + name
	}
	if t.Condition == "" {
		return name, nil
	}
	return struct {
		Name      string `yaml:"name"`
		Condition string `yaml:"condition,omitempty"`
	}{name, t.Condition}, nil
}

// placeholderPattern matches the "%1%".."%N%" substitution placeholders
// expanded from a message's parallel subs[] list at parse time (spec §3
// "Message").
var placeholderPattern = regexp.MustCompile(`%(\d+)%`)

func expandSubs(text string, subs []string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		idx, err := strconv.Atoi(placeholderPattern.FindStringSubmatch(m)[1])
		if err != nil || idx < 1 || idx > len(subs) {
			return m
		}
		return subs[idx-1]
	})
}

// UnmarshalYAML decodes a Message, which may carry its content as a
// single scalar string (treated as the English fallback) or a list of
// {text, lang} mappings, and expands %N% placeholders from subs[].
func (m *Message) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Type      string    `yaml:"type"`
		Content   yaml.Node `yaml:"content"`
		Condition string    `yaml:"condition"`
		Subs      []string  `yaml:"subs"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	switch raw.Content.Kind {
	case yaml.ScalarNode:
		var s string
		if err := raw.Content.Decode(&s); err != nil {
			return err
		}
		m.Content = []MessageContent{{Text: s, Language: EnglishLanguage}}
	case yaml.SequenceNode:
		var list []struct {
			Text string `yaml:"text"`
			Lang string `yaml:"lang"`
		}
		if err := raw.Content.Decode(&list); err != nil {
			return err
		}
		for _, c := range list {
			m.Content = append(m.Content, MessageContent{Text: c.Text, Language: c.Lang})
		}
	default:
		return fmt.Errorf("message content must be a string or a list of {text, lang} entries")
	}

	if len(m.Content) == 0 {
		return fmt.Errorf("message content must not be empty")
	}
	if len(m.Content) > 1 {
		hasEnglish := false
		for _, c := range m.Content {
			if c.Language == EnglishLanguage {
				hasEnglish = true
				break
			}
		}
		if !hasEnglish {
			return fmt.Errorf("a multi-language message must include an %q entry", EnglishLanguage)
		}
	}

	for i := range m.Content {
		m.Content[i].Text = expandSubs(m.Content[i].Text, raw.Subs)
	}

	if raw.Type == "" {
		raw.Type = string(MessageSay)
	}
	m.Type = MessageType(raw.Type)
	m.Condition = raw.Condition
	return nil
}

// MarshalYAML emits a single-language message as a bare scalar and a
// multi-language one as a list of {text, lang} mappings.
func (m Message) MarshalYAML() (interface{}, error) {
	type contentEntry struct {
		Text string `yaml:"text"`
		Lang string `yaml:"lang"`
	}

	var content interface{}
	if len(m.Content) == 1 {
		content = m.Content[0].Text
	} else {
		entries := make([]contentEntry, len(m.Content))
		for i, c := range m.Content {
			entries[i] = contentEntry{Text: c.Text, Lang: c.Language}
		}
		content = entries
	}

	return struct {
		Type      string      `yaml:"type"`
		Content   interface{} `yaml:"content"`
		Condition string      `yaml:"condition,omitempty"`
	}{string(m.Type), content, m.Condition}, nil
}

func formatCRCHex(crc uint32) string {
	return fmt.Sprintf("0x%08x", crc)
}

func parseCRCHex(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid crc hex literal %q: %w", s, err)
	}
	return uint32(v), nil
}

// UnmarshalYAML decodes a PluginCleaningData, reading its CRC as a
// "0x"-prefixed hex string (spec §6: "CRC values emit as 0x + lowercase
// hex").
func (c *PluginCleaningData) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		CRC     string   `yaml:"crc"`
		Utility string   `yaml:"util"`
		ITM     int      `yaml:"itm"`
		UDR     int      `yaml:"udr"`
		Nav     int      `yaml:"nav"`
		Info    []string `yaml:"info"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	crc, err := parseCRCHex(raw.CRC)
	if err != nil {
		return err
	}
	c.CRC = crc
	c.UtilityName = raw.Utility
	c.ITMCount = raw.ITM
	c.DeletedRefCount = raw.UDR
	c.DeletedNavCount = raw.Nav
	for _, s := range raw.Info {
		c.InfoMessages = append(c.InfoMessages, MessageContent{Text: s, Language: EnglishLanguage})
	}
	return nil
}

// MarshalYAML emits the CRC as lowercase "0x"-prefixed hex.
func (c PluginCleaningData) MarshalYAML() (interface{}, error) {
	raw := struct {
		CRC     string   `yaml:"crc"`
		Utility string   `yaml:"util,omitempty"`
		ITM     int      `yaml:"itm,omitempty"`
		UDR     int      `yaml:"udr,omitempty"`
		Nav     int      `yaml:"nav,omitempty"`
		Info    []string `yaml:"info,omitempty"`
	}{CRC: formatCRCHex(c.CRC), Utility: c.UtilityName, ITM: c.ITMCount, UDR: c.DeletedRefCount, Nav: c.DeletedNavCount}
	for _, m := range c.InfoMessages {
		raw.Info = append(raw.Info, m.Text)
	}
	return raw, nil
}
