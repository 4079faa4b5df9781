package metadata

// Merge produces the union of pm and other per spec §4.4's field-by-field
// table, returning a new PluginMetadata. pm and other are left
// unmodified. The result's Name is pm's (merge is only ever called on
// same-named/matching entries).
func (pm *PluginMetadata) Merge(other *PluginMetadata) *PluginMetadata {
	result := &PluginMetadata{Name: pm.Name}

	result.Enabled = pm.Enabled
	if !other.HasNameOnly() {
		result.Enabled = other.Enabled
	}

	result.LocalPriority = pm.LocalPriority
	if other.LocalPriority.Explicit {
		result.LocalPriority = other.LocalPriority
	}
	result.GlobalPriority = pm.GlobalPriority
	if other.GlobalPriority.Explicit {
		result.GlobalPriority = other.GlobalPriority
	}

	result.LoadAfter = unionFiles(pm.LoadAfter, other.LoadAfter)
	result.Requirements = unionFiles(pm.Requirements, other.Requirements)
	result.Incompatibilities = unionFiles(pm.Incompatibilities, other.Incompatibilities)
	result.Tags = unionTags(pm.Tags, other.Tags)
	result.DirtyInfo = unionCleaningData(pm.DirtyInfo, other.DirtyInfo)
	result.CleanInfo = unionCleaningData(pm.CleanInfo, other.CleanInfo)
	result.Locations = unionLocations(pm.Locations, other.Locations)

	result.Messages = append(append([]Message{}, pm.Messages...), other.Messages...)

	return result
}

func unionFiles(a, b []File) []File {
	result := append([]File{}, a...)
	for _, f := range b {
		found := false
		for _, existing := range result {
			if sameName(existing.Name, f.Name) {
				found = true
				break
			}
		}
		if !found {
			result = append(result, f)
		}
	}
	return result
}

func unionTags(a, b []Tag) []Tag {
	result := append([]Tag{}, a...)
	for _, t := range b {
		found := false
		for _, existing := range result {
			if existing == t {
				found = true
				break
			}
		}
		if !found {
			result = append(result, t)
		}
	}
	return result
}

func unionCleaningData(a, b []PluginCleaningData) []PluginCleaningData {
	result := append([]PluginCleaningData{}, a...)
	for _, c := range b {
		found := false
		for _, existing := range result {
			if cleaningDataEqual(existing, c) {
				found = true
				break
			}
		}
		if !found {
			result = append(result, c)
		}
	}
	return result
}

func cleaningDataEqual(a, b PluginCleaningData) bool {
	if a.CRC != b.CRC || a.UtilityName != b.UtilityName ||
		a.ITMCount != b.ITMCount || a.DeletedRefCount != b.DeletedRefCount ||
		a.DeletedNavCount != b.DeletedNavCount || len(a.InfoMessages) != len(b.InfoMessages) {
		return false
	}
	for i := range a.InfoMessages {
		if a.InfoMessages[i] != b.InfoMessages[i] {
			return false
		}
	}
	return true
}

func unionLocations(a, b []Location) []Location {
	result := append([]Location{}, a...)
	for _, l := range b {
		found := false
		for _, existing := range result {
			if existing == l {
				found = true
				break
			}
		}
		if !found {
			result = append(result, l)
		}
	}
	return result
}

// Diff returns a new PluginMetadata containing the symmetric per-field
// differences between pm and other: entries present in one but not the
// other (spec §4.4 "diff(other)").
func (pm *PluginMetadata) Diff(other *PluginMetadata) *PluginMetadata {
	result := &PluginMetadata{Name: pm.Name}
	result.LoadAfter = symmetricDiffFiles(pm.LoadAfter, other.LoadAfter)
	result.Requirements = symmetricDiffFiles(pm.Requirements, other.Requirements)
	result.Incompatibilities = symmetricDiffFiles(pm.Incompatibilities, other.Incompatibilities)
	result.Tags = symmetricDiffTags(pm.Tags, other.Tags)
	result.DirtyInfo = symmetricDiffCleaning(pm.DirtyInfo, other.DirtyInfo)
	result.CleanInfo = symmetricDiffCleaning(pm.CleanInfo, other.CleanInfo)
	result.Locations = symmetricDiffLocations(pm.Locations, other.Locations)
	return result
}

// NewMetadataVsOther returns a PluginMetadata containing pm's entries
// that are not also present in other: a non-symmetric difference (spec
// §4.4 "new_metadata_vs(other)").
func (pm *PluginMetadata) NewMetadataVsOther(other *PluginMetadata) *PluginMetadata {
	result := &PluginMetadata{Name: pm.Name}
	result.LoadAfter = subtractFiles(pm.LoadAfter, other.LoadAfter)
	result.Requirements = subtractFiles(pm.Requirements, other.Requirements)
	result.Incompatibilities = subtractFiles(pm.Incompatibilities, other.Incompatibilities)
	result.Tags = subtractTags(pm.Tags, other.Tags)
	result.DirtyInfo = subtractCleaning(pm.DirtyInfo, other.DirtyInfo)
	result.CleanInfo = subtractCleaning(pm.CleanInfo, other.CleanInfo)
	result.Locations = subtractLocations(pm.Locations, other.Locations)
	return result
}

func subtractFiles(a, b []File) []File {
	var result []File
	for _, f := range a {
		in := false
		for _, g := range b {
			if sameName(f.Name, g.Name) {
				in = true
				break
			}
		}
		if !in {
			result = append(result, f)
		}
	}
	return result
}

func symmetricDiffFiles(a, b []File) []File {
	return append(subtractFiles(a, b), subtractFiles(b, a)...)
}

func subtractTags(a, b []Tag) []Tag {
	var result []Tag
	for _, t := range a {
		in := false
		for _, u := range b {
			if t == u {
				in = true
				break
			}
		}
		if !in {
			result = append(result, t)
		}
	}
	return result
}

func symmetricDiffTags(a, b []Tag) []Tag {
	return append(subtractTags(a, b), subtractTags(b, a)...)
}

func subtractCleaning(a, b []PluginCleaningData) []PluginCleaningData {
	var result []PluginCleaningData
	for _, c := range a {
		in := false
		for _, d := range b {
			if cleaningDataEqual(c, d) {
				in = true
				break
			}
		}
		if !in {
			result = append(result, c)
		}
	}
	return result
}

func symmetricDiffCleaning(a, b []PluginCleaningData) []PluginCleaningData {
	return append(subtractCleaning(a, b), subtractCleaning(b, a)...)
}

func subtractLocations(a, b []Location) []Location {
	var result []Location
	for _, l := range a {
		in := false
		for _, m := range b {
			if l == m {
				in = true
				break
			}
		}
		if !in {
			result = append(result, l)
		}
	}
	return result
}

func symmetricDiffLocations(a, b []Location) []Location {
	return append(subtractLocations(a, b), subtractLocations(b, a)...)
}
