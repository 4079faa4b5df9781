package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fakeUpdater struct {
	revisions  []string // content at each revision, most recent first
	cursor     int
	infos      []RevisionInfo
	updateErr  error
	stepBackErr error
}

func (f *fakeUpdater) Update(path, url, branch string) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	f.cursor = 0
	return f.write(path), nil
}

func (f *fakeUpdater) write(path string) bool {
	return os.WriteFile(path, []byte(f.revisions[f.cursor]), 0644) == nil
}

func (f *fakeUpdater) GetInfo(path string, short bool) (RevisionInfo, error) {
	if f.cursor >= len(f.infos) {
		return RevisionInfo{}, nil
	}
	return f.infos[f.cursor], nil
}

func (f *fakeUpdater) IsRepository(path string) bool { return true }

func (f *fakeUpdater) StepBack(path string) error {
	if f.stepBackErr != nil {
		return f.stepBackErr
	}
	if f.cursor >= len(f.revisions)-1 {
		return errors.New("no earlier revision")
	}
	f.cursor++
	f.write(path)
	return nil
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func TestMasterlist_Update_SucceedsOnFirstRevision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "masterlist.yaml")

	updater := &fakeUpdater{
		revisions: []string{"plugins:\n  - name: Foo.esp\n"},
		infos:     []RevisionInfo{{ID: "abc123", Date: "2026-01-01", IsModified: false}},
	}

	m := NewMasterlist()
	warnings, err := m.Update(updater, path, "https://example.test/masterlist.git", "main", readFile)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings on a clean first parse, got %+v", warnings)
	}
	if m.RevisionID != "abc123" {
		t.Errorf("expected revision id to be recorded, got %q", m.RevisionID)
	}
	if _, ok := m.ExactPlugins["foo.esp"]; !ok {
		t.Error("expected masterlist content to be loaded")
	}
}

func TestMasterlist_Update_RollsBackOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "masterlist.yaml")

	updater := &fakeUpdater{
		revisions: []string{
			"plugins:\n  - name: Foo.esp\n  - name: foo.esp\n", // duplicate -> parse error
			"plugins:\n  - name: Foo.esp\n",                    // valid
		},
		infos: []RevisionInfo{
			{ID: "bad-tip"},
			{ID: "good-rev"},
		},
	}

	m := NewMasterlist()
	warnings, err := m.Update(updater, path, "https://example.test/masterlist.git", "main", readFile)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one rollback warning, got %d: %+v", len(warnings), warnings)
	}
	if m.RevisionID != "good-rev" {
		t.Errorf("expected rolled-back revision id, got %q", m.RevisionID)
	}
}

func TestMasterlist_Update_FailsWhenNoRevisionParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "masterlist.yaml")

	updater := &fakeUpdater{
		revisions: []string{
			"plugins:\n  - name: Foo.esp\n  - name: foo.esp\n",
			"plugins:\n  - name: Bar.esp\n  - name: bar.esp\n",
		},
	}

	m := NewMasterlist()
	_, err := m.Update(updater, path, "https://example.test/masterlist.git", "main", readFile)
	if !errors.Is(err, ErrGitState) {
		t.Fatalf("expected ErrGitState when no revision parses, got %v", err)
	}
}

func TestWriteUserMetadata_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "userlist.yaml")
	if err := os.WriteFile(path, []byte("existing"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	l := NewMetadataList()
	err := WriteUserMetadata(l, path, false)
	if !errors.Is(err, ErrFileAccess) {
		t.Fatalf("expected ErrFileAccess when overwrite is false, got %v", err)
	}
}

func TestWriteUserMetadata_WritesOnlyListEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "userlist.yaml")

	l := NewMetadataList()
	_ = l.AddPlugin(&PluginMetadata{Name: "Foo.esp", Enabled: true, Tags: []Tag{{Name: "Relev", IsAddition: true}}})

	if err := WriteUserMetadata(l, path, false); err != nil {
		t.Fatalf("WriteUserMetadata: %v", err)
	}

	reloaded := NewMetadataList()
	if err := reloaded.LoadFile(path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := reloaded.ExactPlugins["foo.esp"]; !ok {
		t.Error("expected written file to round-trip the entry")
	}
}

func TestWriteMinimalList_EmitsOnlyNameTagDirty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.yaml")

	l := NewMetadataList()
	_ = l.AddPlugin(&PluginMetadata{
		Name:      "Foo.esp",
		Tags:      []Tag{{Name: "Relev", IsAddition: true}},
		DirtyInfo: []PluginCleaningData{{CRC: 0x1, UtilityName: "xEdit"}},
		Requirements: []File{{Name: "Master.esm"}},
	})

	if err := WriteMinimalList(l, path, false); err != nil {
		t.Fatalf("WriteMinimalList: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if containsKey(data, "req") {
		t.Error("minimal list must not include requirement entries")
	}
	if !containsKey(data, "name") || !containsKey(data, "tag") || !containsKey(data, "dirty") {
		t.Errorf("expected name/tag/dirty keys, got: %s", data)
	}
}

func TestWriteMinimalList_SkipsPluginsWithNoTagsOrDirtyInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.yaml")

	l := NewMetadataList()
	_ = l.AddPlugin(&PluginMetadata{
		Name:         "Bare.esp",
		Requirements: []File{{Name: "Master.esm"}},
	})
	_ = l.AddPlugin(&PluginMetadata{
		Name: "Tagged.esp",
		Tags: []Tag{{Name: "Relev", IsAddition: true}},
	})

	if err := WriteMinimalList(l, path, false); err != nil {
		t.Fatalf("WriteMinimalList: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if containsKey(data, "Bare.esp") {
		t.Errorf("expected Bare.esp (no tags/dirty info) to be omitted, got: %s", data)
	}
	if !containsKey(data, "Tagged.esp") {
		t.Errorf("expected Tagged.esp to be present, got: %s", data)
	}
}

func containsKey(data []byte, key string) bool {
	for i := 0; i+len(key) < len(data); i++ {
		if string(data[i:i+len(key)]) == key {
			return true
		}
	}
	return false
}
