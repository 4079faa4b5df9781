package game

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/loot-sort/loot/internal/metadata"
	"github.com/loot-sort/loot/internal/plugin"
	"github.com/stretchr/testify/require"
)

// buildMinimalPluginBytes renders a minimal valid TES4-header-only plugin
// file, mirroring the wire shape internal/plugin's own parser fixtures
// use, so SortPlugins has something real to scan.
func buildMinimalPluginBytes(t *testing.T, isMaster bool, masters []string) []byte {
	t.Helper()

	var recordData bytes.Buffer
	writeSubrecord(&recordData, "HEDR", []byte{
		0x9A, 0x99, 0xD9, 0x3F,
		0x00, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
	})
	for _, m := range masters {
		writeSubrecord(&recordData, "MAST", append([]byte(m), 0))
		var sizeData [8]byte
		writeSubrecord(&recordData, "DATA", sizeData[:])
	}

	var flags uint32
	if isMaster {
		flags = plugin.FlagMaster
	}

	recordBytes := recordData.Bytes()

	var buf bytes.Buffer
	buf.WriteString(plugin.SignatureTES4)
	binary.Write(&buf, binary.LittleEndian, uint32(len(recordBytes)))
	binary.Write(&buf, binary.LittleEndian, flags)
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint16(44))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	buf.Write(recordBytes)

	return buf.Bytes()
}

func writeSubrecord(buf *bytes.Buffer, signature string, data []byte) {
	buf.WriteString(signature)
	binary.Write(buf, binary.LittleEndian, uint16(len(data)))
	buf.Write(data)
}

// fakeLoadOrder is an in-memory LoadOrderHandler fake standing in for the
// per-game plugins.txt/loadorder.txt reader/writer (spec §6).
type fakeLoadOrder struct {
	order  []string
	active map[string]bool
}

func newFakeLoadOrder(order []string, active ...string) *fakeLoadOrder {
	f := &fakeLoadOrder{order: order, active: make(map[string]bool)}
	for _, a := range active {
		f.active[a] = true
	}
	return f
}

func (f *fakeLoadOrder) Init(gameType, gamePath, localPath string) error { return nil }

func (f *fakeLoadOrder) IsPluginActive(name string) (bool, error) {
	return f.active[name], nil
}

func (f *fakeLoadOrder) GetLoadOrder() ([]string, error) {
	return f.order, nil
}

func (f *fakeLoadOrder) SetLoadOrder(order []string) error {
	f.order = order
	return nil
}

func writeTestPlugin(t *testing.T, dataPath, name string, isMaster bool, masters []string) {
	t.Helper()
	// A minimal-but-valid TES4 header: enough for the parser's header-only
	// path to succeed without a full plugin-body fixture.
	data := buildMinimalPluginBytes(t, isMaster, masters)
	require.NoError(t, os.WriteFile(filepath.Join(dataPath, name), data, 0644))
}

func TestGame_GetLoadOrder_DelegatesToHandler(t *testing.T) {
	lo := newFakeLoadOrder([]string{"Skyrim.esm", "Foo.esp"})
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", lo, nil)

	order, err := g.GetLoadOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"Skyrim.esm", "Foo.esp"}, order)
}

func TestGame_SetLoadOrder_DelegatesToHandler(t *testing.T) {
	lo := newFakeLoadOrder(nil)
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", lo, nil)

	require.NoError(t, g.SetLoadOrder([]string{"A.esp", "B.esp"}))
	require.Equal(t, []string{"A.esp", "B.esp"}, lo.order)
}

func TestGame_SetLoadOrder_FailsWithoutHandler(t *testing.T) {
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", nil, nil)
	require.Error(t, g.SetLoadOrder([]string{"A.esp"}))
}

func TestGame_IdentifyMainMasterFile(t *testing.T) {
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", nil, nil)
	require.Equal(t, "Skyrim.esm", g.IdentifyMainMasterFile())
}

func TestGame_WriteMinimalList_DelegatesToMasterlist(t *testing.T) {
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", nil, nil)
	require.NoError(t, g.Masterlist.AddPlugin(&metadata.PluginMetadata{
		Name: "Tagged.esp",
		Tags: []metadata.Tag{{Name: "Relev", IsAddition: true}},
	}))

	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, g.WriteMinimalList(path, false))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestGame_SetAndDiscardPluginUserMetadata(t *testing.T) {
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", nil, nil)

	pm := &metadata.PluginMetadata{Name: "Foo.esp", Enabled: true}
	require.NoError(t, g.SetPluginUserMetadata(pm))

	got, ok := g.GetPluginUserMetadata("Foo.esp")
	require.True(t, ok)
	require.Equal(t, "Foo.esp", got.Name)

	require.True(t, g.DiscardPluginUserMetadata("Foo.esp"))

	_, ok = g.GetPluginUserMetadata("Foo.esp")
	require.False(t, ok)
}

func TestGame_DiscardAllUserMetadata(t *testing.T) {
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", nil, nil)
	require.NoError(t, g.SetPluginUserMetadata(&metadata.PluginMetadata{Name: "Foo.esp"}))
	require.NoError(t, g.SetPluginUserMetadata(&metadata.PluginMetadata{Name: "Bar.esp"}))

	g.DiscardAllUserMetadata()

	_, ok := g.GetPluginUserMetadata("Foo.esp")
	require.False(t, ok)
}

func TestGame_GetGeneralMessages_FiltersOnCondition(t *testing.T) {
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", newFakeLoadOrder(nil), nil)
	g.Masterlist.GlobalMessages = []metadata.Message{
		{Type: metadata.MessageSay, Content: []metadata.MessageContent{{Text: "always", Language: metadata.EnglishLanguage}}},
		{
			Type:      metadata.MessageWarn,
			Content:   []metadata.MessageContent{{Text: "conditional", Language: metadata.EnglishLanguage}},
			Condition: `active("Missing.esp")`,
		},
	}

	all, err := g.GetGeneralMessages(false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	filtered, err := g.GetGeneralMessages(true)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "always", filtered[0].Content[0].Text)
}

func TestGame_GetMasterlistRevision_ReflectsLoadedState(t *testing.T) {
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", nil, nil)
	g.Masterlist.RevisionID = "abc123"
	g.Masterlist.RevisionDate = "2026-01-01"

	rev := g.GetMasterlistRevision()
	require.Equal(t, "abc123", rev.ID)
	require.Equal(t, "2026-01-01", rev.Date)
}

func TestGame_GetKnownBashTags_DelegatesToMasterlist(t *testing.T) {
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", nil, nil)
	g.Masterlist.KnownBashTags = []string{"Relev", "Delev"}

	require.Equal(t, []string{"Relev", "Delev"}, g.GetKnownBashTags())
}

func TestGame_GetPluginMetadata_MergesMasterlistAndUserlist(t *testing.T) {
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", nil, nil)
	require.NoError(t, g.Masterlist.AddPlugin(&metadata.PluginMetadata{
		Name: "Foo.esp",
		Tags: []metadata.Tag{{Name: "Relev", IsAddition: true}},
	}))
	require.NoError(t, g.Userlist.AddPlugin(&metadata.PluginMetadata{
		Name: "Foo.esp",
		Tags: []metadata.Tag{{Name: "Delev", IsAddition: true}},
	}))

	merged, err := g.GetPluginMetadata("Foo.esp", true, false)
	require.NoError(t, err)
	require.Len(t, merged.Tags, 2)

	baseOnly, err := g.GetPluginMetadata("Foo.esp", false, false)
	require.NoError(t, err)
	require.Len(t, baseOnly.Tags, 1)
}

func TestGame_GetPluginMetadata_UnknownPluginReturnsNil(t *testing.T) {
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", nil, nil)
	pm, err := g.GetPluginMetadata("Nope.esp", true, false)
	require.NoError(t, err)
	require.Nil(t, pm)
}

func TestGame_IsPluginActive_WithoutHandlerReportsFalse(t *testing.T) {
	g := NewGame(t.TempDir(), "Skyrim.esm", "skyrimse", nil, nil)
	active, err := g.IsPluginActive("Foo.esp")
	require.NoError(t, err)
	require.False(t, active)
}

func TestGame_SortPlugins_OrdersMasterBeforeNonMaster(t *testing.T) {
	dataPath := t.TempDir()
	writeTestPlugin(t, dataPath, "Master.esm", true, nil)
	writeTestPlugin(t, dataPath, "Child.esp", false, []string{"Master.esm"})

	lo := newFakeLoadOrder(nil)
	g := NewGame(dataPath, "Master.esm", "skyrimse", lo, nil)

	result, err := g.SortPlugins(context.Background(), []string{"Child.esp", "Master.esm"})
	require.NoError(t, err)
	require.Equal(t, []string{"Master.esm", "Child.esp"}, result.Order)
}
