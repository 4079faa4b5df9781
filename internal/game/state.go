package game

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/loot-sort/loot/internal/condition"
)

// reservedSelfName is the condition-language name that resolves to the
// running binary's own identity rather than a plugin on disk (spec §6
// GameState doc: "the reserved name \"LOOT\"").
const reservedSelfName = "LOOT"

// selfVersion is this binary's own version string, reported for
// version("LOOT", ...) conditions. There is no release pipeline wired
// up yet to stamp this at build time, so it is a fixed placeholder.
const selfVersion = "0.1.0"

// gameState adapts a Game to condition.GameState, so the condition
// evaluator never needs to know about the plugin cache, the data
// directory, or the load-order collaborator directly.
type gameState struct {
	g *Game
}

var _ condition.GameState = (*gameState)(nil)

func (s *gameState) FileExists(relPath string) (bool, error) {
	full := filepath.Join(s.g.DataPath, filepath.FromSlash(relPath))
	if _, err := os.Stat(full); err == nil {
		return true, nil
	}
	ext := strings.ToLower(filepath.Ext(relPath))
	if ext != ".esp" && ext != ".esm" {
		return false, nil
	}
	if _, err := os.Stat(full + ".ghost"); err == nil {
		return true, nil
	}
	return false, nil
}

func (s *gameState) CountMatches(dirPattern, filePattern string) (int, error) {
	re, err := regexp.Compile(filePattern)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", condition.ErrInvalidArgument, err)
	}

	dir := filepath.Join(s.g.DataPath, filepath.FromSlash(dirPattern))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, nil
	}

	count := 0
	for _, e := range entries {
		if re.MatchString(e.Name()) {
			count++
		}
	}
	return count, nil
}

func (s *gameState) IsPluginActive(name string) (bool, error) {
	if strings.EqualFold(name, reservedSelfName) {
		return false, nil
	}
	if s.g.LoadOrder == nil {
		return false, nil
	}
	return s.g.LoadOrder.IsPluginActive(name)
}

func (s *gameState) CountActiveMatches(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", condition.ErrInvalidArgument, err)
	}
	if s.g.LoadOrder == nil {
		return 0, nil
	}
	order, err := s.g.LoadOrder.GetLoadOrder()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, name := range order {
		if re.MatchString(name) {
			active, err := s.g.LoadOrder.IsPluginActive(name)
			if err == nil && active {
				count++
			}
		}
	}
	return count, nil
}

func (s *gameState) CRC32(name string) (uint32, error) {
	if strings.EqualFold(name, reservedSelfName) {
		return selfBinaryCRC()
	}
	if p, ok := s.g.Cache.GetPlugin(name); ok && p.CRC32 != 0 {
		return p.CRC32, nil
	}
	return crc32File(filepath.Join(s.g.DataPath, name))
}

// crc32File computes the CRC-32 (IEEE) of a file on disk, for plugins the
// cache only holds a header-only (CRC-less) entry for.
func crc32File(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

func (s *gameState) PluginVersion(name string) (string, bool, error) {
	if strings.EqualFold(name, reservedSelfName) {
		return selfVersion, true, nil
	}
	p, ok := s.g.Cache.GetPlugin(name)
	if !ok {
		return "", false, nil
	}
	v, ok := condition.ExtractVersion(p.Header.Description)
	return v, ok, nil
}

// selfBinaryCRC returns the CRC-32 (IEEE) of the running executable.
func selfBinaryCRC() (uint32, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}
	return crc32File(exe)
}
