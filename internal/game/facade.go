// Package game implements the Database contract (spec §4.7): the single
// entry point a caller drives plugin scanning, metadata, and sorting
// through. It wires together internal/plugin, internal/metadata,
// internal/condition and internal/sorter behind the external
// collaborator interfaces consumed (spec §6) and never does its own file
// scanning, record parsing, or record-body editing.
package game

import (
	"context"
	"fmt"
	"os"

	"github.com/loot-sort/loot/internal/condition"
	"github.com/loot-sort/loot/internal/metadata"
	"github.com/loot-sort/loot/internal/plugin"
	"github.com/loot-sort/loot/internal/sorter"
)

// Game is the Database contract's concrete implementation (spec §4.7).
type Game struct {
	DataPath       string
	MainMasterName string
	GameType       string

	Cache          *plugin.Cache
	Scanner        *plugin.Scanner
	Masterlist     *metadata.Masterlist
	Userlist       *metadata.MetadataList
	ConditionCache *condition.Cache
	Evaluator      *condition.Evaluator

	LoadOrder LoadOrderHandler
	Updater   MasterlistUpdater
}

// NewGame constructs a Game rooted at dataPath, with loadOrder and
// updater as the external collaborators (spec §6). mainMasterName is the
// game's well-known main master file (e.g. "Skyrim.esm").
func NewGame(dataPath, mainMasterName, gameType string, loadOrder LoadOrderHandler, updater MasterlistUpdater) *Game {
	g := &Game{
		DataPath:       dataPath,
		MainMasterName: mainMasterName,
		GameType:       gameType,
		Cache:          plugin.NewCache(),
		Masterlist:     metadata.NewMasterlist(),
		Userlist:       metadata.NewMetadataList(),
		ConditionCache: condition.NewCache(),
		LoadOrder:      loadOrder,
		Updater:        updater,
	}
	g.Scanner = plugin.NewScanner(dataPath, mainMasterName, activeCheckerAdapter{g})
	g.Cache.Observe(g.ConditionCache)
	g.Evaluator = condition.NewEvaluator(&gameState{g}, g.ConditionCache)
	return g
}

// activeCheckerAdapter narrows Game down to plugin.ActiveChecker so the
// scanner never needs the full LoadOrderHandler surface.
type activeCheckerAdapter struct{ g *Game }

func (a activeCheckerAdapter) IsPluginActive(name string) bool {
	if a.g.LoadOrder == nil {
		return false
	}
	active, err := a.g.LoadOrder.IsPluginActive(name)
	return err == nil && active
}

// LoadLists replaces the masterlist and userlist content (spec §4.7
// "load_lists"). An empty path leaves that list untouched; a non-empty
// path that cannot be read fails with ErrFileAccess.
func (g *Game) LoadLists(masterlistPath, userlistPath string) error {
	if masterlistPath != "" {
		if err := g.Masterlist.LoadFile(masterlistPath); err != nil {
			return err
		}
	}
	if userlistPath != "" {
		if err := g.Userlist.LoadFile(userlistPath); err != nil {
			return err
		}
	}
	g.ConditionCache.Clear()
	return nil
}

// EvalLists re-evaluates, against fresh game state, every condition
// string on the merged masterlist/userlist metadata of each plugin in the
// plugin cache, clearing the condition cache first (spec §4.7
// "eval_lists"). Global messages and entries for plugins that are not in
// the plugin cache are not evaluated here. Evaluation failures, including
// condition syntax errors (the lists do not check condition syntax on
// load), are returned as error Messages rather than aborting; the
// Messages do not name the plugin they came from.
func (g *Game) EvalLists() []metadata.Message {
	g.ConditionCache.Clear()

	var messages []metadata.Message
	names := g.Cache.Names()
	for _, name := range names {
		pm, ok := g.mergedMetadataFor(name)
		if !ok {
			continue
		}
		messages = append(messages, evalPluginConditions(g.Evaluator, pm)...)
	}
	return messages
}

// evalPluginConditions evaluates every condition string attached to pm,
// returning an error Message for each that fails at runtime.
func evalPluginConditions(ev *condition.Evaluator, pm *metadata.PluginMetadata) []metadata.Message {
	var out []metadata.Message
	check := func(cond, what string) {
		if cond == "" {
			return
		}
		if _, err := ev.Eval(cond); err != nil {
			out = append(out, metadata.Message{
				Type: metadata.MessageError,
				Content: []metadata.MessageContent{{
					Text:     fmt.Sprintf("condition on %s failed to evaluate: %v", what, err),
					Language: metadata.EnglishLanguage,
				}},
			})
		}
	}

	for _, f := range pm.LoadAfter {
		check(f.Condition, "load_after entry")
	}
	for _, f := range pm.Requirements {
		check(f.Condition, "requirement entry")
	}
	for _, f := range pm.Incompatibilities {
		check(f.Condition, "incompatibility entry")
	}
	for _, msg := range pm.Messages {
		check(msg.Condition, "message")
	}
	for _, tag := range pm.Tags {
		check(tag.Condition, "tag")
	}
	return out
}

// mergedMetadataFor merges the masterlist and userlist entries for name,
// reporting false if neither applies.
func (g *Game) mergedMetadataFor(name string) (*metadata.PluginMetadata, bool) {
	base, baseOK := g.Masterlist.FindPlugin(name)
	user, userOK := g.Userlist.FindPlugin(name)

	switch {
	case baseOK && userOK:
		return base.Merge(user), true
	case baseOK:
		return base, true
	case userOK:
		return user, true
	default:
		return nil, false
	}
}

// WriteUserMetadata serialises the userlist to path (spec §4.7
// "write_user_metadata").
func (g *Game) WriteUserMetadata(path string, overwrite bool) error {
	return metadata.WriteUserMetadata(g.Userlist, path, overwrite)
}

// WriteMinimalList serialises the masterlist's tag/dirty-bearing entries
// to path (spec §4.7 "write_minimal_list").
func (g *Game) WriteMinimalList(path string, overwrite bool) error {
	return metadata.WriteMinimalList(g.Masterlist.MetadataList, path, overwrite)
}

// UpdateMasterlist fetches and reloads the masterlist via Updater (spec
// §4.7 "update_masterlist", §7.3 rollback sequence).
func (g *Game) UpdateMasterlist(path, url, branch string) ([]metadata.Message, error) {
	if g.Updater == nil {
		return nil, fmt.Errorf("%w: no masterlist updater configured", metadata.ErrGitState)
	}
	warnings, err := g.Masterlist.Update(g.Updater, path, url, branch, os.ReadFile)
	if err != nil {
		return warnings, err
	}
	if info, ierr := g.Updater.GetInfo(path, false); ierr == nil && info.ID != "" {
		g.Masterlist.RevisionID = info.ID
		g.Masterlist.RevisionDate = info.Date
		g.Masterlist.IsModified = info.IsModified
	}
	g.ConditionCache.Clear()
	return warnings, nil
}

// GetMasterlistRevision reports the masterlist's current revision (spec
// §4.7 "get_masterlist_revision").
func (g *Game) GetMasterlistRevision() metadata.RevisionInfo {
	return metadata.RevisionInfo{
		ID:         g.Masterlist.RevisionID,
		Date:       g.Masterlist.RevisionDate,
		IsModified: g.Masterlist.IsModified,
	}
}

// GetKnownBashTags returns the masterlist's known Bash Tag suggestions
// (spec §4.7 "get_known_bash_tags").
func (g *Game) GetKnownBashTags() []string {
	return g.Masterlist.KnownBashTags
}

// GetGeneralMessages returns the masterlist's global messages, optionally
// dropping any whose condition evaluates false (spec §4.7
// "get_general_messages(evaluate_conditions)").
func (g *Game) GetGeneralMessages(evaluateConditions bool) ([]metadata.Message, error) {
	if !evaluateConditions {
		return g.Masterlist.GlobalMessages, nil
	}

	var out []metadata.Message
	for _, msg := range g.Masterlist.GlobalMessages {
		ok, err := g.Evaluator.Eval(msg.Condition)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

// GetPluginMetadata returns the merged metadata for name (spec §4.7
// "get_plugin_metadata(name, include_user, evaluate_conditions)").
func (g *Game) GetPluginMetadata(name string, includeUser, evaluateConditions bool) (*metadata.PluginMetadata, error) {
	base, baseOK := g.Masterlist.FindPlugin(name)
	var merged *metadata.PluginMetadata
	switch {
	case includeUser:
		user, userOK := g.Userlist.FindPlugin(name)
		switch {
		case baseOK && userOK:
			merged = base.Merge(user)
		case baseOK:
			merged = base
		case userOK:
			merged = user
		default:
			return nil, nil
		}
	case baseOK:
		merged = base
	default:
		return nil, nil
	}

	if !evaluateConditions {
		return merged, nil
	}
	return g.filterByConditions(merged)
}

// filterByConditions drops every File/Message/Tag whose condition
// evaluates false, returning a new PluginMetadata (spec's
// evaluate_conditions flag).
func (g *Game) filterByConditions(pm *metadata.PluginMetadata) (*metadata.PluginMetadata, error) {
	out := *pm

	var err error
	out.LoadAfter, err = filterFiles(g.Evaluator, pm.LoadAfter)
	if err != nil {
		return nil, err
	}
	out.Requirements, err = filterFiles(g.Evaluator, pm.Requirements)
	if err != nil {
		return nil, err
	}
	out.Incompatibilities, err = filterFiles(g.Evaluator, pm.Incompatibilities)
	if err != nil {
		return nil, err
	}

	out.Messages = nil
	for _, msg := range pm.Messages {
		ok, evalErr := g.Evaluator.Eval(msg.Condition)
		if evalErr != nil {
			return nil, evalErr
		}
		if ok {
			out.Messages = append(out.Messages, msg)
		}
	}

	out.Tags = nil
	for _, tag := range pm.Tags {
		ok, evalErr := g.Evaluator.Eval(tag.Condition)
		if evalErr != nil {
			return nil, evalErr
		}
		if ok {
			out.Tags = append(out.Tags, tag)
		}
	}

	return &out, nil
}

func filterFiles(ev *condition.Evaluator, files []metadata.File) ([]metadata.File, error) {
	var out []metadata.File
	for _, f := range files {
		ok, err := ev.Eval(f.Condition)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// GetPluginUserMetadata returns the userlist-only entry for name (spec
// §4.7 "get_plugin_user_metadata").
func (g *Game) GetPluginUserMetadata(name string) (*metadata.PluginMetadata, bool) {
	return g.Userlist.FindPlugin(name)
}

// SetPluginUserMetadata replaces the userlist's exact-name entry for
// pm.Name (spec §4.7 "set_plugin_user_metadata").
func (g *Game) SetPluginUserMetadata(pm *metadata.PluginMetadata) error {
	g.Userlist.ErasePlugin(pm.Name)
	return g.Userlist.AddPlugin(pm)
}

// DiscardPluginUserMetadata removes the userlist entry for name (spec
// §4.7 "discard_plugin_user_metadata").
func (g *Game) DiscardPluginUserMetadata(name string) bool {
	return g.Userlist.ErasePlugin(name)
}

// DiscardAllUserMetadata empties the userlist (spec §4.7
// "discard_all_user_metadata").
func (g *Game) DiscardAllUserMetadata() {
	g.Userlist.Clear()
}

// SortPlugins loads names into the plugin cache and runs the sort
// algorithm (spec §4.7 "sort_plugins(names)", the primary entry point).
func (g *Game) SortPlugins(ctx context.Context, names []string) (*sorter.Result, error) {
	if err := g.Scanner.Load(ctx, names, false, g.Cache); err != nil {
		// Bulk-load failures are per-plugin (spec §7.2); the sort still
		// runs over whatever loaded successfully.
		_ = err
	}

	var inputs []sorter.PluginInput
	for _, name := range names {
		p, ok := g.Cache.GetPlugin(name)
		if !ok {
			continue
		}
		inputs = append(inputs, sorter.PluginInput{
			Name:              p.Name,
			IsMaster:          p.IsMaster(),
			Masters:           masterNames(p.Header.Masters),
			OverrideRecordIDs: p.OverrideRecordIDs,
		})
	}

	existingOrder, err := g.currentLoadOrder()
	if err != nil {
		return nil, err
	}

	return sorter.Sort(inputs, g.mergedMetadataLookup, existingOrder)
}

func (g *Game) mergedMetadataLookup(name string) *metadata.PluginMetadata {
	pm, ok := g.mergedMetadataFor(name)
	if !ok {
		return nil
	}
	return pm
}

func masterNames(masters []plugin.Master) []string {
	out := make([]string, len(masters))
	for i, m := range masters {
		out[i] = m.Filename
	}
	return out
}

func (g *Game) currentLoadOrder() ([]string, error) {
	if g.LoadOrder == nil {
		return nil, nil
	}
	return g.LoadOrder.GetLoadOrder()
}

// IsPluginActive reports whether name is active in the current load
// order (spec §4.7 state accessor).
func (g *Game) IsPluginActive(name string) (bool, error) {
	if g.LoadOrder == nil {
		return false, nil
	}
	return g.LoadOrder.IsPluginActive(name)
}

// GetLoadOrder returns the current on-disk load order (spec §4.7 state
// accessor).
func (g *Game) GetLoadOrder() ([]string, error) {
	return g.currentLoadOrder()
}

// SetLoadOrder persists a new load order (spec §4.7 state accessor).
func (g *Game) SetLoadOrder(order []string) error {
	if g.LoadOrder == nil {
		return fmt.Errorf("%w: no load-order collaborator configured", metadata.ErrFileAccess)
	}
	return g.LoadOrder.SetLoadOrder(order)
}

// IdentifyMainMasterFile returns the well-known main master filename for
// this game (spec §4.7 state accessor).
func (g *Game) IdentifyMainMasterFile() string {
	return g.MainMasterName
}
