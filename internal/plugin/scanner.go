package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// archiveExtensions lists the resource-archive extensions checked for a
// sibling of a plugin's basename, across the games this engine targets.
var archiveExtensions = []string{".bsa", ".ba2"}

// ActiveChecker is the load-order collaborator's active-plugin query,
// consumed by the scanner to populate Plugin.IsActive (spec §4.1 "queries
// the load-order collaborator for whether the plugin is currently
// active"). The full collaborator surface (get/set load order, init) is
// consumed at the façade level; the scanner only ever needs this one
// query, so it is kept narrow here to avoid a dependency on the façade
// package.
type ActiveChecker interface {
	IsPluginActive(name string) bool
}

// Scanner loads plugins from a game's data directory in parallel and
// inserts them into a shared Cache.
type Scanner struct {
	parser         *Parser
	dataPath       string
	mainMasterName string
	active         ActiveChecker
}

// NewScanner creates a Scanner rooted at dataPath. mainMasterName is the
// well-known main master filename for the active game (e.g.
// "Skyrim.esm"); it is always loaded with a full record body regardless
// of the caller's headersOnly request, because it anchors the sort
// graph. active may be nil, in which case every plugin's IsActive is
// left false.
func NewScanner(dataPath, mainMasterName string, active ActiveChecker) *Scanner {
	return &Scanner{
		parser:         NewParser(),
		dataPath:       dataPath,
		mainMasterName: mainMasterName,
		active:         active,
	}
}

// Load parses each named plugin (handling the ".ghost" suffix and
// resolving relative to dataPath) and inserts it into cache. Workers run
// in parallel: inputs are sorted by on-disk size ascending and partitioned
// round-robin across min(GOMAXPROCS, len(names)) workers, per spec §4.1's
// load strategy, so that the size distribution across workers stays even.
//
// A per-plugin parse failure does not abort the batch: it is collected
// into the returned *multierror.Error (nil if every plugin loaded) and
// the plugin is simply absent from the cache afterwards, matching §7.2
// ("fatal to a sub-item, logged but not raised... the plugin is treated
// as absent by the sorter").
func (s *Scanner) Load(ctx context.Context, names []string, headersOnly bool, cache *Cache) error {
	type job struct {
		name string
		size int64
	}

	jobs := make([]job, 0, len(names))
	for _, name := range names {
		size, err := s.statSize(name)
		if err != nil {
			size = 0
		}
		jobs = append(jobs, job{name: name, size: size})
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].size < jobs[j].size })

	workerCount := runtime.GOMAXPROCS(0)
	if workerCount > len(jobs) {
		workerCount = len(jobs)
	}
	if workerCount < 1 {
		workerCount = 1
	}

	buckets := make([][]job, workerCount)
	for i, j := range jobs {
		w := i % workerCount
		buckets[w] = append(buckets[w], j)
	}

	var (
		wg     sync.WaitGroup
		errsMu sync.Mutex
		errs   *multierror.Error
	)

	for _, bucket := range buckets {
		bucket := bucket
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, j := range bucket {
				effectiveHeadersOnly := headersOnly
				if s.mainMasterName != "" && strings.EqualFold(FoldName(j.name), FoldName(s.mainMasterName)) {
					effectiveHeadersOnly = false
				}
				p, err := s.loadOne(ctx, j.name, effectiveHeadersOnly)
				if err != nil {
					errsMu.Lock()
					errs = multierror.Append(errs, fmt.Errorf("%s: %w", j.name, err))
					errsMu.Unlock()
					continue
				}
				cache.AddPlugin(p)
			}
		}()
	}

	wg.Wait() // barrier: the cache is fully populated before this returns (spec §5 thread-safety invariant)

	return errs.ErrorOrNil()
}

// loadOne parses a single plugin and attaches its derived post-parse
// attributes (spec §4.1 "Derived post-parse work").
func (s *Scanner) loadOne(ctx context.Context, name string, headersOnly bool) (*Plugin, error) {
	path := filepath.Join(s.dataPath, name)
	if _, err := os.Stat(path); err != nil {
		ghosted := path + ".ghost"
		if _, gerr := os.Stat(ghosted); gerr == nil {
			path = ghosted
		}
	}

	p, err := s.parser.ParseFile(ctx, path, headersOnly)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	if s.active != nil {
		p.IsActive = s.active.IsPluginActive(p.Name)
	}
	p.LoadsArchive = s.hasSiblingArchive(p.Name)

	return p, nil
}

// hasSiblingArchive reports whether a resource archive matching the
// plugin's basename (e.g. "Blank.bsa" for "Blank.esp") exists alongside
// it in the data directory.
func (s *Scanner) hasSiblingArchive(pluginName string) bool {
	base := strings.TrimSuffix(pluginName, filepath.Ext(pluginName))
	for _, ext := range archiveExtensions {
		if _, err := os.Stat(filepath.Join(s.dataPath, base+ext)); err == nil {
			return true
		}
	}
	return false
}

// statSize returns the on-disk size used for load balancing, resolving
// the ".ghost" variant if the bare name isn't present.
func (s *Scanner) statSize(name string) (int64, error) {
	path := filepath.Join(s.dataPath, name)
	info, err := os.Stat(path)
	if err != nil {
		info, err = os.Stat(path + ".ghost")
		if err != nil {
			return 0, err
		}
	}
	return info.Size(), nil
}
