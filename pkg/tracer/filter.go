package tracer

import (
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/willibrandon/scripttrace/pkg/instrumentation"
)

// DefaultInternalMarkers name the path segments of the embedded runtime's own library tree.
var DefaultInternalMarkers = []string{"IronPython", "Lib", "site-packages"}

const defaultDecisionCacheSize = 1024

// FilterOptions configures which frames are traced.
type FilterOptions struct {
	// InternalMarkers are path segments that mark runtime-internal code.
	// Matching is per segment and case-insensitive.
	InternalMarkers []string

	// FullFrames traces internal frames too.
	FullFrames bool

	// IncludeModules limits tracing to matching modules. Empty means all.
	IncludeModules []string

	// ExcludeModules suppresses matching modules; takes precedence over IncludeModules.
	ExcludeModules []string

	// CacheSize bounds the per-location decision cache. Zero uses a default.
	CacheSize int
}

// DefaultFilterOptions allows every script frame and denies the runtime's library tree.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		InternalMarkers: DefaultInternalMarkers,
		CacheSize:       defaultDecisionCacheSize,
	}
}

// Filter decides whether an event belongs to user script code.
// Policy: allow by default, deny frames with no source path or a path
// inside the runtime's library tree.
type Filter struct {
	opts    FilterOptions
	markers map[string]struct{}
	cache   *lru.Cache
}

// NewFilter builds a Filter from opts.
func NewFilter(opts FilterOptions) *Filter {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultDecisionCacheSize
	}
	// lru.New only fails for non-positive sizes.
	cache, _ := lru.New(size)

	markers := make(map[string]struct{}, len(opts.InternalMarkers))
	for _, m := range opts.InternalMarkers {
		if m = strings.TrimSpace(m); m != "" {
			markers[strings.ToLower(m)] = struct{}{}
		}
	}

	return &Filter{opts: opts, markers: markers, cache: cache}
}

// Allow reports whether the event fired from frame should be formatted and
// delivered. It never panics: frames whose metadata cannot be read are suppressed.
func (f *Filter) Allow(frame instrumentation.FrameInfo, kind instrumentation.Kind) (allowed bool) {
	defer func() {
		if recover() != nil {
			allowed = false
		}
	}()

	if frame == nil {
		return false
	}

	src := frame.SourcePath()
	if src == "" {
		return false
	}
	module := frame.ModuleName()

	key := src + "\x00" + module
	if v, ok := f.cache.Get(key); ok {
		return v.(bool)
	}

	allowed = f.decide(src, module)
	f.cache.Add(key, allowed)
	return allowed
}

func (f *Filter) decide(src, module string) bool {
	if !f.opts.FullFrames && f.isInternal(src) {
		return false
	}
	if module == "" {
		module = baseName(src)
	}

	for _, exclude := range f.opts.ExcludeModules {
		if matchesModule(module, exclude) {
			return false
		}
	}
	if len(f.opts.IncludeModules) == 0 {
		return true
	}
	for _, include := range f.opts.IncludeModules {
		if matchesModule(module, include) {
			return true
		}
	}
	return false
}

// isInternal matches whole path segments, ignoring case. A user directory
// named "lib" is therefore internal, while "Library" or "mylib" is not.
func (f *Filter) isInternal(src string) bool {
	if len(f.markers) == 0 {
		return false
	}
	for _, seg := range strings.FieldsFunc(src, isPathSeparator) {
		if _, ok := f.markers[strings.ToLower(seg)]; ok {
			return true
		}
	}
	return false
}

// matchesModule checks a dotted module name against a pattern. A trailing
// "..." matches by prefix; anything else is a path.Match glob.
func matchesModule(module, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	if strings.HasSuffix(pattern, "...") {
		return strings.HasPrefix(module, strings.TrimSuffix(pattern, "..."))
	}
	matched, _ := path.Match(pattern, module)
	return matched
}

func isPathSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// baseName strips any directory prefix using either separator convention.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
