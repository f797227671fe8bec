// Copyright 2026 The pvcheck Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package archives implements the archive-suggestion engine: a two-phase
// pipeline that first applies a fixed sequence of transformations to a
// local archive's declared sources, then runs a fixed sequence of
// suggestion methods to propose reachable remote-archive URLs.
//
// The suggestion methods are grounded directly on the original
// package-validation-tool's suggesting_archives/suggestion_methods.py,
// transliterated method-for-method and kept in the same fixed order so
// confidence scoring and "unused declared sources" bookkeeping line up.
package archives

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/pvcheck/pvcheck/internal/config"
	"github.com/pvcheck/pvcheck/internal/extract"
	"github.com/pvcheck/pvcheck/internal/httpx"
	"github.com/pvcheck/pvcheck/pkg/provresult"
)

// DefaultUserAgent matches a common browser string, mirroring the
// original's need to avoid sites that filter default User-Agent headers.
const DefaultUserAgent = "Mozilla/5.0 Firefox/140.0"

// ReachabilityTimeout is the per-request timeout used to probe candidate
// remote archives.
const ReachabilityTimeout = 3 * time.Second

// Engine runs the suggestion pipeline, parameterized by the known-urls,
// moved-and-recompressed replacement table, subdomain list, and
// nested-archive clue regexes loaded from configuration.
type Engine struct {
	Client httpx.BasicClient
	Config config.Doc
}

// NewEngine returns an Engine that probes reachability with a
// browser-user-agent HTTP client.
func NewEngine(cfg config.Doc) *Engine {
	return &Engine{
		Client: &httpx.WithUserAgent{BasicClient: http.DefaultClient, UserAgent: DefaultUserAgent},
		Config: cfg,
	}
}

// Result is the full output of one Engine.Suggest call for one local
// archive.
type Result struct {
	Transformations      []provresult.Transformation
	Suggestions          []provresult.ArchiveSuggestion
	UnusedDeclaredSources []string
}

// Suggest runs Phase A (transformations) then Phase B (suggestion methods)
// over one local archive and its declared sources, returning every
// suggestion produced plus the declared sources never referenced by one.
func (e *Engine) Suggest(ctx context.Context, localArchive string, declaredSources []string) (*Result, error) {
	archives := []string{localArchive}
	sources := append([]string(nil), declaredSources...)

	var transforms []provresult.Transformation
	if t, newArchives, newSources, ok := e.extractNestedArchives(archives, sources); ok {
		transforms = append(transforms, t)
		archives, sources = newArchives, newSources
	}
	if t, newSources, ok := stripURLFragments(sources); ok {
		transforms = append(transforms, t)
		sources = newSources
	}

	var suggestions []provresult.ArchiveSuggestion
	for _, basename := range archives {
		for _, method := range e.methods() {
			suggestions = append(suggestions, method(ctx, e, basename, sources)...)
		}
	}

	used := map[string]bool{}
	for _, s := range suggestions {
		if s.OriginatingSpecSource != "" {
			used[s.OriginatingSpecSource] = true
		}
	}
	var unused []string
	for _, s := range sources {
		if !used[s] {
			unused = append(unused, s)
		}
	}

	return &Result{Transformations: transforms, Suggestions: suggestions, UnusedDeclaredSources: unused}, nil
}

type suggestMethod func(ctx context.Context, e *Engine, localBasename string, declaredSources []string) []provresult.ArchiveSuggestion

// methods returns Phase B's six suggestion methods in the fixed order
// spec.md requires.
func (e *Engine) methods() []suggestMethod {
	return []suggestMethod{
		suggestExactBasename,
		suggestSplitNameVersion,
		suggestFTPToHTTPS,
		suggestKnownURLs,
		suggestMovedAndRecompressed,
		suggestSubdomain,
	}
}

// extractNestedArchives is Phase A transformation 1: when there is exactly
// one declared source (a bare basename, no URL scheme) and exactly one
// local archive, and the source matches a configured clue regex, open the
// archive and, if every member is itself an archive, extract them in
// place, rename the original aside with .original, and report the member
// basenames as the new local archives and declared sources.
func (e *Engine) extractNestedArchives(localArchives, declaredSources []string) (provresult.Transformation, []string, []string, bool) {
	if len(localArchives) != 1 || len(declaredSources) != 1 {
		return provresult.Transformation{}, nil, nil, false
	}
	source := declaredSources[0]
	if u, err := url.Parse(source); err == nil && u.Scheme != "" {
		return provresult.Transformation{}, nil, nil, false
	}

	clueRegexes := config.StringSlice(e.Config["extract_nested_archives"], "clue_regexes")
	cluesRequired := len(clueRegexes)
	if cluesRequired == 0 {
		return provresult.Transformation{}, nil, nil, false
	}
	cluesFound := 0
	for _, pattern := range clueRegexes {
		if matchesPattern(pattern, source) {
			cluesFound++
		}
	}
	if cluesFound == 0 {
		return provresult.Transformation{}, nil, nil, false
	}

	archivePath := localArchives[0]
	dir := path.Dir(archivePath)
	members, err := extract.ListMembers(archivePath)
	if err != nil || len(members) == 0 {
		return provresult.Transformation{}, nil, nil, false
	}
	for _, m := range members {
		if extract.DetectByName(m) == extract.Unknown {
			return provresult.Transformation{}, nil, nil, false
		}
	}
	if err := extract.ToDir(archivePath, dir); err != nil {
		return provresult.Transformation{}, nil, nil, false
	}
	if err := os.Rename(archivePath, archivePath+".original"); err != nil {
		return provresult.Transformation{}, nil, nil, false
	}

	confidence := float64(cluesFound) / float64(cluesRequired)
	if confidence > 1.0 {
		confidence = 1.0
	}
	t := provresult.Transformation{
		Name:       "extract_nested_archives",
		Inputs:     []string{archivePath, source},
		Outputs:    members,
		Notes:      "opened local archive and extracted every archive member in place",
		Confidence: confidence,
	}
	return t, members, members, true
}

// stripURLFragments is Phase A transformation 2: drop the #fragment from
// every http(s) declared source. Only a record is emitted if at least one
// source actually changed.
func stripURLFragments(declaredSources []string) (provresult.Transformation, []string, bool) {
	out := make([]string, len(declaredSources))
	changed := false
	var inputs, outputs []string
	for i, s := range declaredSources {
		out[i] = s
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Fragment == "" {
			continue
		}
		u.Fragment = ""
		stripped := u.String()
		out[i] = stripped
		changed = true
		inputs = append(inputs, s)
		outputs = append(outputs, stripped)
	}
	if !changed {
		return provresult.Transformation{}, nil, false
	}
	return provresult.Transformation{
		Name:       "strip_url_fragments",
		Inputs:     inputs,
		Outputs:    outputs,
		Notes:      "dropped URL fragment from declared source(s)",
		Confidence: 1.0,
	}, out, true
}

func matchesSubstring(basename string, sources []string) []string {
	var matched []string
	for _, s := range sources {
		if strings.Contains(s, basename) {
			matched = append(matched, s)
		}
	}
	return matched
}

func suggestExactBasename(ctx context.Context, e *Engine, basename string, sources []string) []provresult.ArchiveSuggestion {
	var out []provresult.ArchiveSuggestion
	for _, s := range matchesSubstring(basename, sources) {
		if e.reachable(ctx, s) {
			out = append(out, provresult.ArchiveSuggestion{
				RemoteArchiveURL:      s,
				OriginatingSpecSource: s,
				MethodName:            "exact_basename",
				Notes:                 "from Source stanza of spec file, exact match (no guessing)",
				Confidence:            1.0,
			})
		}
	}
	return out
}

func suggestSplitNameVersion(ctx context.Context, e *Engine, basename string, sources []string) []provresult.ArchiveSuggestion {
	idx := strings.LastIndex(basename, "-")
	if idx < 0 {
		return nil
	}
	name, versionExt := basename[:idx], basename[idx+1:]
	var out []provresult.ArchiveSuggestion
	for _, s := range sources {
		if strings.Contains(s, name) && strings.Contains(s, versionExt) && e.reachable(ctx, s) {
			out = append(out, provresult.ArchiveSuggestion{
				RemoteArchiveURL:      s,
				OriginatingSpecSource: s,
				MethodName:            "split_name_version",
				Notes:                 "from Source stanza of spec file, split name and version (no guessing)",
				Confidence:            1.0,
			})
		}
	}
	return out
}

func suggestFTPToHTTPS(ctx context.Context, e *Engine, basename string, sources []string) []provresult.ArchiveSuggestion {
	var out []provresult.ArchiveSuggestion
	for _, s := range matchesSubstring(basename, sources) {
		u, err := url.Parse(s)
		if err != nil || u.Scheme != "ftp" {
			continue
		}
		fixed := *u
		fixed.Scheme = "https"
		rewritten := fixed.String()
		if e.reachable(ctx, rewritten) {
			out = append(out, provresult.ArchiveSuggestion{
				RemoteArchiveURL:      rewritten,
				OriginatingSpecSource: s,
				MethodName:            "ftp_to_https",
				Notes:                 "from Source stanza of spec file, ftp:// replaced with https://",
				Confidence:            1.0,
			})
		}
	}
	return out
}

func suggestKnownURLs(ctx context.Context, e *Engine, basename string, sources []string) []provresult.ArchiveSuggestion {
	knownDirs := config.StringSlice(e.Config["known_urls"], "urls")
	var out []provresult.ArchiveSuggestion
	for _, dir := range knownDirs {
		candidate := strings.TrimSuffix(dir, "/") + "/" + basename
		if !e.reachable(ctx, candidate) {
			continue
		}
		matched := matchesSubstring(basename, sources)
		origin := ""
		if len(matched) > 0 {
			origin = strings.Join(matched, " ")
		}
		out = append(out, provresult.ArchiveSuggestion{
			RemoteArchiveURL:      candidate,
			OriginatingSpecSource: origin,
			MethodName:            "known_urls",
			Notes:                 "from the list of known URLs, exact match (no guessing)",
			Confidence:            1.0,
		})
	}
	return out
}

var supportedArchiveExtensions = []string{
	".tar.gz", ".tar.bz2", ".tar.xz", ".tar", ".tgz", ".tbz2", ".zip",
}

func archiveTypeOf(basename string) string {
	for _, ext := range supportedArchiveExtensions {
		if strings.HasSuffix(basename, ext) {
			return ext
		}
	}
	return ""
}

func suggestMovedAndRecompressed(ctx context.Context, e *Engine, basename string, sources []string) []provresult.ArchiveSuggestion {
	localType := archiveTypeOf(basename)
	if localType == "" {
		return nil
	}
	replacements, _ := e.Config["moved_and_recompressed"]["replacements"].([]any)
	matched := matchesSubstring(basename, sources)
	var out []provresult.ArchiveSuggestion
	for _, raw := range replacements {
		repl, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		from := strings.ReplaceAll(config.String(repl, "from"), "<archive_basename>", basename)
		to := strings.ReplaceAll(config.String(repl, "to"), "<archive_basename>", basename)
		if from == "" {
			continue
		}
		for _, s := range matched {
			moved := strings.ReplaceAll(s, from, to)
			for _, ext := range supportedArchiveExtensions {
				recompressed := strings.Replace(moved, localType, ext, 1)
				if e.reachable(ctx, recompressed) {
					out = append(out, provresult.ArchiveSuggestion{
						RemoteArchiveURL:      recompressed,
						OriginatingSpecSource: strings.Join(matched, " "),
						MethodName:            "moved_and_recompressed",
						Notes:                 "archive moved under same URL domain and possibly recompressed",
						Confidence:            1.0,
					})
					break
				}
			}
		}
	}
	return out
}

func replaceSubdomain(rawURL, newSubdomain string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	parts := strings.Split(u.Host, ".")
	var newHost string
	if len(parts) > 2 {
		newHost = newSubdomain + "." + strings.Join(parts[1:], ".")
	} else {
		newHost = newSubdomain + "." + u.Host
	}
	u.Host = newHost
	return u.String(), nil
}

func suggestSubdomain(ctx context.Context, e *Engine, basename string, sources []string) []provresult.ArchiveSuggestion {
	subdomains := config.StringSlice(e.Config["subdomain_substitution"], "subdomains")
	var out []provresult.ArchiveSuggestion
	for _, s := range matchesSubstring(basename, sources) {
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" {
			continue
		}
		for _, sub := range subdomains {
			rewritten, err := replaceSubdomain(s, sub)
			if err != nil {
				continue
			}
			if e.reachable(ctx, rewritten) {
				out = append(out, provresult.ArchiveSuggestion{
					RemoteArchiveURL:      rewritten,
					OriginatingSpecSource: s,
					MethodName:            "subdomain_substitution",
					Notes:                 "archive was moved under different subdomain in the same URL domain",
					Confidence:            1.0,
				})
			}
		}
	}
	return out
}

// reachable implements spec.md's reachability rule: for http(s), a GET with
// a browser user agent and a 3-second timeout must return a 2xx/3xx status
// and the requested basename (sans archive suffix) must appear in the
// finally-resolved URL's path; for ftp, a small read must succeed.
func (e *Engine) reachable(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return e.reachableHTTP(ctx, u)
	case "ftp":
		return reachableFTP(ctx, rawURL)
	default:
		return false
	}
}

func (e *Engine) reachableHTTP(ctx context.Context, u *url.URL) bool {
	ctx, cancel := context.WithTimeout(ctx, ReachabilityTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return false
	}
	finalURL := u
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}
	stem := removeArchiveSuffix(path.Base(u.Path))
	return strings.Contains(finalURL.Path, stem)
}

func removeArchiveSuffix(basename string) string {
	for _, ext := range supportedArchiveExtensions {
		if strings.HasSuffix(basename, ext) {
			return strings.TrimSuffix(basename, ext)
		}
	}
	return strings.TrimSuffix(basename, path.Ext(basename))
}

var (
	regexCacheMu sync.Mutex
	regexCache   = map[string]*regexp.Regexp{}
)

func compileCached(pattern string) (*regexp.Regexp, error) {
	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()
	if re, ok := regexCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache[pattern] = re
	return re, nil
}

func matchesPattern(pattern, s string) bool {
	re, err := compileCached(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// reachableFTP performs a small read from an ftp:// URL, mirroring
// urllib.request's dummy-read accessibility check for FTP sources.
func reachableFTP(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Host
	if !strings.Contains(host, ":") {
		host += ":21"
	}
	c, err := ftp.Dial(host, ftp.DialWithContext(ctx), ftp.DialWithTimeout(ReachabilityTimeout))
	if err != nil {
		return false
	}
	defer c.Quit()
	if err := c.Login("anonymous", "anonymous"); err != nil {
		return false
	}
	resp, err := c.Retr(u.Path)
	if err != nil {
		return false
	}
	defer resp.Close()
	buf := make([]byte, 32)
	_, err = resp.Read(buf)
	return err == nil || err == io.EOF
}
