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

// Package repos implements the repository-suggestion engine: Phase A
// enumerates candidate upstream repository URLs for a local archive using
// five heuristics (declared URLs, scraped links, known hostings, a public
// code-search API, and a public package-metadata site); Phase B resolves
// which tag or commit in each candidate corresponds to the archive's
// version.
//
// Grounded directly on the original package-validation-tool's
// suggesting_repos/suggestion_methods.py and version_utils.py, kept in the
// same method order and tag-matching tier order.
package repos

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pvcheck/pvcheck/internal/cache"
	"github.com/pvcheck/pvcheck/internal/gitprobe"
	"github.com/pvcheck/pvcheck/internal/httpx"
	"github.com/pvcheck/pvcheck/internal/uri"
	"github.com/pvcheck/pvcheck/internal/verstring"
	"github.com/pvcheck/pvcheck/internal/webscrape"
	"github.com/pvcheck/pvcheck/pkg/provresult"
)

const maxReturnedGitHubAPIRepos = 3

// Engine runs repository-suggestion Phase A.
type Engine struct {
	Client      httpx.BasicClient
	Prober      *gitprobe.Prober
	GitHubToken string
	HTTPTimeout time.Duration
}

// NewEngine returns an Engine using the default HTTP client and a fresh
// git-repo prober. The client is rate-limited and response-cached: Phase A's
// five suggestion methods repeatedly hit the same handful of hosts (GitHub's
// code-search API chief among them, whose unauthenticated rate limit is easy
// to exhaust across a run over many packages) and often re-fetch identical
// listing pages across methods, so a shared in-memory cache coalesces
// duplicate in-flight fetches the way internal/httpx.CachedClient was built
// for.
func NewEngine() *Engine {
	token := os.Getenv("GITHUB_TOKEN")
	interval := time.Second // ~60/min, a conservative unauthenticated default
	if token != "" {
		interval = 100 * time.Millisecond // ~600/min, well under the authenticated quota
	}
	rateLimited := &httpx.RateLimitedClient{BasicClient: http.DefaultClient, Ticker: time.NewTicker(interval)}
	cached := httpx.NewCachedClient(rateLimited, cache.NewHierarchicalCache(&cache.CoalescingMemoryCache{}))
	return &Engine{
		Client:      &httpx.WithUserAgent{BasicClient: cached, UserAgent: webscrape.DefaultUserAgent},
		Prober:      gitprobe.NewProber(),
		GitHubToken: token,
		HTTPTimeout: 5 * time.Second,
	}
}

// fetchLinks fetches pageURL through e.Client and resolves every hyperlink
// on the page to an absolute URL.
func (e *Engine) fetchLinks(ctx context.Context, pageURL string) ([]string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing page URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", pageURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s: unexpected HTTP status %s", pageURL, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	return webscrape.ExtractLinks(u, body)
}

// projectName derives the project base name from a local archive's
// basename: drop the archive extension, split on the last '-', and trim
// trailing digits/dot from the remainder.
func projectName(archiveBasename string) string {
	stem := removeArchiveSuffix(archiveBasename)
	idx := strings.LastIndex(stem, "-")
	name := stem
	if idx >= 0 {
		name = stem[:idx]
	}
	return strings.TrimRight(name, "0123456789.")
}

var supportedArchiveExtensions = []string{
	".tar.gz", ".tar.bz2", ".tar.xz", ".tar", ".tgz", ".tbz2", ".zip",
}

func removeArchiveSuffix(basename string) string {
	for _, ext := range supportedArchiveExtensions {
		if strings.HasSuffix(basename, ext) {
			return strings.TrimSuffix(basename, ext)
		}
	}
	return basename
}

// SuggestCandidates runs Phase A's five candidate-enumeration methods in
// order and returns every candidate repo suggestion produced.
func (e *Engine) SuggestCandidates(ctx context.Context, localArchiveBasename string, declaredURLs []string) []provresult.RepoSuggestion {
	var out []provresult.RepoSuggestion
	out = append(out, e.fromDeclaredURLs(ctx, localArchiveBasename, declaredURLs)...)
	out = append(out, e.fromScrapedLinks(ctx, localArchiveBasename, declaredURLs)...)
	out = append(out, e.fromKnownHostings(ctx, localArchiveBasename)...)
	out = append(out, e.fromGitHubAPI(ctx, localArchiveBasename)...)
	out = append(out, e.fromRepology(ctx, localArchiveBasename)...)
	return out
}

// fromDeclaredURLs is Phase A method 1.
func (e *Engine) fromDeclaredURLs(ctx context.Context, archiveBasename string, declaredURLs []string) []provresult.RepoSuggestion {
	name := strings.ToLower(projectName(archiveBasename))
	var out []provresult.RepoSuggestion
	for _, u := range declaredURLs {
		if !strings.Contains(strings.ToLower(u), name) {
			continue
		}
		if !gitprobe.LooksLikeRepo(u) || !e.Prober.IsGitRepo(ctx, u) {
			continue
		}
		out = append(out, provresult.RepoSuggestion{
			RepoURL:               u,
			OriginatingSpecSource: u,
			MethodName:            "from_declared_urls",
			Notes:                 "URL from spec file: matched " + name,
			Confidence:            1.0,
		})
	}
	return out
}

var hrefRE = regexp.MustCompile(`(?i)^(git|https?)://`)

// fromScrapedLinks is Phase A method 2.
func (e *Engine) fromScrapedLinks(ctx context.Context, archiveBasename string, declaredURLs []string) []provresult.RepoSuggestion {
	name := strings.ToLower(projectName(archiveBasename))
	var out []provresult.RepoSuggestion
	for _, u := range declaredURLs {
		if !strings.Contains(strings.ToLower(u), name) {
			continue
		}
		links, err := e.fetchLinks(ctx, u)
		if err != nil {
			continue
		}
		for _, link := range links {
			if !strings.Contains(strings.ToLower(link), name) {
				continue
			}
			if !hrefRE.MatchString(link) {
				continue
			}
			// Scraped hrefs for well-known hostings arrive in all manner of
			// forms (scp-style, mixed case, trailing .git); canonicalize
			// before probing so distinct spellings of the same repo don't
			// produce duplicate suggestions.
			repoURL := link
			if canon, err := uri.CanonicalizeRepoURI(link); err == nil {
				repoURL = canon
			}
			if !gitprobe.LooksLikeRepo(repoURL) || !e.Prober.IsGitRepo(ctx, repoURL) {
				continue
			}
			out = append(out, provresult.RepoSuggestion{
				RepoURL:               repoURL,
				OriginatingSpecSource: u,
				MethodName:            "from_scraped_links",
				Notes:                 "linked repo found in URL " + u + " from spec file",
				Confidence:            1.0,
			})
		}
	}
	return out
}

// fromKnownHostings is Phase A method 3.
func (e *Engine) fromKnownHostings(ctx context.Context, archiveBasename string) []provresult.RepoSuggestion {
	name := projectName(archiveBasename)
	candidates := map[string]string{
		"GitHub":      "https://github.com/" + name + "/" + name,
		"GitLab":      "https://gitlab.com/" + name + "/" + name,
		"SourceForge": "git://git.code.sf.net/p/" + name + "/" + name,
		"Savannah":    "https://git.savannah.gnu.org/git/" + name + ".git",
	}
	var out []provresult.RepoSuggestion
	for hosting, repo := range candidates {
		if !e.Prober.IsGitRepo(ctx, repo) {
			continue
		}
		out = append(out, provresult.RepoSuggestion{
			RepoURL:    repo,
			MethodName: "from_known_hostings",
			Notes:      "repo found on a known hosting platform " + hosting,
			Confidence: 1.0,
		})
	}
	return out
}

type githubSearchResponse struct {
	Items []struct {
		HTMLURL string `json:"html_url"`
	} `json:"items"`
}

// fromGitHubAPI is Phase A method 4.
func (e *Engine) fromGitHubAPI(ctx context.Context, archiveBasename string) []provresult.RepoSuggestion {
	name := projectName(archiveBasename)
	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	q := url.Values{"q": []string{name}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/search/repositories?"+q.Encode(), nil)
	if err != nil {
		return nil
	}
	if e.GitHubToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.GitHubToken)
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	var parsed githubSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil
	}

	var out []provresult.RepoSuggestion
	lower := strings.ToLower(name)
	for i, item := range parsed.Items {
		if i >= maxReturnedGitHubAPIRepos {
			break
		}
		if !strings.Contains(strings.ToLower(item.HTMLURL), lower) {
			continue
		}
		out = append(out, provresult.RepoSuggestion{
			RepoURL:    item.HTMLURL,
			MethodName: "from_github_api",
			Notes:      "repo found on GitHub (searched for " + name + ")",
			Confidence: 1.0,
		})
	}
	return out
}

// fromRepology is Phase A method 5: fetch the project's Repology
// information page, locate the repository-links section, and extract each
// linked URL that passes the git probe, deduplicated by lowercased URL
// with trailing slash and .git removed.
func (e *Engine) fromRepology(ctx context.Context, archiveBasename string) []provresult.RepoSuggestion {
	name := projectName(archiveBasename)
	pageURL := "https://repology.org/project/" + name + "/information"

	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	links, err := webscrape.ExtractRepologyRepoLinks(resp.Body)
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var out []provresult.RepoSuggestion
	for _, link := range links {
		norm := strings.TrimSuffix(strings.TrimSuffix(strings.ToLower(link), "/"), ".git")
		if seen[norm] {
			continue
		}
		seen[norm] = true
		if !e.Prober.IsGitRepo(ctx, link) {
			continue
		}
		out = append(out, provresult.RepoSuggestion{
			RepoURL:    link,
			MethodName: "from_repology_website",
			Notes:      "repo found on Repology (searched for " + name + ")",
			Confidence: 1.0,
		})
	}
	return out
}

func (e *Engine) timeout() time.Duration {
	if e.HTTPTimeout > 0 {
		return e.HTTPTimeout
	}
	return 5 * time.Second
}

// VersionInfo is the version/date/suffix/commit-hash breakdown of an
// archive basename, per spec.md Phase B.
type VersionInfo struct {
	Version      string
	Date         string
	Suffix       string
	IsCommitHash bool
}

var npPattern = regexp.MustCompile(`^(.+?)p(\d+)$`)

// ExtractVersionInfo peels the recognized archive extension and trailing
// `-<suffix>` segments from source_archive's basename, classifying each
// peeled segment as a date, commit hash, version, or free suffix.
func ExtractVersionInfo(sourceArchive string) (VersionInfo, error) {
	name := strings.ToLower(removeArchiveSuffix(strings.ToLower(sourceArchive)))

	var version, date, suffix string
	var isCommitHash bool

	for {
		lastDash := strings.LastIndex(name, "-")
		if lastDash == -1 {
			if lastUnderscore := strings.LastIndex(name, "_"); lastUnderscore != -1 {
				name = name[:lastUnderscore] + "-" + name[lastUnderscore+1:]
				continue
			}
			version = name
			break
		}
		candidate := name[lastDash+1:]
		switch {
		case isValidDate(candidate):
			date = candidate
			name = name[:lastDash]
			continue
		case isCommitHashStr(candidate):
			isCommitHash = true
			version = candidate
		case isVersionStr(candidate):
			version = candidate
		default:
			suffix = candidate
			name = name[:lastDash]
			continue
		}
		break
	}

	if version == "" {
		return VersionInfo{}, errors.Errorf("could not extract version from %s", sourceArchive)
	}

	if strings.HasPrefix(version, "v") || strings.HasPrefix(version, "r") {
		version = version[1:]
	}
	version = strings.NewReplacer(".", "_", "-", "_").Replace(version)

	if m := npPattern.FindStringSubmatch(version); m != nil {
		version = m[1]
		suffix = m[2]
	}

	return VersionInfo{Version: version, Date: date, Suffix: suffix, IsCommitHash: isCommitHash}, nil
}

func isValidDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func isCommitHashStr(s string) bool {
	if len(s) < 6 || len(s) > 40 {
		return false
	}
	hasAlpha := false
	for _, c := range s {
		if c >= 'a' && c <= 'f' {
			hasAlpha = true
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return hasAlpha
}

func isVersionStr(s string) bool {
	if s == "" {
		return false
	}
	if s[0] >= '0' && s[0] <= '9' {
		return true
	}
	if (strings.HasPrefix(s, "v") || strings.HasPrefix(s, "r")) && len(s) > 1 && s[1] >= '0' && s[1] <= '9' {
		return true
	}
	return false
}

var (
	nonReleaseKeywordsRE = regexp.MustCompile(`\b(dev|devel|candidate|prerelease|alpha|beta|gamma|delta|pre|docs)\b`)
	rcPreDigitsRE        = regexp.MustCompile(`\b(rc|pre)\d+\b`)
	digitsRcPreRE        = regexp.MustCompile(`\d+(rc|pre)\d+\b`)
	glibcDateRE          = regexp.MustCompile(`\d+_\d+_\d+_\d{8}\b`)
	glibc9000RE          = regexp.MustCompile(`\d+_\d+_9000\b`)
)

// IsReleaseTag reports whether a lowercased tag, with '.' already replaced
// by '_', looks like a real release rather than a prerelease/dev marker.
func IsReleaseTag(tag string) bool {
	switch {
	case nonReleaseKeywordsRE.MatchString(tag):
		return false
	case rcPreDigitsRE.MatchString(tag):
		return false
	case digitsRcPreRE.MatchString(tag):
		return false
	case glibcDateRE.MatchString(tag):
		return false
	case glibc9000RE.MatchString(tag):
		return false
	default:
		return true
	}
}

// TagCandidate is a release tag along with its normalized forms.
type TagCandidate struct {
	OriginalTag   string
	CommitHash    string
	NormalizedTag string // lowercased, '.' and '-' replaced with '_'
	SimplifiedTag string // NormalizedTag with '_' removed
}

// BuildTagCandidates filters rawTags to release tags and computes their
// normalized/simplified forms.
func BuildTagCandidates(rawTags []struct{ CommitHash, Tag string }) []TagCandidate {
	var out []TagCandidate
	for _, raw := range rawTags {
		normalized := strings.ReplaceAll(strings.ToLower(raw.Tag), ".", "_")
		if !IsReleaseTag(normalized) {
			continue
		}
		normalized = strings.ReplaceAll(normalized, "-", "_")
		out = append(out, TagCandidate{
			OriginalTag:   raw.Tag,
			CommitHash:    raw.CommitHash,
			NormalizedTag: normalized,
			SimplifiedTag: strings.ReplaceAll(normalized, "_", ""),
		})
	}
	return out
}

// ResolveTag finds the release tag in candidates that best corresponds to
// version/date/suffix, trying matching tiers in the fixed order spec.md
// specifies and breaking ties on archiveStem via verstring.Ratio.
func ResolveTag(archiveStem string, candidates []TagCandidate, info VersionInfo) (commitHash, tag string) {
	tryTier := func(pred func(TagCandidate) bool) (string, string, bool) {
		var matches []TagCandidate
		for _, c := range candidates {
			if pred(c) {
				matches = append(matches, c)
			}
		}
		if len(matches) == 0 {
			return "", "", false
		}
		if len(matches) == 1 {
			return matches[0].CommitHash, matches[0].OriginalTag, true
		}
		best := bestByRatio(archiveStem, matches)
		return best.CommitHash, best.OriginalTag, true
	}

	if info.Date != "" && info.Suffix != "" {
		if h, t, ok := tryTier(func(c TagCandidate) bool {
			return strings.Contains(c.NormalizedTag, info.Version) &&
				strings.Contains(c.NormalizedTag, info.Date) &&
				strings.Contains(c.NormalizedTag, info.Suffix)
		}); ok {
			return h, t
		}
	}
	if info.Date != "" {
		if h, t, ok := tryTier(func(c TagCandidate) bool {
			return strings.Contains(c.NormalizedTag, info.Version) && strings.Contains(c.NormalizedTag, info.Date)
		}); ok {
			return h, t
		}
	}
	if info.Suffix != "" {
		if h, t, ok := tryTier(func(c TagCandidate) bool {
			return strings.Contains(c.NormalizedTag, info.Version) && strings.Contains(c.NormalizedTag, info.Suffix)
		}); ok {
			return h, t
		}
	}
	if h, t, ok := tryTier(func(c TagCandidate) bool {
		return strings.Contains(c.NormalizedTag, info.Version)
	}); ok {
		return h, t
	}

	simplifiedVersion := info.Version
	if strings.HasSuffix(simplifiedVersion, "0") {
		simplifiedVersion = strings.TrimRight(simplifiedVersion, "0") + "0"
	}
	simplifiedVersion = strings.ReplaceAll(simplifiedVersion, "_", "")
	if h, t, ok := tryTier(func(c TagCandidate) bool {
		return strings.Contains(c.SimplifiedTag, simplifiedVersion)
	}); ok {
		return h, t
	}

	return "", ""
}

func bestByRatio(archiveStem string, candidates []TagCandidate) TagCandidate {
	best := candidates[0]
	bestScore := -1.0
	for _, c := range candidates {
		score := verstring.Ratio(archiveStem, c.NormalizedTag)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

// ArchiveStem strips the archive extension from basename, the same
// normalization verify_tag_exists applies before comparing tag similarity.
func ArchiveStem(basename string) string {
	return removeArchiveSuffix(basename)
}
