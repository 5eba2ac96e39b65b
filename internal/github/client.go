// Package github fetches repository data from the GitHub REST API: commit
// windows, contributors, issues, file change counts, and dependencies.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://api.github.com"

// fileChangeCommitWindow bounds how many commits are inspected for file
// change counts, to avoid burning through the API rate limit.
const fileChangeCommitWindow = 100

// Client calls the GitHub REST API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a GitHub client. token may be empty for anonymous access;
// baseURL defaults to the public API when empty.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Commit is one commit from the repository history.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  Author `json:"author"`
}

// Author identifies who wrote a commit.
type Author struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

// Contributor is one repository contributor.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
	AvatarURL     string `json:"avatar_url"`
}

// Issue is one repository issue.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is the full set of repository data fetched for an analysis.
type Snapshot struct {
	TotalCommits int               `json:"total_commits"`
	Commits      []Commit          `json:"commits"`
	Contributors []Contributor     `json:"contributors"`
	Issues       []Issue           `json:"issues"`
	FileChanges  map[string]int    `json:"file_changes"`
	Dependencies map[string]string `json:"dependencies"`
}

var repoURLPattern = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)

// ParseRepoURL extracts owner and repo from a GitHub repository URL.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	m := repoURLPattern.FindStringSubmatch(strings.TrimSpace(repoURL))
	if m == nil {
		return "", "", fmt.Errorf("invalid GitHub repository URL: %s", repoURL)
	}
	return m[1], m[2], nil
}

// Snapshot fetches everything an analysis needs in one pass. The independent
// fetches run concurrently; the commit window drives both the stored activity
// data and the ingestion pipeline.
func (c *Client) Snapshot(ctx context.Context, owner, repo string, commitLimit int) (*Snapshot, error) {
	snap := &Snapshot{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.TotalCommits, err = c.TotalCommits(ctx, owner, repo)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Commits, err = c.Commits(ctx, owner, repo, commitLimit)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Contributors, err = c.Contributors(ctx, owner, repo)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Issues, err = c.Issues(ctx, owner, repo)
		return err
	})
	g.Go(func() error {
		var err error
		snap.FileChanges, err = c.FileChanges(ctx, owner, repo)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Dependencies, err = c.Dependencies(ctx, owner, repo)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

type apiCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Files []struct {
		Filename string `json:"filename"`
	} `json:"files"`
}

// Commits fetches up to limit commits, newest first.
func (c *Client) Commits(ctx context.Context, owner, repo string, limit int) ([]Commit, error) {
	commits := make([]Commit, 0, limit)
	page := 1
	for len(commits) < limit {
		perPage := min(limit-len(commits), 100)
		var raw []apiCommit
		path := fmt.Sprintf("/repos/%s/%s/commits?per_page=%d&page=%d", owner, repo, perPage, page)
		if _, err := c.get(ctx, path, &raw); err != nil {
			return nil, err
		}
		for _, rc := range raw {
			commits = append(commits, Commit{
				SHA:     rc.SHA,
				Message: rc.Commit.Message,
				Author: Author{
					Name:  rc.Commit.Author.Name,
					Email: rc.Commit.Author.Email,
					Date:  rc.Commit.Author.Date,
				},
			})
		}
		if len(raw) < perPage {
			break
		}
		page++
	}
	return commits, nil
}

var lastPagePattern = regexp.MustCompile(`[?&]page=(\d+)>; rel="last"`)

// TotalCommits counts commits on the default branch using the Link header of
// a single-commit page, avoiding a full history walk.
func (c *Client) TotalCommits(ctx context.Context, owner, repo string) (int, error) {
	var raw []apiCommit
	header, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/commits?per_page=1", owner, repo), &raw)
	if err != nil {
		return 0, err
	}
	m := lastPagePattern.FindStringSubmatch(header.Get("Link"))
	if m == nil {
		// A single page of history has no rel="last" link.
		return len(raw), nil
	}
	total, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parsing Link header: %w", err)
	}
	return total, nil
}

// Contributors fetches the repository contributor list.
func (c *Client) Contributors(ctx context.Context, owner, repo string) ([]Contributor, error) {
	var contributors []Contributor
	if _, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/contributors?per_page=100", owner, repo), &contributors); err != nil {
		return nil, err
	}
	return contributors, nil
}

// Issues fetches issues in any state.
func (c *Client) Issues(ctx context.Context, owner, repo string) ([]Issue, error) {
	var issues []Issue
	if _, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/issues?state=all&per_page=100", owner, repo), &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// FileChanges counts how often each file was touched across the most recent
// commits. Per-commit detail fetch failures are skipped rather than failing
// the whole aggregation.
func (c *Client) FileChanges(ctx context.Context, owner, repo string) (map[string]int, error) {
	recent, err := c.Commits(ctx, owner, repo, fileChangeCommitWindow)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, commit := range recent {
		var detail apiCommit
		if _, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/commits/%s", owner, repo, commit.SHA), &detail); err != nil {
			continue
		}
		for _, f := range detail.Files {
			counts[f.Filename]++
		}
	}
	return counts, nil
}

type contentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type packageJSON struct {
	Dependencies map[string]string `json:"dependencies"`
}

// Dependencies reads the repository's package.json dependency map. A missing
// manifest yields an empty map, not an error.
func (c *Client) Dependencies(ctx context.Context, owner, repo string) (map[string]string, error) {
	var content contentResponse
	_, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, url.PathEscape("package.json")), &content)
	if err != nil {
		if isNotFound(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decoding package.json: %w", err)
	}

	var pkg packageJSON
	if err := json.Unmarshal(decoded, &pkg); err != nil {
		return nil, fmt.Errorf("parsing package.json: %w", err)
	}
	if pkg.Dependencies == nil {
		return map[string]string{}, nil
	}
	return pkg.Dependencies, nil
}

// statusError carries the HTTP status of a failed API call.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GitHub API returned %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

func (c *Client) get(ctx context.Context, path string, out any) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling GitHub: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{status: resp.StatusCode, body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return resp.Header, nil
}
