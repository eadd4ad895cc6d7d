package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"

	"github.com/supportops/support-digest/internal/digest"
)

// Source executes the digest's search and comment queries against the
// GitHub API. It satisfies digest.Source.
type Source struct {
	Client *github.Client
	Logger *slog.Logger
}

// CreatedSince returns issues created at or after since, newest first.
func (s *Source) CreatedSince(ctx context.Context, org string, labels []string, since time.Time) ([]digest.TrackedItem, error) {
	return s.search(ctx, buildQuery(org, labels, "created", since), "created")
}

// UpdatedSince returns issues updated at or after since, newest first.
func (s *Source) UpdatedSince(ctx context.Context, org string, labels []string, since time.Time) ([]digest.TrackedItem, error) {
	return s.search(ctx, buildQuery(org, labels, "updated", since), "updated")
}

// buildQuery renders a search expression like
//
//	is:issue label:"support::orbit" org:acme created:>2024-03-10T09:00:00Z
//
// Every label is required; issues missing one never enter the pipeline.
func buildQuery(org string, labels []string, field string, since time.Time) string {
	parts := []string{"is:issue"}
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("label:%q", label))
	}
	parts = append(parts, "org:"+org)
	parts = append(parts, fmt.Sprintf("%s:>%s", field, since.UTC().Format(time.RFC3339)))
	return strings.Join(parts, " ")
}

func (s *Source) search(ctx context.Context, query, sort string) ([]digest.TrackedItem, error) {
	s.Logger.Debug("searching issues", "query", query)

	opts := &github.SearchOptions{
		Sort:  sort,
		Order: "desc",
		ListOptions: github.ListOptions{
			Page:    1,
			PerPage: 100,
		},
	}

	var items []digest.TrackedItem
	for {
		result, resp, err := s.Client.Search.Issues(ctx, query, opts)
		if err != nil {
			if enhancedErr := enhanceGitHubError(err, query); enhancedErr != nil {
				return nil, enhancedErr
			}
			return nil, fmt.Errorf("searching issues: %w", err)
		}

		for _, issue := range result.Issues {
			items = append(items, toTrackedItem(issue))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	s.Logger.Debug("search completed", "sort", sort, "total", len(items))
	return items, nil
}

// Comments returns the full comment history for an item, oldest first. The
// history is deliberately unbounded: window annotation happens downstream
// and summaries need the older comments for context.
func (s *Source) Comments(ctx context.Context, item digest.TrackedItem) ([]digest.CommentRecord, error) {
	s.Logger.Debug("fetching comments", "item", item.Key())

	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{
			Page:    1,
			PerPage: 100,
		},
	}

	var records []digest.CommentRecord
	for {
		comments, resp, err := s.Client.Issues.ListComments(ctx, item.Owner, item.Repo, item.Number, opts)
		if err != nil {
			if enhancedErr := enhanceGitHubError(err, item.Key()); enhancedErr != nil {
				return nil, enhancedErr
			}
			return nil, fmt.Errorf("fetching comments for %s: %w", item.Key(), err)
		}

		for _, c := range comments {
			records = append(records, digest.CommentRecord{
				Type:      "comment",
				Author:    c.GetUser().GetLogin(),
				Body:      c.GetBody(),
				CreatedAt: c.GetCreatedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	s.Logger.Debug("comments fetched", "item", item.Key(), "total", len(records))
	return records, nil
}

// toTrackedItem converts a search result. Search results carry the
// repository only as an API URL, so owner and short name come from its last
// two path segments.
func toTrackedItem(issue *github.Issue) digest.TrackedItem {
	owner, repo := splitRepositoryURL(issue.GetRepositoryURL())

	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	return digest.TrackedItem{
		Title:     issue.GetTitle(),
		Number:    issue.GetNumber(),
		Repo:      repo,
		Owner:     owner,
		Labels:    labels,
		Body:      issue.GetBody(),
		URL:       issue.GetHTMLURL(),
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
		State:     issue.GetState(),
	}
}

func splitRepositoryURL(url string) (owner, repo string) {
	parts := strings.Split(strings.TrimSuffix(url, "/"), "/")
	if len(parts) < 2 {
		return "", ""
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}

// enhanceGitHubError maps common GitHub API failures to messages that say
// what to fix. It returns nil when no enhancement applies.
func enhanceGitHubError(err error, subject string) error {
	if ghErr, ok := err.(*github.ErrorResponse); ok {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("GitHub API authentication failed for %s. Please check your GH_TOKEN is valid and has the required permissions", subject)

		case http.StatusForbidden:
			if strings.Contains(strings.ToLower(ghErr.Message), "sso") ||
				strings.Contains(strings.ToLower(ghErr.Message), "organization") {
				return fmt.Errorf("GitHub API access denied for %s. Your token may require SSO authorization for this organization. Visit: https://github.com/settings/tokens and authorize your token for SSO", subject)
			}
			return fmt.Errorf("GitHub API access denied for %s. Your token may not have sufficient permissions to access this repository", subject)

		case http.StatusNotFound:
			return fmt.Errorf("GitHub resource %s not found. This could mean the repository is private and your token lacks access, or the issue doesn't exist", subject)
		}
	}

	if strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline exceeded") {
		return fmt.Errorf("GitHub API request timed out for %s. Please check your network connection and try again", subject)
	}

	return nil
}
