package services

import (
	"context"
	"fmt"

	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

// GitHubService fetches single files from GitHub so they can be run
// through the analysis pipeline without the caller pasting code by hand.
type GitHubService struct {
	Client *github.Client
}

// NewGitHubService builds the client. Without a token it talks to the
// public API anonymously, which is enough for public repositories at low
// request volume.
func NewGitHubService(token string) *GitHubService {
	if token == "" {
		return &GitHubService{Client: github.NewClient(nil)}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return &GitHubService{Client: github.NewClient(tc)}
}

// FetchFile returns the decoded content of one file. ref may be empty to
// use the repository's default branch.
func (gs *GitHubService) FetchFile(ctx context.Context, owner, repo, path, ref string) (string, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}

	fileContent, _, _, err := gs.Client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s/%s/%s: %w", owner, repo, path, err)
	}
	if fileContent == nil {
		return "", fmt.Errorf("%s/%s/%s is a directory, not a file", owner, repo, path)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode %s/%s/%s: %w", owner, repo, path, err)
	}
	return content, nil
}
