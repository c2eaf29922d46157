package ingestion

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL accepts only https URLs with a host and without credentials. It never touches
// the network.
func ValidateURL(repoURL string) error {
	if strings.TrimSpace(repoURL) == "" {
		return NewErrInvalidRepositoryURL("Repository URL must be a non-empty string.")
	}
	if !strings.HasPrefix(repoURL, "https://") {
		return NewErrInvalidRepositoryURL(fmt.Sprintf("Only HTTPS URLs are supported for security. Got: %s", repoURL))
	}

	u, err := url.Parse(repoURL)
	if err != nil {
		return NewErrInvalidRepositoryURL(fmt.Sprintf("Repository URL is malformed: %v", err))
	}
	if u.User != nil {
		return NewErrInvalidRepositoryURL("Repository URL must not contain embedded credentials.")
	}
	if u.Hostname() == "" {
		return NewErrInvalidRepositoryURL(fmt.Sprintf("Repository URL has no host: %s", repoURL))
	}
	return nil
}
