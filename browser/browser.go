package browser

import (
	"errors"
	"fmt"
	"strings"

	pkgbrowser "github.com/pkg/browser"
)

var ErrUnsupportedURL = errors.New("browser: only http and https URLs can be opened")

// launch is replaced in tests.
var launch = pkgbrowser.OpenURL

// OpenURL opens a URL in a new tab of the default browser. Only http and
// https URLs are accepted.
func OpenURL(url string) error {
	url, err := checkURL(url)
	if err != nil {
		return err
	}
	if err := launch(url); err != nil {
		return fmt.Errorf("browser: opening %s: %w", url, err)
	}
	return nil
}

func checkURL(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", errors.New("browser: url is required")
	}
	lower := strings.ToLower(url)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
	}
	return url, nil
}
