package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

// errBadHTTPStatus is returned for any non-success response status.
var errBadHTTPStatus = errors.New("unexpected http status")

// FetchPage retrieves url and returns its body as text. It is used for the
// vendor's download-listing page, which the locator consumes as raw markup.
func FetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build page request: %w", err)
	}

	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s, %s: %w", url, response.Status, errBadHTTPStatus)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	return string(body), nil
}

// Download retrieves the content of url and persists it to a fresh file under
// the system temporary directory, returning the file's path. Acquisition is
// attempted exactly once; any network error or non-success status is fatal to
// the caller. The caller owns deleting the returned file.
func Download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s, %s: %w", url, response.Status, errBadHTTPStatus)
	}

	outputFile, err := os.CreateTemp("", "pg-provision-archive-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temporary archive: %w", err)
	}

	if _, err = io.Copy(outputFile, response.Body); err != nil {
		_ = outputFile.Close()
		_ = os.Remove(outputFile.Name())

		return "", fmt.Errorf("save %s: %w", url, err)
	}

	if err = outputFile.Close(); err != nil {
		_ = os.Remove(outputFile.Name())

		return "", fmt.Errorf("close temporary archive: %w", err)
	}

	return outputFile.Name(), nil
}
