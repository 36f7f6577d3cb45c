package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

const maxMediaBytes = 16 << 20

// FetchMedia downloads an image to forward it through the gateway. The
// returned name is the last path segment of the URL.
func FetchMedia(ctx context.Context, client *http.Client, imageURL string) ([]byte, string, error) {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch media: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, "", err
	}

	name := path.Base(req.URL.Path)
	if name == "" || name == "/" || name == "." {
		name = "image.jpg"
	}
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	return data, name, nil
}
