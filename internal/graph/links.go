package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Share-link parameters: anyone with the link may view.
const (
	linkTypeView   = "view"
	scopeAnonymous = "anonymous"
)

// permissionResponse mirrors one element of the Graph API permissions array.
type permissionResponse struct {
	Link *permissionLink `json:"link"`
}

type permissionLink struct {
	WebURL string `json:"webUrl"`
	Type   string `json:"type"`
	Scope  string `json:"scope"`
}

type listPermissionsResponse struct {
	Value []permissionResponse `json:"value"`
}

type createLinkRequest struct {
	Type  string `json:"type"`
	Scope string `json:"scope"`
}

type createLinkResponse struct {
	Link *permissionLink `json:"link"`
}

// ShareLink returns an anonymous view link for the given file, reusing an
// existing permission when one is present and creating one otherwise. The
// returned URL is rewritten into direct-download form.
func (c *Client) ShareLink(ctx context.Context, fileID string) (string, error) {
	c.logger.Info("resolving share link", slog.String("file_id", fileID))

	if link, ok, err := c.existingShareLink(ctx, fileID); err != nil {
		return "", err
	} else if ok {
		c.logger.Debug("reusing existing share link", slog.String("file_id", fileID))
		return link, nil
	}

	return c.createShareLink(ctx, fileID)
}

// existingShareLink scans current permissions for a reusable anonymous view
// link. Returns ok=false when none exists.
func (c *Client) existingShareLink(ctx context.Context, fileID string) (string, bool, error) {
	path := fmt.Sprintf("/me/drive/items/%s/permissions", fileID)

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	var lpr listPermissionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&lpr); err != nil {
		return "", false, fmt.Errorf("graph: decoding permissions response: %w", err)
	}

	for _, perm := range lpr.Value {
		if perm.Link == nil || perm.Link.WebURL == "" {
			continue
		}

		if perm.Link.Scope == scopeAnonymous && perm.Link.Type == linkTypeView {
			return downloadableURL(perm.Link.WebURL), true, nil
		}
	}

	return "", false, nil
}

// createShareLink mints a new anonymous view link (HTTP 201 on success;
// Graph returns 200 when an equivalent link already existed — both are
// success to Do).
func (c *Client) createShareLink(ctx context.Context, fileID string) (string, error) {
	path := fmt.Sprintf("/me/drive/items/%s/createLink", fileID)

	bodyBytes, err := json.Marshal(createLinkRequest{Type: linkTypeView, Scope: scopeAnonymous})
	if err != nil {
		return "", fmt.Errorf("graph: marshaling createLink request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, path, bodyBytes)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var clr createLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&clr); err != nil {
		return "", fmt.Errorf("graph: decoding createLink response: %w", err)
	}

	if clr.Link == nil || clr.Link.WebURL == "" {
		return "", fmt.Errorf("graph: createLink response missing link for item %s", fileID)
	}

	c.logger.Info("created share link", slog.String("file_id", fileID))

	return downloadableURL(clr.Link.WebURL), nil
}

// downloadableURL strips any existing query string from a share URL and
// appends download=1, which makes OneDrive serve the file bytes instead of
// the preview page.
func downloadableURL(webURL string) string {
	if i := strings.IndexByte(webURL, '?'); i >= 0 {
		webURL = webURL[:i]
	}

	return webURL + "?download=1"
}
