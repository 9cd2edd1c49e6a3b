package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// listPageSize is the $top value for children requests.
// 200 is the maximum allowed by the Graph API for drive item collections.
const listPageSize = 200

// Entry is a normalized, read-only view of a remote drive item. Entries are
// always freshly listed — nothing in the bot caches them across
// interactions, so a stale keyboard is at worst one navigation old.
type Entry struct {
	ID       string
	Name     string
	IsFolder bool
	Size     int64
	WebURL   string
}

// driveItemResponse mirrors the Graph API driveItem JSON exactly.
// Unexported — callers use Entry via toEntry() normalization.
type driveItemResponse struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Size   int64            `json:"size"`
	WebURL string           `json:"webUrl"`
	Folder *json.RawMessage `json:"folder"`
}

// toEntry normalizes a Graph API driveItem response into an Entry.
func (d *driveItemResponse) toEntry() Entry {
	return Entry{
		ID:       d.ID,
		Name:     d.Name,
		IsFolder: d.Folder != nil,
		Size:     d.Size,
		WebURL:   d.WebURL,
	}
}

type listChildrenResponse struct {
	Value    []driveItemResponse `json:"value"`
	NextLink string              `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

// RootFolder is the sentinel folder reference for the drive root.
const RootFolder = ""

// childrenPath returns the API path listing the children of folderID,
// or of the drive root for the RootFolder sentinel.
func childrenPath(folderID string) string {
	if folderID == RootFolder {
		return fmt.Sprintf("/me/drive/root/children?$top=%d", listPageSize)
	}

	return fmt.Sprintf("/me/drive/items/%s/children?$top=%d", folderID, listPageSize)
}

// ListChildren returns all children of a folder, following @odata.nextLink
// pagination until the listing is complete. folderID may be RootFolder.
func (c *Client) ListChildren(ctx context.Context, folderID string) ([]Entry, error) {
	c.logger.Info("listing children", slog.String("folder_id", folderID))

	apiPath := childrenPath(folderID)

	var entries []Entry

	page := 1

	for apiPath != "" {
		pageEntries, nextPath, err := c.listChildrenPage(ctx, apiPath, page)
		if err != nil {
			return nil, err
		}

		entries = append(entries, pageEntries...)
		apiPath = nextPath
		page++
	}

	c.logger.Info("listed children complete",
		slog.String("folder_id", folderID),
		slog.Int("total_entries", len(entries)),
	)

	return entries, nil
}

// listChildrenPage fetches a single page of children and returns the entries
// and the next page path (empty if no more pages).
func (c *Client) listChildrenPage(ctx context.Context, path string, page int) ([]Entry, string, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var lcr listChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lcr); err != nil {
		return nil, "", fmt.Errorf("graph: decoding children response: %w", err)
	}

	entries := make([]Entry, 0, len(lcr.Value))
	for i := range lcr.Value {
		entries = append(entries, lcr.Value[i].toEntry())
	}

	c.logger.Debug("fetched children page",
		slog.Int("page", page),
		slog.Int("count", len(entries)),
	)

	var nextPath string
	if lcr.NextLink != "" {
		var stripErr error

		nextPath, stripErr = c.stripBaseURL(lcr.NextLink)
		if stripErr != nil {
			return nil, "", stripErr
		}
	}

	return entries, nextPath, nil
}

// stripBaseURL removes the client's base URL prefix from a full URL,
// returning the path + query string for use with Do().
// Returns an error if the URL doesn't start with the expected base.
func (c *Client) stripBaseURL(fullURL string) (string, error) {
	if !strings.HasPrefix(fullURL, c.baseURL) {
		return "", fmt.Errorf("graph: nextLink URL %q does not match base URL %q", fullURL, c.baseURL)
	}

	return fullURL[len(c.baseURL):], nil
}

// GetItem retrieves a single drive item by ID.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Entry, error) {
	c.logger.Info("getting item", slog.String("item_id", itemID))

	resp, err := c.Do(ctx, http.MethodGet, "/me/drive/items/"+itemID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding item response: %w", err)
	}

	entry := dir.toEntry()

	return &entry, nil
}
