package bot

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/rcmario/drivelinkbot/internal/graph"
)

// resolveLandingFolder walks the configured landing_path from the drive
// root, one listing per segment. Matching is case-insensitive on
// NFC-normalized names so a folder renamed between composed and decomposed
// Unicode forms still resolves. An empty path lands on the root itself.
//
// Resolution always runs fresh. Folder IDs are never cached across
// interactions, so a landing folder that was deleted and recreated keeps
// working.
func (b *Bot) resolveLandingFolder(ctx context.Context) (string, error) {
	path := b.cfg.Config().Browse.LandingPath
	if path == "" {
		return graph.RootFolder, nil
	}

	currentID := graph.RootFolder

	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}

		var entries []graph.Entry

		err := b.withAuthRetry(ctx, func() error {
			listed, listErr := b.graph.ListChildren(ctx, currentID)
			if listErr != nil {
				return listErr
			}

			entries = listed

			return nil
		})
		if err != nil {
			return "", fmt.Errorf("bot: resolving landing folder %q: %w", path, err)
		}

		nextID, found := matchFolder(entries, segment)
		if !found {
			return "", fmt.Errorf("bot: landing folder %q: no folder named %q: %w",
				path, segment, graph.ErrNotFound)
		}

		currentID = nextID
	}

	return currentID, nil
}

// matchFolder finds a folder entry by name, case-insensitively on
// NFC-normalized forms.
func matchFolder(entries []graph.Entry, name string) (string, bool) {
	want := foldName(name)

	for _, entry := range entries {
		if entry.IsFolder && foldName(entry.Name) == want {
			return entry.ID, true
		}
	}

	return "", false
}

// foldName normalizes a folder name for comparison.
func foldName(name string) string {
	return strings.ToLower(norm.NFC.String(name))
}
