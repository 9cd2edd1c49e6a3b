// Package tokenfile persists the single OneDrive bearer credential. The file
// holds one OAuth2 token with an absolute expiry — the expiry is fixed when
// the token is issued and is never re-derived at load time, only compared to
// the clock. This is a leaf package imported by auth/ so the lifecycle
// manager never touches the filesystem directly.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the tokens directory.
const DirPerms = 0o700

// File is the on-disk format. Scopes are recorded alongside the token so an
// operator can see what was granted without decoding the access token.
type File struct {
	Token  *oauth2.Token `json:"token"`
	Scopes []string      `json:"scopes,omitempty"`
}

// LoadReport carries non-fatal detail about a Load: granted scopes on
// success, or the reason a stored credential was unusable.
type LoadReport struct {
	Scopes   []string
	Degraded bool
	Reason   string
}

// Load reads the saved credential from disk. A missing file returns
// (nil, zero, nil): the caller treats that as "not logged in" and starts the
// device flow. A corrupt or unreadable file also degrades to a nil token —
// forcing re-authentication is always safe, while failing hard would wedge
// the bot until someone deletes the file by hand. The underlying problem is
// reported through the LoadReport for logging.
func Load(path string) (*oauth2.Token, LoadReport, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, LoadReport{}, nil
	}

	if err != nil {
		return nil, LoadReport{Degraded: true, Reason: err.Error()}, nil
	}

	var tf File
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, LoadReport{Degraded: true, Reason: fmt.Sprintf("decoding %s: %v", path, err)}, nil
	}

	if tf.Token == nil || tf.Token.AccessToken == "" {
		return nil, LoadReport{Degraded: true, Reason: fmt.Sprintf("%s missing token field", path)}, nil
	}

	return tf.Token, LoadReport{Scopes: tf.Scopes}, nil
}

// Save writes the credential to disk atomically (write-to-temp + rename)
// with 0600 permissions. The whole file is replaced on every save — there is
// no partial update, so a reader never observes a half-written credential.
// Never logs token values.
func Save(path string, tok *oauth2.Token, scopes []string) error {
	if tok == nil {
		return errors.New("tokenfile: nil token")
	}

	tf := File{Token: tok, Scopes: scopes}

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	// Clean up temp file on any error path.
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	// Flush to stable storage before rename so a power loss between close and
	// rename cannot leave an empty or partial token file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Remove deletes the credential file. Returns nil if it does not exist
// (already logged out).
func Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}
