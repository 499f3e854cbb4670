package blob

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"drive-go/internal/drive"
)

// ErrInvalidSignature is returned by VerifyLink for tampered or expired links.
var ErrInvalidSignature = errors.New("invalid or expired link")

// FileSystemStore is a filesystem-based implementation of the drive.BlobStore
// interface. Blob paths map to files under root:
//
//	<root>/
//	  <owner>/<file id>/<filename>
type FileSystemStore struct {
	root string
	key  []byte
	now  func() time.Time
}

// NewFileSystemStore creates a store rooted at root. signingKey authenticates
// presigned links; if empty a random key is used, so links do not survive a
// restart.
func NewFileSystemStore(root, signingKey string) (*FileSystemStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}

	key := []byte(signingKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating signing key: %w", err)
		}
	}
	return &FileSystemStore{root: abs, key: key, now: time.Now}, nil
}

// Root returns the absolute store root.
func (s *FileSystemStore) Root() string {
	return s.root
}

// Put stores content at path using an atomic write (temp file + rename).
func (s *FileSystemStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func (s *FileSystemStore) Get(ctx context.Context, path string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.resolve(path)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return drive.ErrBlobNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to open blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read blob: %w", err)
	}
	return nil
}

// Delete removes the blob and any directories it leaves empty below root.
func (s *FileSystemStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return drive.ErrBlobNotFound
		}
		return fmt.Errorf("failed to remove blob: %w", err)
	}

	for dir := filepath.Dir(target); dir != s.root; dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// PresignGet returns a file:// URL for the blob with an expiry and an HMAC
// signature over both. VerifyLink checks it.
func (s *FileSystemStore) PresignGet(ctx context.Context, path string, ttl time.Duration) (string, error) {
	target, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", drive.ErrBlobNotFound
		}
		return "", fmt.Errorf("failed to stat blob: %w", err)
	}

	expires := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(target),
		RawQuery: url.Values{"expires": {expires}, "signature": {s.sign(target, expires)}}.Encode(),
	}
	return u.String(), nil
}

// VerifyLink checks a URL produced by PresignGet and returns the local file
// it grants access to.
func (s *FileSystemStore) VerifyLink(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil || u.Scheme != "file" {
		return "", ErrInvalidSignature
	}
	target := filepath.FromSlash(u.Path)
	expires := u.Query().Get("expires")
	sig, err := hex.DecodeString(u.Query().Get("signature"))
	if err != nil {
		return "", ErrInvalidSignature
	}
	want, _ := hex.DecodeString(s.sign(target, expires))
	if !hmac.Equal(sig, want) {
		return "", ErrInvalidSignature
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || s.now().Unix() > exp {
		return "", ErrInvalidSignature
	}
	return target, nil
}

// ValidateSetup verifies that the root is an accessible directory.
func (s *FileSystemStore) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("blob root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob root is not a directory: %s", s.root)
	}
	tmp, err := os.CreateTemp(s.root, ".write-check-*")
	if err != nil {
		return fmt.Errorf("blob root not writable: %w", err)
	}
	tmp.Close()
	return os.Remove(tmp.Name())
}

// resolve maps a blob path to a file under root, rejecting paths that would
// escape it.
func (s *FileSystemStore) resolve(path string) (string, error) {
	rel := filepath.FromSlash(path)
	if path == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	return filepath.Join(s.root, rel), nil
}

func (s *FileSystemStore) sign(target, expires string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(target))
	mac.Write([]byte{0})
	mac.Write([]byte(expires))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ drive.BlobStore = (*FileSystemStore)(nil)
