package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

var refPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// FilesystemStore implements Store using the local filesystem. Content is
// laid out as <root>/<ref[:2]>/<ref> with a `.meta` sidecar per blob.
// Writes go through a temp file and an atomic rename.
type FilesystemStore struct {
	root string
}

// NewFilesystem returns a filesystem-backed blob store rooted at path,
// creating it if needed.
func NewFilesystem(root string) (*FilesystemStore, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FilesystemStore{root: root}, nil
}

// Driver returns the blob driver identifier.
func (s *FilesystemStore) Driver() Driver { return DriverFilesystem }

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (s *FilesystemStore) pathFor(ref string) (dataPath, metaPath string, err error) {
	if !refPattern.MatchString(ref) {
		return "", "", fmt.Errorf("malformed content ref %q", ref)
	}
	dataPath = filepath.Join(s.root, ref[:2], ref)
	metaPath = dataPath + ".meta"
	return
}

// Store writes the content under its digest; re-storing is a no-op.
func (s *FilesystemStore) Store(_ context.Context, r io.Reader, opts PutOptions) (Info, error) {
	b, ref, err := digest(r)
	if err != nil {
		return Info{}, err
	}
	dataPath, metaPath, err := s.pathFor(ref)
	if err != nil {
		return Info{}, err
	}
	if info, err := s.readMeta(ref, metaPath); err == nil {
		return info, nil
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return Info{}, err
	}
	now := time.Now().UTC()
	mf := metaFile{
		ContentType: opts.ContentType,
		Metadata:    cloneMetadata(opts.Metadata),
		Size:        int64(len(b)),
		CreatedAt:   now,
	}
	raw, err := json.Marshal(mf)
	if err != nil {
		return Info{}, err
	}
	if err := os.WriteFile(metaPath, raw, 0o644); err != nil {
		return Info{}, err
	}
	return Info{
		Ref:          ref,
		Size:         mf.Size,
		ContentType:  mf.ContentType,
		Metadata:     cloneMetadata(mf.Metadata),
		LastModified: now,
	}, nil
}

func (s *FilesystemStore) readMeta(ref, metaPath string) (Info, error) {
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return Info{}, err
	}
	var mf metaFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return Info{}, err
	}
	return Info{
		Ref:          ref,
		Size:         mf.Size,
		ContentType:  mf.ContentType,
		Metadata:     cloneMetadata(mf.Metadata),
		LastModified: mf.CreatedAt,
	}, nil
}

// Fetch returns blob metadata and a read closer to its content.
func (s *FilesystemStore) Fetch(ctx context.Context, ref string) (Info, io.ReadCloser, error) {
	info, err := s.Stat(ctx, ref)
	if err != nil {
		return Info{}, nil, err
	}
	dataPath, _, err := s.pathFor(ref)
	if err != nil {
		return Info{}, nil, err
	}
	f, err := os.Open(dataPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, nil, NotFoundError{Ref: ref}
		}
		return Info{}, nil, err
	}
	return info, f, nil
}

// Stat returns blob metadata only.
func (s *FilesystemStore) Stat(_ context.Context, ref string) (Info, error) {
	_, metaPath, err := s.pathFor(ref)
	if err != nil {
		return Info{}, err
	}
	info, err := s.readMeta(ref, metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, NotFoundError{Ref: ref}
		}
		return Info{}, err
	}
	return info, nil
}

// List returns all blobs ordered by ref ascending.
func (s *FilesystemStore) List(_ context.Context) ([]Info, error) {
	var out []Info
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".meta" {
			return nil
		}
		ref := filepath.Base(path[:len(path)-len(".meta")])
		if !refPattern.MatchString(ref) {
			return nil
		}
		info, err := s.readMeta(ref, path)
		if err != nil {
			return err
		}
		out = append(out, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out, nil
}
