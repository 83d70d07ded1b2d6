package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// FileStorage stores uploaded manuscript and review files.
type FileStorage interface {
	Upload(ctx context.Context, dir, name string, r io.Reader) (string, error)
	URL(path string) (string, error)
	Open(path string) (*os.File, error)
	Delete(path string) error
}

var allowedUploadTypes = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".odt":  true,
	".tex":  true,
	".zip":  true,
}

// ErrUnsafePath is returned for stored paths that escape the upload root.
var ErrUnsafePath = errors.New("unsafe file path")

type fileClaims struct {
	Path string `json:"path"`
	jwt.RegisteredClaims
}

// LocalFileStorage keeps files on local disk under root and issues
// download links signed with secret.
type LocalFileStorage struct {
	root    string
	secret  []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

func NewLocalFileStorage(root string, secret []byte, ttl time.Duration, baseURL string) *LocalFileStorage {
	if root == "" {
		root = "./uploads"
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &LocalFileStorage{
		root:    root,
		secret:  secret,
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// AllowedUploadType reports whether the file extension may be uploaded.
func AllowedUploadType(name string) bool {
	return allowedUploadTypes[strings.ToLower(filepath.Ext(name))]
}

func safeSegment(s string) string {
	s = filepath.Base(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

// resolve maps a stored relative path to an absolute path under root.
func (s *LocalFileStorage) resolve(path string) (string, error) {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return "", ErrUnsafePath
		}
	}
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	if clean == string(filepath.Separator) {
		return "", ErrUnsafePath
	}
	full := filepath.Join(s.root, clean)
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	fullAbs, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if fullAbs != rootAbs && !strings.HasPrefix(fullAbs, rootAbs+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return fullAbs, nil
}

// Upload writes r to dir/<uuid>_<name> and returns the stored relative path.
func (s *LocalFileStorage) Upload(ctx context.Context, dir, name string, r io.Reader) (string, error) {
	if !AllowedUploadType(name) {
		return "", fmt.Errorf("file type %q not allowed", filepath.Ext(name))
	}
	segments := make([]string, 0, 4)
	for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
		if strings.TrimSpace(seg) == "" || seg == "." || seg == ".." {
			continue
		}
		segments = append(segments, safeSegment(seg))
	}
	rel := filepath.ToSlash(filepath.Join(append(segments, uuid.NewString()+"_"+safeSegment(name))...))

	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(full)
		return "", err
	}
	return rel, nil
}

// URL returns an expiring download link for a stored path.
func (s *LocalFileStorage) URL(path string) (string, error) {
	if _, err := s.resolve(path); err != nil {
		return "", err
	}
	token, err := s.SignPath(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/v1/files/download?token=%s", s.baseURL, url.QueryEscape(token)), nil
}

// SignPath issues the token embedded in download links.
func (s *LocalFileStorage) SignPath(path string) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("file signing secret is not configured")
	}
	now := s.now()
	claims := fileClaims{
		Path: path,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Subject:   "file-download",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyToken checks a download token and returns the stored path it grants.
func (s *LocalFileStorage) VerifyToken(token string) (string, error) {
	claims := &fileClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("invalid or expired download link")
	}
	if _, err := s.resolve(claims.Path); err != nil {
		return "", err
	}
	return claims.Path, nil
}

func (s *LocalFileStorage) Open(path string) (*os.File, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (s *LocalFileStorage) Delete(path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
