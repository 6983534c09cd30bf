// file: internals/helpers/oss/export_store.go
package helper

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"
)

// ExportStore keeps generated report files and hands back a URL to fetch them.
type ExportStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Reap(ctx context.Context, olderThan time.Duration) (int, error)
}

// ExportName builds "<prefix>_<yyyymmdd_hhmmss>_<rand>.<ext>".
func ExportName(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.%s", prefix, now.Format("20060102_150405"), randHex(3), strings.TrimPrefix(ext, "."))
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

/* =======================================================================
   OSS (signed URLs)
======================================================================= */

type OSSService struct {
	Bucket     *oss.Bucket
	BucketName string
	Prefix     string
	SignTTL    time.Duration
}

type OSSConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Prefix          string
	SignTTL         time.Duration
}

func (c OSSConfig) Complete() bool {
	return c.Endpoint != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

func NewOSSService(cfg OSSConfig) (*OSSService, error) {
	if !cfg.Complete() {
		return nil, errors.New("missing OSS endpoint/access key/secret/bucket")
	}
	client, err := oss.New(normalizeEndpoint(cfg.Endpoint), cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, errors.Wrap(err, "oss.New")
	}
	bkt, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "client.Bucket")
	}
	if cfg.SignTTL <= 0 {
		cfg.SignTTL = 15 * time.Minute
	}
	return &OSSService{
		Bucket:     bkt,
		BucketName: cfg.Bucket,
		Prefix:     strings.Trim(cfg.Prefix, "/"),
		SignTTL:    cfg.SignTTL,
	}, nil
}

func (s *OSSService) key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return s.Prefix + "/" + name
}

// Put uploads the file privately and returns a time-limited GET URL.
func (s *OSSService) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := s.key(name)
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition(fmt.Sprintf("attachment; filename=%q", name)),
	}
	if err := s.Bucket.PutObject(key, bytes.NewReader(data), opts...); err != nil {
		return "", errors.Wrap(err, "put export")
	}
	url, err := s.Bucket.SignURL(key, oss.HTTPGet, int64(s.SignTTL.Seconds()))
	if err != nil {
		return "", errors.Wrap(err, "sign export url")
	}
	return url, nil
}

func (s *OSSService) Reap(ctx context.Context, olderThan time.Duration) (int, error) {
	threshold := time.Now().Add(-olderThan)
	prefix := s.key("")

	marker := oss.Marker("")
	var keys []string
	for {
		lor, err := s.Bucket.ListObjects(oss.Prefix(prefix), marker, oss.MaxKeys(1000), oss.WithContext(ctx))
		if err != nil {
			return 0, err
		}
		for _, obj := range lor.Objects {
			if obj.Key != "" && obj.LastModified.Before(threshold) {
				keys = append(keys, obj.Key)
			}
		}
		if !lor.IsTruncated {
			break
		}
		marker = oss.Marker(lor.NextMarker)
	}

	deleted := 0
	for i := 0; i < len(keys); i += 1000 {
		end := i + 1000
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[i:end]
		if _, err := s.Bucket.DeleteObjects(batch, oss.DeleteObjectsQuiet(true), oss.WithContext(ctx)); err != nil {
			log.Printf("[EXPORT-REAPER] delete batch %d-%d failed: %v", i, end, err)
			continue
		}
		deleted += len(batch)
	}
	return deleted, nil
}

func normalizeEndpoint(ep string) string {
	ep = strings.TrimSpace(ep)
	if ep == "" || strings.HasPrefix(ep, "http://") || strings.HasPrefix(ep, "https://") {
		return ep
	}
	return "https://" + ep
}

/* =======================================================================
   Local directory (served by the API)
======================================================================= */

type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create export dir %s", dir)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *LocalStore) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	name = filepath.Base(name)
	if err := os.WriteFile(filepath.Join(l.Dir, name), data, 0o644); err != nil {
		return "", errors.Wrap(err, "write export")
	}
	return l.BaseURL + "/" + name, nil
}

// Path resolves a served file name; anything that is not a plain file name is rejected.
func (l *LocalStore) Path(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", false
	}
	p := filepath.Join(l.Dir, name)
	if st, err := os.Stat(p); err != nil || st.IsDir() {
		return "", false
	}
	return p, true
}

func (l *LocalStore) Reap(_ context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return 0, err
	}
	threshold := time.Now().Add(-olderThan)
	deleted := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(threshold) {
			continue
		}
		if err := os.Remove(filepath.Join(l.Dir, e.Name())); err == nil {
			deleted++
		}
	}
	return deleted, nil
}
