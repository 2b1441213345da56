// Package fetch resolves a source document reference (local path, file://,
// http(s):// or s3://) to a local file path the extractor can read.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Options configures source acquisition.
type Options struct {
	// AccessKey/SecretKey select static AWS credentials; empty means the
	// default provider chain.
	AccessKey string
	SecretKey string
	Region    string
	// Password decrypts encrypted source blobs (see decrypt.go). Empty
	// means sources are stored in the clear.
	Password string
}

// EnsureLocal returns a local path for ref and a cleanup func releasing any
// temp file. An optional "#fragment" suffix on ref is ignored.
func EnsureLocal(ctx context.Context, ref string, opts Options) (string, func(), error) {
	if i := strings.Index(ref, "#"); i >= 0 {
		ref = ref[:i]
	}
	noop := func() {}
	switch {
	case strings.HasPrefix(ref, "file://"):
		return strings.TrimPrefix(ref, "file://"), noop, nil
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		p, err := downloadHTTPToTemp(ctx, ref)
		if err != nil {
			return "", noop, err
		}
		return maybeDecryptTemp(p, opts.Password)
	case strings.HasPrefix(ref, "s3://"):
		p, err := downloadS3ToTemp(ctx, ref, opts)
		if err != nil {
			return "", noop, err
		}
		return maybeDecryptTemp(p, opts.Password)
	default:
		return ref, noop, nil
	}
}

func downloadHTTPToTemp(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d fetching %s", resp.StatusCode, url)
	}
	f, err := os.CreateTemp("", "packext-src-*")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func downloadS3ToTemp(ctx context.Context, s3url string, opts Options) (string, error) {
	path := strings.TrimPrefix(s3url, "s3://")
	slash := strings.Index(path, "/")
	if slash <= 0 {
		return "", fmt.Errorf("invalid s3 url: %s", s3url)
	}
	bucket, key := path[:slash], path[slash+1:]

	loadOpts := []func(*awscfg.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}

	f, err := os.CreateTemp("", "packext-src-*")
	if err != nil {
		return "", err
	}
	defer f.Close()

	downloader := manager.NewDownloader(s3.NewFromConfig(cfg))
	n, err := downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("s3 download %s: %w", s3url, err)
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Int64("bytes", n).Msg("downloaded source from s3")
	return f.Name(), nil
}

// maybeDecryptTemp replaces an encrypted temp download with its plaintext.
// Unencrypted blobs pass through untouched.
func maybeDecryptTemp(path, password string) (string, func(), error) {
	cleanup := func() { os.Remove(path) }
	data, err := os.ReadFile(path)
	if err != nil {
		cleanup()
		return "", func() {}, err
	}
	if !isEncrypted(data) {
		return path, cleanup, nil
	}
	if password == "" {
		cleanup()
		return "", func() {}, fmt.Errorf("source is encrypted but no password is configured")
	}
	plain, err := decrypt(data, password)
	if err != nil {
		cleanup()
		return "", func() {}, err
	}
	if err := os.WriteFile(path, plain, 0o600); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return path, cleanup, nil
}
