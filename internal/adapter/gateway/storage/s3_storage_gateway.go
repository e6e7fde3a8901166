package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
)

// S3StorageGateway implements DocumentStorageGateway on an S3 bucket.
// Documents live at s3://<bucket>/<prefix>/<name>.
type S3StorageGateway struct {
	client     S3API
	bucketName string
	prefix     string
}

// S3Config holds S3 storage gateway configuration
type S3Config struct {
	BucketName string
	Prefix     string // Optional key prefix, e.g. "scenes"
	Region     string // Uses the SDK default chain when empty
}

// NewS3StorageGateway creates a gateway using the default AWS credential chain
func NewS3StorageGateway(ctx context.Context, cfg S3Config) (*S3StorageGateway, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return NewS3StorageGatewayWithClient(s3.NewFromConfig(awsCfg), cfg.BucketName, cfg.Prefix), nil
}

// NewS3StorageGatewayWithClient creates a gateway over a given client
func NewS3StorageGatewayWithClient(client S3API, bucketName, prefix string) *S3StorageGateway {
	return &S3StorageGateway{
		client:     client,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
	}
}

// ReadDocument downloads a document
func (g *S3StorageGateway) ReadDocument(ctx context.Context, name string) ([]byte, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucketName),
		Key:    aws.String(g.key(name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%s: %w", name, output.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("get object %s: %w", g.key(name), err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", g.key(name), err)
	}
	return content, nil
}

// WriteDocument uploads a document, replacing any existing object
func (g *S3StorageGateway) WriteDocument(ctx context.Context, name string, content []byte) error {
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucketName),
		Key:         aws.String(g.key(name)),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentTypeFor(name)),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", g.key(name), err)
	}
	return nil
}

// ListDocuments lists document names directly under the prefix
func (g *S3StorageGateway) ListDocuments(ctx context.Context) ([]string, error) {
	listPrefix := ""
	if g.prefix != "" {
		listPrefix = g.prefix + "/"
	}

	var names []string
	paginator := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucketName),
		Prefix: aws.String(listPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), listPrefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Location returns the s3:// URL of the document prefix
func (g *S3StorageGateway) Location() string {
	if g.prefix == "" {
		return fmt.Sprintf("s3://%s", g.bucketName)
	}
	return fmt.Sprintf("s3://%s/%s", g.bucketName, g.prefix)
}

func (g *S3StorageGateway) key(name string) string {
	name = strings.TrimPrefix(name, "/")
	if g.prefix == "" {
		return name
	}
	return path.Join(g.prefix, name)
}

func contentTypeFor(name string) string {
	switch path.Ext(name) {
	case ".yaml", ".yml":
		return "application/yaml"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
