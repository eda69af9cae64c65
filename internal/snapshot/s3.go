package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config points the mirror at a bucket. Static keys and path-style
// addressing are only needed for MinIO and other S3-compatible servers.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror is a Publisher that copies the snapshot file and then the manifest
// to S3, so the bucket's manifest never points at a missing object.
type S3Mirror struct {
	api    s3API
	bucket string
	prefix string
	snap   *FilesystemSnapshotter
}

func NewS3Mirror(ctx context.Context, cfg S3Config, snap *FilesystemSnapshotter) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, Error.New("empty s3 bucket")
	}
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, Error.New("load AWS config: %v", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return NewS3MirrorWith(client, cfg.Bucket, cfg.Prefix, snap), nil
}

// NewS3MirrorWith is used by tests to inject a fake client.
func NewS3MirrorWith(api s3API, bucket, prefix string, snap *FilesystemSnapshotter) *S3Mirror {
	return &S3Mirror{api: api, bucket: bucket, prefix: prefix, snap: snap}
}

func (m *S3Mirror) key(parts ...string) string {
	return path.Join(append([]string{m.prefix}, parts...)...)
}

func (m *S3Mirror) PublishLatest(ctx context.Context, man Manifest) error {
	data, err := os.ReadFile(m.snap.Path(man.SnapshotID))
	if err != nil {
		return Error.New("read snapshot: %v", err)
	}
	if err := m.put(ctx, m.key(man.SnapshotID, DataFile), data); err != nil {
		return err
	}
	if man.CreatedAtEpochSecond == 0 {
		man.CreatedAtEpochSecond = NowUnix()
	}
	b, err := json.MarshalIndent(&man, "", "  ")
	if err != nil {
		return Error.New("encode: %v", err)
	}
	return m.put(ctx, m.key(ManifestFile), b)
}

func (m *S3Mirror) put(ctx context.Context, key string, body []byte) error {
	_, err := m.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return Error.New("put s3://%s/%s: %v", m.bucket, key, err)
	}
	return nil
}
