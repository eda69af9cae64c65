package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/segmentio/kafka-go"

	"launchsync/internal/changelog"
)

// ManifestFile names the pointer to the most recent snapshot.
const ManifestFile = "manifest.latest.json"

// Manifest points at the most recent complete snapshot.
type Manifest struct {
	SnapshotID           string `json:"snapshotId"`
	Items                int    `json:"items"`
	Table                string `json:"table"`
	CreatedAtEpochSecond int64  `json:"createdAt"`
}

// NowUnix is the manifest clock. Tests replace it.
var NowUnix = func() int64 { return time.Now().UTC().Unix() }

type Publisher interface {
	PublishLatest(ctx context.Context, m Manifest) error
}

type Reader interface {
	ReadLatest(ctx context.Context) (Manifest, error)
}

// MultiPublisher writes to each publisher in order and stops at the first error.
type MultiPublisher struct {
	pubs []Publisher
}

func NewMultiPublisher(pubs ...Publisher) *MultiPublisher {
	return &MultiPublisher{pubs: pubs}
}

func (m *MultiPublisher) PublishLatest(ctx context.Context, man Manifest) error {
	for _, p := range m.pubs {
		if err := p.PublishLatest(ctx, man); err != nil {
			return err
		}
	}
	return nil
}

type FilesystemManifest struct {
	baseDir string
}

func NewFilesystemManifest(baseDir string) *FilesystemManifest {
	return &FilesystemManifest{baseDir: baseDir}
}

func (f *FilesystemManifest) PublishLatest(_ context.Context, m Manifest) error {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return Error.New("mkdir: %v", err)
	}
	if m.CreatedAtEpochSecond == 0 {
		m.CreatedAtEpochSecond = NowUnix()
	}
	b, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return Error.New("encode: %v", err)
	}
	return writeAtomic(filepath.Join(f.baseDir, ManifestFile), b)
}

func (f *FilesystemManifest) ReadLatest(_ context.Context) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(f.baseDir, ManifestFile))
	if err != nil {
		return Manifest{}, Error.New("read manifest: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, Error.New("unmarshal manifest: %v", err)
	}
	return m, nil
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaManifest publishes the manifest as a single keyed record on a compacted topic.
type KafkaManifest struct {
	writer kafkaMessageWriter
	key    []byte
}

// NewKafkaManifest creates a Kafka manifest publisher. bootstrap can be comma-separated brokers.
func NewKafkaManifest(bootstrap, topic, key string) *KafkaManifest {
	return &KafkaManifest{writer: &kafka.Writer{
		Addr:         kafka.TCP(changelog.SplitBrokers(bootstrap)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, key: []byte(key)}
}

// NewKafkaManifestWith is only for tests to inject a fake writer.
func NewKafkaManifestWith(w kafkaMessageWriter, key string) *KafkaManifest {
	return &KafkaManifest{writer: w, key: []byte(key)}
}

func (k *KafkaManifest) PublishLatest(ctx context.Context, m Manifest) error {
	if m.CreatedAtEpochSecond == 0 {
		m.CreatedAtEpochSecond = NowUnix()
	}
	b, err := json.Marshal(&m)
	if err != nil {
		return Error.New("marshal: %v", err)
	}
	return Error.Wrap(k.writer.WriteMessages(ctx, kafka.Message{Key: k.key, Value: b}))
}

// Close releases the underlying writer when it owns one.
func (k *KafkaManifest) Close() error {
	if w, ok := k.writer.(*kafka.Writer); ok {
		return w.Close()
	}
	return nil
}

// kafkaMessageReader abstracts kafka.Reader for testability.
type kafkaMessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaReader finds the newest manifest for key by reading the topic from the
// start until the read deadline passes. Fine for a compacted topic holding one key.
type KafkaReader struct {
	open func() kafkaMessageReader
	key  []byte
	wait time.Duration
}

func NewKafkaReader(brokers []string, topic, key string) *KafkaReader {
	return &KafkaReader{
		open: func() kafkaMessageReader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:   brokers,
				Topic:     topic,
				Partition: 0,
				MinBytes:  1,
				MaxBytes:  10e6,
			})
		},
		key:  []byte(key),
		wait: 10 * time.Second,
	}
}

func (k *KafkaReader) ReadLatest(ctx context.Context) (Manifest, error) {
	r := k.open()
	defer r.Close()

	ctx, cancel := context.WithTimeout(ctx, k.wait)
	defer cancel()

	var last Manifest
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return Manifest{}, Error.New("read kafka: %v", err)
		}
		if string(m.Key) != string(k.key) {
			continue
		}
		var man Manifest
		if err := json.Unmarshal(m.Value, &man); err != nil {
			return Manifest{}, Error.New("unmarshal kafka manifest: %v", err)
		}
		last = man
	}
	if last.SnapshotID == "" {
		return Manifest{}, Error.New("no manifest found for key %q", k.key)
	}
	return last, nil
}
