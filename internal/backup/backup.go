// Package backup ships encrypted snapshots of the calendar to
// S3-compatible storage and restores them.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/robfig/cron/v3"

	"github.com/dukerupert/timegrid/internal/model"
	"github.com/dukerupert/timegrid/internal/store"
)

var (
	ErrNotConfigured    = errors.New("backup not configured")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrNotCompleted     = errors.New("snapshot upload did not complete")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Source is the calendar state being backed up.
type Source interface {
	// Snapshot returns the serialized state and the number of events in it.
	Snapshot() ([]byte, int, error)
	Restore(data []byte) error
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration. Schedule is a standard
// five-field cron expression; empty disables scheduled runs.
type Config struct {
	S3            S3Config
	Passphrase    string
	Prefix        string
	Schedule      string
	RetentionDays int
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State        State      `json:"state"`
	LastSnapshot *time.Time `json:"last_snapshot,omitempty"`
	Error        string     `json:"error,omitempty"`
	InProgress   bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager manages encrypted snapshots in S3-compatible storage.
type Manager struct {
	mu       sync.RWMutex
	runMu    sync.Mutex
	cfg      Config
	status   Status
	callback StatusCallback

	source  Source
	records *store.SnapshotStore
	client  s3Client
	cron    *cron.Cron
}

// NewManager creates a new backup manager. It starts disabled unless both
// the bucket credentials and the passphrase are set.
func NewManager(cfg Config, src Source, records *store.SnapshotStore, callback StatusCallback) *Manager {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	m := &Manager{
		cfg:      cfg,
		source:   src,
		records:  records,
		callback: callback,
		status:   Status{State: StateDisabled},
	}

	if cfg.S3.complete() && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start registers the scheduled snapshot job. It is a no-op when the
// manager is disabled or no schedule is configured.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.State == StateDisabled || m.cfg.Schedule == "" || m.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(m.cfg.Schedule, func() { m.scheduled(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", m.cfg.Schedule, err)
	}
	c.Start()
	m.cron = c
	slog.Info("backup schedule started", "schedule", m.cfg.Schedule, "retention_days", m.cfg.RetentionDays)
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) scheduled(ctx context.Context) {
	if _, err := m.RunNow(ctx); err != nil {
		slog.Error("scheduled snapshot failed", "error", err)
	}
	if err := m.Cleanup(ctx); err != nil {
		slog.Error("snapshot cleanup failed", "error", err)
	}
}

func (m *Manager) clientAndBucket() (s3Client, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client, m.cfg.S3.Bucket
}

// RunNow encrypts the current calendar state and uploads it.
func (m *Manager) RunNow(ctx context.Context) (*model.Snapshot, error) {
	client, bucket := m.clientAndBucket()
	if client == nil {
		return nil, ErrNotConfigured
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()

	last := m.Status().LastSnapshot
	m.setStatus(Status{State: StateRunning, InProgress: true, LastSnapshot: last})
	fail := func(id int64, err error) {
		if id != 0 {
			if uerr := m.records.UpdateStatus(id, model.SnapshotStatusFailed, err.Error()); uerr != nil {
				slog.Error("mark snapshot failed", "id", id, "error", uerr)
			}
		}
		m.setStatus(Status{State: StateError, Error: err.Error(), LastSnapshot: last})
	}

	plaintext, events, err := m.source.Snapshot()
	if err != nil {
		fail(0, err)
		return nil, fmt.Errorf("snapshot calendar: %w", err)
	}

	timestamp := time.Now().UTC().Format("2006-01-02T150405.000Z")
	filename := fmt.Sprintf("calendar-%s.json.enc", timestamp)
	key := m.cfg.Prefix + filename

	record, err := m.records.Create(filename, key, events)
	if err != nil {
		fail(0, err)
		return nil, fmt.Errorf("create snapshot record: %w", err)
	}

	if err := m.records.UpdateStatus(record.ID, model.SnapshotStatusUploading, ""); err != nil {
		slog.Warn("mark snapshot uploading", "id", record.ID, "error", err)
	}

	sealed, err := Encrypt(plaintext, m.cfg.Passphrase)
	if err != nil {
		fail(record.ID, err)
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		fail(record.ID, err)
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	if err := m.records.UpdateCompleted(record.ID, int64(len(sealed))); err != nil {
		fail(record.ID, err)
		return nil, fmt.Errorf("complete snapshot record: %w", err)
	}

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastSnapshot: &now})
	slog.Info("snapshot uploaded", "id", record.ID, "key", key, "events", record.EventCount, "bytes", len(sealed))

	return m.records.GetByID(record.ID)
}

// List returns recent snapshot records, newest first.
func (m *Manager) List(limit int) ([]model.Snapshot, error) {
	return m.records.List(limit)
}

func (m *Manager) fetch(ctx context.Context, id int64) ([]byte, error) {
	client, bucket := m.clientAndBucket()
	if client == nil {
		return nil, ErrNotConfigured
	}

	record, err := m.records.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if record == nil {
		return nil, ErrSnapshotNotFound
	}
	if record.Status != model.SnapshotStatusCompleted {
		return nil, ErrNotCompleted
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}
	return data, nil
}

// Download returns the encrypted snapshot as stored.
func (m *Manager) Download(ctx context.Context, id int64) ([]byte, error) {
	return m.fetch(ctx, id)
}

// Restore downloads and decrypts a snapshot and replaces the calendar
// state with it.
func (m *Manager) Restore(ctx context.Context, id int64) error {
	sealed, err := m.fetch(ctx, id)
	if err != nil {
		return err
	}

	plaintext, err := Decrypt(sealed, m.cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("decrypt snapshot: %w", err)
	}

	if err := m.source.Restore(plaintext); err != nil {
		return fmt.Errorf("restore calendar: %w", err)
	}
	slog.Info("snapshot restored", "id", id)
	return nil
}

// Cleanup deletes snapshots older than the retention period.
func (m *Manager) Cleanup(ctx context.Context) error {
	client, bucket := m.clientAndBucket()
	if client == nil {
		return nil
	}

	before := time.Now().UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	keys, err := m.records.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old snapshots: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			slog.Warn("delete snapshot object failed", "key", key, "error", err)
		}
	}

	return nil
}
