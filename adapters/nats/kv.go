package nats

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/dooyeoung/medops-sub001/ports/kv"
)

type KvConfig struct {
	Connect Connector
	Bucket  string
	// TTL applies to the whole bucket; NATS KV has no per-key expiry, so
	// per-put TTLs are ignored in favor of this value.
	TTL time.Duration
	// MaxBytes bounds the bucket size. Defaults to 1 MiB.
	MaxBytes int64
}

// KvStore implements the kv port on a JetStream key-value bucket. Keys are
// base64-encoded since NATS restricts the key character set.
type KvStore struct {
	kvb     jetstream.KeyValue
	closeNc closeFunc
}

func NewKvStore(cfg KvConfig) (*KvStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}

	nc, closeNc, err := doConnect()
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		closeNc()
		return nil, err
	}

	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = 1024 * 1024
	}

	kvb, err := js.CreateOrUpdateKeyValue(context.Background(), jetstream.KeyValueConfig{
		Bucket:   cfg.Bucket,
		Storage:  jetstream.FileStorage,
		MaxBytes: maxBytes,
		TTL:      cfg.TTL,
	})
	if err != nil {
		closeNc()
		return nil, err
	}

	return &KvStore{kvb: kvb, closeNc: closeNc}, nil
}

// Close releases the underlying connection lease.
func (k *KvStore) Close() {
	if k.closeNc != nil {
		k.closeNc()
	}
}

func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func (k *KvStore) Put(ctx context.Context, key string, entry kv.Entry, _ kv.PutOptions) error {
	_, err := k.kvb.Put(ctx, encodeKey(key), entry.Data)
	return err
}

func (k *KvStore) Get(ctx context.Context, key string) (kv.Entry, error) {
	v, err := k.kvb.Get(ctx, encodeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return kv.Entry{}, kv.ErrNotFound
		}
		return kv.Entry{}, err
	}
	return kv.Entry{Data: v.Value()}, nil
}

func (k *KvStore) Delete(ctx context.Context, key string) error {
	return k.kvb.Delete(ctx, encodeKey(key))
}

var _ kv.Store = (*KvStore)(nil)
