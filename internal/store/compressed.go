package store

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compressed zstd-encodes values on Put and decodes on Get. Pattern shards
// are highly repetitive text and shrink several times over.
type Compressed struct {
	next Store
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// NewCompressed wraps next.
func NewCompressed(next Store) (*Compressed, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Compressed{next: next, enc: enc, dec: dec}, nil
}

func (c *Compressed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.next.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompress %s: %w", key, err)
	}
	if out == nil {
		out = []byte{}
	}
	return out, true, nil
}

func (c *Compressed) Put(ctx context.Context, key string, value []byte) error {
	return c.next.Put(ctx, key, c.enc.EncodeAll(value, nil))
}

func (c *Compressed) Exists(ctx context.Context, key string) (bool, error) {
	return c.next.Exists(ctx, key)
}

func (c *Compressed) Delete(ctx context.Context, key string) error {
	return c.next.Delete(ctx, key)
}

// Close releases the codec. The wrapped store is not closed.
func (c *Compressed) Close() {
	c.enc.Close()
	c.dec.Close()
}
