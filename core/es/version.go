package es

import "log/slog"

// Version is the per-aggregate sequence number of an event within its
// stream. It is gapless and 1-based: the first event of an aggregate has
// version 1. Appends use it for optimistic concurrency control - the
// expected version must match the stream head at write time.
type Version uint64

func (v Version) Uint64() uint64                       { return uint64(v) }
func (v Version) SlogAttr() slog.Attr                  { return v.SlogAttrWithKey("version") }
func (v Version) SlogAttrWithKey(key string) slog.Attr { return slog.Uint64(key, uint64(v)) }
