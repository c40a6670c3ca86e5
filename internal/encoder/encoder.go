// Package encoder defines the contract for compressing a decoded
// rawtile.Tile into a wire format, and for injecting metadata (ICC,
// XMP, EXIF) into the compressed bytes without a full re-encode where
// the underlying format allows it.
package encoder

import "giipview/internal/rawtile"

// Metadata is the subset of a source descriptor an encoder may embed
// into its compressed output.
type Metadata struct {
	ICCProfile []byte
	XMP        []byte
	EXIF       []byte
}

// Encoder compresses raw tiles into one target rawtile.Encoding.
type Encoder interface {
	// Kind reports the encoding this Encoder produces.
	Kind() rawtile.Encoding

	// MimeType and Suffix describe the produced bytes for transport headers.
	MimeType() string
	Suffix() string

	// Compress encodes tile.Data (must be raw, uncompressed pixels) at
	// the given quality (format-specific scale; ignored by lossless
	// formats), returning the compressed bytes.
	Compress(tile *rawtile.Tile, quality int, meta Metadata) ([]byte, error)

	// SupportsMetadataInjection reports whether InjectMetadata can
	// attach metadata to already-compressed bytes of this format. In
	// vipsencoder only the JPEG encoder reports true; PNG, WebP and
	// TIFF report false, so their bytes pass through without injection.
	SupportsMetadataInjection() bool

	// InjectMetadata attaches meta to already-compressed bytes,
	// returning the (possibly identical) updated bytes. Only valid
	// when SupportsMetadataInjection is true.
	InjectMetadata(compressed []byte, meta Metadata) ([]byte, error)
}

// Registry selects an Encoder by rawtile.Encoding.
type Registry struct {
	byKind map[rawtile.Encoding]Encoder
}

// NewRegistry builds a Registry from the given encoders, keyed by their
// own Kind().
func NewRegistry(encoders ...Encoder) *Registry {
	r := &Registry{byKind: make(map[rawtile.Encoding]Encoder, len(encoders))}
	for _, e := range encoders {
		r.byKind[e.Kind()] = e
	}
	return r
}

// Get returns the Encoder for kind, or false if none is registered.
func (r *Registry) Get(kind rawtile.Encoding) (Encoder, bool) {
	e, ok := r.byKind[kind]
	return e, ok
}
