// Package contentid derives content identifiers for text and embedded
// envelopes. Identifiers are CIDv1 strings using the raw multicodec and a
// sha2-256 multihash, suitable as stable handles in audit logs or
// content-addressed stores.
package contentid

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"encypher.dev/encypher/vscodec"
)

// ForBytes returns a CIDv1 (raw + sha2-256) string for data.
func ForBytes(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// ForText returns the identifier of the visible content of text. Variation
// selectors are stripped first so a document keeps its identifier across
// embedding.
func ForText(text string) string {
	return ForBytes([]byte(vscodec.Strip(text)))
}

// ForBytesCID returns the identifier as a cid.Cid value.
func ForBytesCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
