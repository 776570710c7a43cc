package treeset

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// SnapshotFormat selects the snapshot wire encoding. Elements are always
// encoded in sorted order, so equal sets produce identical bytes and
// therefore identical links.
type SnapshotFormat int

const (
	// V1JSON encodes snapshots as a JSON document. The default.
	V1JSON SnapshotFormat = iota
	// V1Binary encodes snapshots in protobuf wire format: field 1 holds
	// the elements as packed zigzag varints.
	V1Binary
)

type snapshotV1 struct {
	Elems []int `json:"elems"`
}

const elemsFieldNumber = 1

func encodeSnapshot(elems []int, format SnapshotFormat) ([]byte, error) {
	switch format {
	case V1JSON:
		return json.Marshal(snapshotV1{Elems: elems})
	case V1Binary:
		var packed []byte
		for _, e := range elems {
			packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(int64(e)))
		}
		buf := protowire.AppendTag(nil, elemsFieldNumber, protowire.BytesType)
		return protowire.AppendBytes(buf, packed), nil
	}
	return nil, fmt.Errorf("unknown snapshot format %d", format)
}

func decodeSnapshot(buf []byte, format SnapshotFormat) ([]int, error) {
	switch format {
	case V1JSON:
		var s snapshotV1
		if err := json.Unmarshal(buf, &s); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		return s.Elems, nil
	case V1Binary:
		var elems []int
		for len(buf) > 0 {
			num, typ, n := protowire.ConsumeTag(buf)
			if n < 0 {
				return nil, fmt.Errorf("consume tag: %w", protowire.ParseError(n))
			}
			buf = buf[n:]
			if num != elemsFieldNumber || typ != protowire.BytesType {
				n = protowire.ConsumeFieldValue(num, typ, buf)
				if n < 0 {
					return nil, fmt.Errorf("skip field %d: %w", num, protowire.ParseError(n))
				}
				buf = buf[n:]
				continue
			}
			packed, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return nil, fmt.Errorf("consume elems: %w", protowire.ParseError(n))
			}
			buf = buf[n:]
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return nil, fmt.Errorf("consume elem: %w", protowire.ParseError(n))
				}
				packed = packed[n:]
				elems = append(elems, int(protowire.DecodeZigZag(v)))
			}
		}
		return elems, nil
	}
	return nil, fmt.Errorf("unknown snapshot format %d", format)
}
