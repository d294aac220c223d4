package core

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// ParseAssetID resolves a TransferAssetContract's raw asset_name field to
// the numeric TRC-10 id the State DB keys assets by (spec.md §4.4 step 3:
// "resolve asset by AllowSameTokenName fork"). Once the fork is active, an
// asset_name of 1 to 8 bytes is read as the id's big-endian bytes. Before
// the fork, or for a longer name, it is parsed as the decimal-ASCII name
// the reference identified assets by, which for TRC-10 ids (spec.md §6
// MinTokenID) is the id's own digit string. A name that fits neither
// yields 0.
func ParseAssetID(assetName []byte, allowSameTokenName bool) int64 {
	if allowSameTokenName && len(assetName) > 0 && len(assetName) <= 8 {
		var buf [8]byte
		copy(buf[8-len(assetName):], assetName)
		return int64(binary.BigEndian.Uint64(buf[:]))
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(string(assetName)), 10, 64); err == nil {
		return id
	}
	return 0
}

// encodeResourceUsage/decodeResourceUsage give ResourceUsage a standalone
// fixed-length wire format for the single global counter (keys.go's
// globalFreeBandwidthKeySentinel) that doesn't live inside a larger
// RLP-encoded record.
func encodeResourceUsage(u ResourceUsage) []byte {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out[:8], uint64(u.Used))
	binary.BigEndian.PutUint64(out[8:], uint64(u.LatestSlot))
	return out
}

func decodeResourceUsage(v []byte) ResourceUsage {
	if len(v) < 16 {
		return ResourceUsage{}
	}
	return ResourceUsage{
		Used:       int64(binary.BigEndian.Uint64(v[:8])),
		LatestSlot: int64(binary.BigEndian.Uint64(v[8:])),
	}
}
