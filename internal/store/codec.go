package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"

	"opacitydb/internal/faults"
)

var (
	blobEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	blobDecoder, _ = zstd.NewReader(nil)
)

func encodeFloats(values []float64) []byte {
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	return blobEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/4))
}

func decodeFloats(blob []byte, want int) ([]float64, error) {
	raw, err := blobDecoder.DecodeAll(blob, make([]byte, 0, 8*want))
	if err != nil {
		return nil, faults.Wrap(faults.ErrIntegrity, "store", "decode", "", err)
	}
	if len(raw) != 8*want {
		return nil, faults.Wrap(faults.ErrIntegrity, "store", "decode",
			fmt.Sprintf("blob holds %d bytes, want %d values", len(raw), want), nil)
	}
	values := make([]float64, want)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return values, nil
}
