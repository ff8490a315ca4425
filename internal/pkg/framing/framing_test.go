package framing_test

import (
	"bytes"
	"io"
	"testing"

	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/framing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawMessage []byte

func (m rawMessage) Marshal() ([]byte, error) { return m, nil }

func TestReadFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	bodies := [][]byte{
		[]byte("a"),
		bytes.Repeat([]byte{0x42}, 127),
		bytes.Repeat([]byte{0x43}, 128),
		bytes.Repeat([]byte{0x44}, 70000),
	}
	for _, b := range bodies {
		require.NoError(t, framing.WriteFrame(&buf, b))
	}

	r := framing.NewReader(&buf)
	for _, want := range bodies {
		got, err := r.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := r.ReadFrame()
	require.ErrorIs(t, err, errs.ErrFraming)
	require.ErrorIs(t, err, io.EOF)
}

func TestEncode_PrefixesVarintLength(t *testing.T) {
	frame, err := framing.Encode(rawMessage(bytes.Repeat([]byte{1}, 300)))

	require.NoError(t, err)
	assert.Equal(t, []byte{0xac, 0x02}, frame[:2])
	assert.Len(t, frame, 302)
}

func TestReadFrame_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "zero_length", input: []byte{0x00}, want: "declared length is zero"},
		{name: "truncated_prefix", input: []byte{0x80}, want: "truncated length prefix"},
		{name: "truncated_body", input: []byte{0x05, 'a', 'b'}, want: "truncated body of 5 bytes"},
		{name: "prefix_overflow", input: []byte{0xff, 0xff, 0xff, 0xff, 0x7f}, want: "exceeds 32 bits"},
		{name: "prefix_too_long", input: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, want: "longer than 32 bits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := framing.NewReader(bytes.NewReader(tt.input)).ReadFrame()

			require.ErrorIs(t, err, errs.ErrFraming)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadFrame_ConsumesExactlyOneFrame(t *testing.T) {
	stream := append(framing.AppendFrame(nil, []byte("first")), framing.AppendFrame(nil, []byte("second"))...)
	r := framing.NewReader(bytes.NewReader(stream))

	first, err := r.ReadFrame()
	require.NoError(t, err)
	second, err := r.ReadFrame()
	require.NoError(t, err)

	assert.Equal(t, "first", string(first))
	assert.Equal(t, "second", string(second))
}
