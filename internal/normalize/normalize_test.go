package normalize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "20230615", want: "2023-06-15"},
		{in: "19631031", want: "1963-10-31"},
		{in: "20230101", want: "2023-01-01"},
		// No calendar validation: month 13 passes through.
		{in: "20231340", want: "2023-13-40"},
		{in: "2023615", wantErr: true},
		{in: "202306150", wantErr: true},
		{in: "", wantErr: true},
		{in: "2023-6-15", wantErr: true},
		{in: "2023061５", wantErr: true}, // full-width digit
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := CompactDate(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompactDateSlicesPositionally(t *testing.T) {
	t.Parallel()

	// For every well-formed 8-digit input the output is exactly
	// in[0:4]-in[4:6]-in[6:8].
	for y := 1900; y < 2100; y += 37 {
		for md := 0; md < 10000; md += 613 {
			in := fmt.Sprintf("%04d%04d", y, md)
			got, err := CompactDate(in)
			require.NoError(t, err)
			assert.Equal(t, in[0:4]+"-"+in[4:6]+"-"+in[6:8], got)
		}
	}
}

func TestLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1234567", want: 1234567},
		{in: " 2100000 ", want: 2100000},
		{in: "-5", want: -5},
		{in: "0", want: 0},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "ART", wantErr: true},
		{in: "BRT", wantErr: true},
		{in: "---", wantErr: true},
		{in: "12.5", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Level(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOptionalInt(t *testing.T) {
	t.Parallel()

	got, err := OptionalInt("")
	require.NoError(t, err)
	assert.Nil(t, got, "empty field is unknown, not zero")

	got, err = OptionalInt("3537577")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(3537577), *got)

	_, err = OptionalInt("n/a")
	require.Error(t, err)
}
