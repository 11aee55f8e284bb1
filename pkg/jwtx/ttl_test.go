package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTTL(t *testing.T) {
	t.Parallel()

	t.Run("parses each unit", func(t *testing.T) {
		cases := map[string]time.Duration{
			"30s": 30 * time.Second,
			"15m": 15 * time.Minute,
			"1h":  1 * time.Hour,
			"7d":  7 * 24 * time.Hour,
		}
		for in, want := range cases {
			got, err := ParseTTL(in)
			require.NoError(t, err, in)
			require.Equal(t, want, got, in)
		}
	})

	t.Run("rejects malformed values", func(t *testing.T) {
		for _, in := range []string{"", "7", "d", "7w", "1.5h", "-1h", "0s", "h7", "7 d"} {
			_, err := ParseTTL(in)
			require.Error(t, err, "expected %q to be rejected", in)
		}
	})
}
