package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	tt := []struct {
		url  string
		name string
		err  bool
	}{
		{url: "https://cdn.example.com/5f2b9c.png", name: "5f2b9c.png"},
		{url: "https://cdn.example.com/a/b/5f2b9c?X-Amz-Expires=60", name: "5f2b9c"},
		{url: "5f2b9c", name: "5f2b9c"},
		{url: "https://cdn.example.com/", err: true},
		{url: "https://cdn.example.com/undefined", err: true},
		{url: "", err: true},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.url, func(t *testing.T) {
			name, err := ObjectName(tc.url)
			if tc.err {
				require.True(t, errors.Is(err, ErrInvalidURL))
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.name, name)
		})
	}
}

func TestReleaserFunc(t *testing.T) {
	var got string
	r := ReleaserFunc(func(_ context.Context, url string) error {
		got = url
		return nil
	})

	require.NoError(t, r.Release(context.Background(), "u"))
	require.Equal(t, "u", got)
}
