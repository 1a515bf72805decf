package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	const url = "http://localhost:3000/"

	testCases := []struct {
		goos string
		name string
		args []string
	}{
		{"darwin", "open", []string{url}},
		{"linux", "xdg-open", []string{url}},
		{"freebsd", "xdg-open", []string{url}},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", url}},
	}

	for _, tc := range testCases {
		t.Run(tc.goos, func(t *testing.T) {
			name, args, err := command(tc.goos, url)
			require.NoError(t, err)
			assert.Equal(t, tc.name, name)
			assert.Equal(t, tc.args, args)
		})
	}
}

func TestCommandUnsupported(t *testing.T) {
	_, _, err := command("plan9", "http://localhost:3000/")
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestFunc(t *testing.T) {
	var got string
	var opener Opener = Func(func(url string) error {
		got = url
		return nil
	})

	require.NoError(t, opener.Open("http://localhost:3000/"))
	assert.Equal(t, "http://localhost:3000/", got)
}
