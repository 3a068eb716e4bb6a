package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchName(t *testing.T) {
	cases := []struct {
		name     string
		matchers []string
		expect   bool
	}{
		{name: "Football</span>", matchers: []string{"football"}, expect: true},
		{name: "Tuesday 01 Jan", matchers: []string{"tuesday01"}, expect: true},
		{name: "Basketball</span>", matchers: []string{"foot", "tennis"}, expect: false},
		{name: "anything", matchers: nil, expect: true},
	}

	for _, test := range cases {
		require.Equal(t, test.expect, MatchName(test.name, test.matchers), test.name)
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", Truncate("abc", 3))
	require.Equal(t, "ab...", Truncate("abc", 2))
	require.Equal(t, "", Truncate("abc", 0))
	require.Equal(t, "àè...", Truncate("àèì", 2))
}
