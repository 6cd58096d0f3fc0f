package episode_test

import (
	"github.com/myrjola/kastor/internal/episode"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNameNormalizer_Normalize(t *testing.T) {
	normalizer := episode.NewNameNormalizer(
		[]string{"야", "이야", "라고 해", "이라고 해", "라고", "이라고", "입니다", "씨", "이라고 불러줘"},
		"!?.~ ",
		1,
	)
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "latin name with particle", raw: "Jimin이야", want: "Jimin"},
		{name: "hangul name with particle", raw: "지민이야", want: "지민"},
		{name: "bare name", raw: "Jimin", want: "Jimin"},
		{name: "surrounding whitespace and punctuation", raw: "  Jimin!!  ", want: "Jimin"},
		{name: "quotative suffix", raw: "민수라고 해", want: "민수"},
		{name: "longest suffix wins", raw: "Jimin이라고 불러줘", want: "Jimin"},
		{name: "formal ending with period", raw: "Kastor입니다.", want: "Kastor"},
		{name: "honorific after space", raw: "Jimin 씨", want: "Jimin"},
		{name: "never strips to empty", raw: "야", want: "야"},
		{name: "empty input", raw: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, normalizer.Normalize(tt.raw))
		})
	}
}

func TestNameNormalizer_MinLength(t *testing.T) {
	normalizer := episode.NewNameNormalizer([]string{"야"}, "", 3) //nolint:mnd // minimum name length
	require.Equal(t, "민수야", normalizer.Normalize("민수야"))
	require.Equal(t, "Jimin", normalizer.Normalize("Jimin야"))
}
