package processing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/story-radar/backend/internal/processing"
)

func TestStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "caresses", want: "caress"},
		{in: "ponies", want: "pony"},
		{in: "cities", want: "city"},
		{in: "cats", want: "cat"},
		{in: "gas", want: "gas"},
		{in: "passes", want: "pass"},
		{in: "agreed", want: "agree"},
		{in: "feed", want: "feed"},
		{in: "plastered", want: "plaster"},
		{in: "building", want: "build"},
		{in: "sing", want: "sing"},
		{in: "relational", want: "relate"},
		{in: "conditional", want: "condition"},
		{in: "organization", want: "organize"},
		{in: "hopefulness", want: "hopeful"},
		{in: "politics", want: "politic"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, processing.Stem(tt.in))
		})
	}
}

func TestTerms(t *testing.T) {
	require.Equal(t, []string{"city", "council", "approve", "budget"}, processing.Terms("City Council Approves Budget"))
	require.Equal(t, []string{"cat", "dog"}, processing.Terms("The cats and a dog!"))
	require.Empty(t, processing.Terms(""))
	require.Empty(t, processing.Terms("a an of to"))
}

func TestTermsDropsRegionNames(t *testing.T) {
	require.Equal(t, []string{"surf"}, processing.Terms("Honolulu surf, Maui"))
}

func TestTermsDeterministic(t *testing.T) {
	text := "Governor signs emergency proclamation for wildfires"
	require.Equal(t, processing.Terms(text), processing.Terms(text))
}

func TestTermSet(t *testing.T) {
	set := processing.TermSet("budget Budget budgets")
	require.Len(t, set, 1)
	require.Contains(t, set, "budget")
}

func TestTokenize(t *testing.T) {
	require.Equal(t, []string{"state", "s", "re", "open", "plan"}, processing.Tokenize("State's re-open plan"))
	require.Nil(t, processing.Tokenize(""))
}

func TestAnalyzeKeepsWords(t *testing.T) {
	got := processing.Analyze("Politics of the Cities")
	require.Equal(t, []processing.Term{
		{Stem: "politic", Word: "politics"},
		{Stem: "city", Word: "cities"},
	}, got)
}
