package ranking_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/ranking"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "Red Hill", want: "red-hill"},
		{raw: "  Lahaina_Recovery ", want: "lahaina-recovery"},
		{raw: "x", wantErr: true},
		{raw: "this-tag-is-definitely-far-too-long", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ranking.NormalizeTag(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ranking.ErrInvalidTag)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestApplyTagsAndFilter(t *testing.T) {
	clusters := []models.StoryCluster{
		{ID: "a", Category: models.CategoryPolitics},
		{ID: "b", Category: models.CategoryBusiness},
		{ID: "c", Category: models.CategoryPolitics},
	}

	tagged := ranking.ApplyTags(clusters, map[string]string{"b": "red-hill"})
	require.Equal(t, "politics", tagged[0].Tag)
	require.False(t, tagged[0].TagOverride)
	require.Equal(t, "red-hill", tagged[1].Tag)
	require.True(t, tagged[1].TagOverride)
	require.Equal(t, models.CategoryBusiness, tagged[1].Category)
	require.Empty(t, clusters[1].Tag)

	got := ranking.FilterByTag(tagged, "red-hill")
	require.Len(t, got, 1)
	require.Equal(t, "b", got[0].ID)
	require.Len(t, ranking.FilterByTag(tagged, "all"), 3)

	require.Equal(t, []ranking.TagCount{
		{Tag: "politics", Count: 2},
		{Tag: "red-hill", Count: 1},
	}, ranking.TagCounts(tagged))
}
