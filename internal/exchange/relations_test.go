package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelationList(t *testing.T) {
	cases := []struct {
		raw    string
		status RelationStatus
		ids    []int64
	}{
		{raw: "[1, 2, 3]", status: RelationsParsed, ids: []int64{1, 2, 3}},
		{raw: "  [7]  ", status: RelationsParsed, ids: []int64{7}},
		{raw: "[1, 2,]", status: RelationsParsed, ids: []int64{1, 2}},
		{raw: "[3, 3, 1]", status: RelationsParsed, ids: []int64{3, 1}},
		{raw: `['4', "5"]`, status: RelationsParsed, ids: []int64{4, 5}},
		{raw: "[1_000]", status: RelationsParsed, ids: []int64{1000}},
		{raw: "[-2]", status: RelationsParsed, ids: []int64{-2}},
		{raw: "[]", status: RelationsEmpty},
		{raw: "[ ]", status: RelationsEmpty},
		{raw: "", status: RelationsEmpty},
		{raw: "   ", status: RelationsEmpty},
		{raw: "(1, 2)", status: RelationsMalformed},
		{raw: "1, 2", status: RelationsMalformed},
		{raw: "[1, 2", status: RelationsMalformed},
		{raw: "[1,, 2]", status: RelationsMalformed},
		{raw: "[1.5]", status: RelationsMalformed},
		{raw: "[[1], 2]", status: RelationsMalformed},
		{raw: "[abc]", status: RelationsMalformed},
		{raw: "[007]", status: RelationsMalformed},
		{raw: "{1}", status: RelationsMalformed},
		{raw: "[--1]", status: RelationsMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got := ParseRelationList(tc.raw)
			assert.Equal(t, tc.status, got.Status)
			assert.Equal(t, tc.raw, got.Raw)
			if tc.status == RelationsParsed {
				assert.Equal(t, tc.ids, got.IDs)
				assert.NoError(t, got.Err)
			} else {
				assert.Empty(t, got.IDs)
			}
			if tc.status == RelationsMalformed {
				assert.Error(t, got.Err)
			}
		})
	}
}

func TestRelationStatusString(t *testing.T) {
	require.Equal(t, "parsed", RelationsParsed.String())
	require.Equal(t, "malformed", RelationsMalformed.String())
	require.Equal(t, "RelationStatus(9)", RelationStatus(9).String())
}
