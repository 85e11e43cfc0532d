package exchange

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type exportedOrder struct {
	address string
	promo   string
}

var orderColumns = []Column[exportedOrder]{
	{Name: "delivery_address", Value: func(o exportedOrder) string { return o.address }},
	{Name: "promo_code", Value: func(o exportedOrder) string { return o.promo }},
}

func TestExportSliceWritesHeaderAndQuotedRows(t *testing.T) {
	var buf bytes.Buffer
	err := ExportSlice(&buf, orderColumns, []exportedOrder{
		{address: "Main st, 1", promo: "SALE"},
		{address: "Elm \"2\"", promo: ""},
	})
	require.NoError(t, err)
	require.Equal(t,
		"delivery_address,promo_code\n\"Main st, 1\",SALE\n\"Elm \"\"2\"\"\",\n",
		buf.String())
}

func TestExportRoundTripsThroughReader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportSlice(&buf, orderColumns, []exportedOrder{{address: "Line1\nLine2", promo: "X"}}))

	r, err := NewReader(&buf, "")
	require.NoError(t, err)
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Line1\nLine2", rows[0].Fields["delivery_address"])
}

func TestExportStopsOnSourceError(t *testing.T) {
	boom := errors.New("query failed")
	err := Export(&bytes.Buffer{}, orderColumns, func(emit func(exportedOrder) error) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}
