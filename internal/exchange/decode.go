package exchange

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// DecodeRow maps a row onto out (a pointer to struct) using `csv` struct tags.
// Numeric cells are converted from text; a column with no matching field is an error.
func DecodeRow(row Row, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "csv",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			trimNumericHook,
			stringToDecimalHook,
		),
	})
	if err != nil {
		return err
	}

	input := make(map[string]any, len(row.Fields))
	for k, v := range row.Fields {
		input[k] = v
	}
	return decoder.Decode(input)
}

func stringToDecimalHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType || from.Kind() != reflect.String {
		return data, nil
	}
	text := strings.TrimSpace(data.(string))
	if text == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q", text)
	}
	return d, nil
}

func trimNumericHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool:
		return strings.TrimSpace(data.(string)), nil
	}
	return data, nil
}
