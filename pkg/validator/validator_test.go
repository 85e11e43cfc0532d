package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type productPayload struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
	Discount int             `json:"discount" validate:"gte=0,lte=100"`
}

func TestValidateStructSuccess(t *testing.T) {
	err := ValidateStruct(productPayload{
		Name:     "Laptop",
		Price:    decimal.RequireFromString("999.90"),
		Discount: 10,
	})
	require.NoError(t, err)
}

func TestValidateStructFailures(t *testing.T) {
	err := ValidateStruct(productPayload{
		Price:    decimal.RequireFromString("-1"),
		Discount: 101,
	})
	require.Error(t, err)

	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Len(t, vErrs, 3)

	fields := map[string]string{}
	for _, v := range vErrs {
		fields[v.Field] = v.Tag
	}
	require.Equal(t, "required", fields["name"])
	require.Equal(t, "gte", fields["price"])
	require.Equal(t, "lte", fields["discount"])
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("promo", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= 25
	})
	require.NoError(t, err)

	type order struct {
		PromoCode string `validate:"promo"`
	}

	require.NoError(t, ValidateStruct(order{PromoCode: "SALE"}))
	require.Error(t, ValidateStruct(order{PromoCode: "THIS-PROMO-CODE-IS-FAR-TOO-LONG"}))
}

func TestValidationErrorMessages(t *testing.T) {
	type batch struct {
		IDs   []uint          `json:"ids" validate:"required,min=1"`
		Price decimal.Decimal `json:"unit_price" validate:"gte=0,lt=10000000"`
		Code  string          `json:"code" validate:"max=3"`
		Count int             `json:"count" validate:"lte=100"`
	}

	err := ValidateStruct(batch{
		IDs:   []uint{},
		Price: decimal.RequireFromString("-0.01"),
		Code:  "TOOLONG",
		Count: 101,
	})
	require.Error(t, err)
	require.Equal(t, "ids must contain at least 1 items; "+
		"unit price must be greater than or equal to 0; "+
		"code must be at most 3 characters; "+
		"count must be less than or equal to 100", err.Error())

	err = ValidateStruct(batch{IDs: []uint{1}, Price: decimal.RequireFromString("10000000")})
	require.EqualError(t, err, "unit price must be less than 10000000")
}
