package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	require.NoError(t, base.BeforeCreate(nil))
	require.NotEmpty(t, base.ID)

	keep := BaseModel{ID: "fixed"}
	require.NoError(t, keep.BeforeCreate(nil))
	require.Equal(t, "fixed", keep.ID)
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := map[string]func() *BaseModel{
		"user":       func() *BaseModel { return &(&User{}).BaseModel },
		"session":    func() *BaseModel { return &(&Session{}).BaseModel },
		"import_job": func() *BaseModel { return &(&ImportJob{}).BaseModel },
	}

	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			model := build()
			require.NoError(t, model.BeforeCreate(nil))
			require.NotEmpty(t, model.ID)
		})
	}
}

func TestProductCreatedByUsername(t *testing.T) {
	id := "2d0c8f1e-0000-4000-8000-000000000001"

	require.Equal(t, "", Product{}.CreatedByUsername())
	require.Equal(t, id, Product{CreatedByID: &id}.CreatedByUsername())
	require.Equal(t, "alice", Product{CreatedByID: &id, CreatedBy: &User{Username: "alice"}}.CreatedByUsername())
}
