package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mysite19/mysite/internal/models"
)

// Sync upserts every registered permission into the permissions table.
func Sync(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}

	tx := db.WithContext(ctx)
	for _, perm := range GetAll() {
		record := models.Permission{
			ID:          perm.ID,
			Module:      perm.Module,
			Description: perm.Description,
			DependsOn:   jsonList(perm.DependsOn),
			Implies:     jsonList(perm.Implies),
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"module", "description", "depends_on", "implies"}),
		}).Create(&record).Error
		if err != nil {
			return fmt.Errorf("permission: sync %s: %w", perm.ID, err)
		}
	}
	return nil
}

func jsonList(ids []string) datatypes.JSON {
	if ids == nil {
		ids = []string{}
	}
	raw, _ := json.Marshal(ids)
	return datatypes.JSON(raw)
}
