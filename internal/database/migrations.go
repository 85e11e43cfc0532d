package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/models"
	"github.com/mysite19/mysite/internal/permissions"
)

// AutoMigrate creates or updates the schema for every model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Permission{},
		&models.Profile{},
		&models.Session{},
		&models.CacheEntry{},
		&models.Product{},
		&models.ProductImage{},
		&models.Order{},
		&models.ImportJob{},
		&models.Author{},
		&models.Category{},
		&models.Tag{},
		&models.Article{},
	)
}

// defaultGroups are created on first start and given their permissions once.
var defaultGroups = map[string][]string{
	"shop managers": {
		permissions.ViewProduct, permissions.AddProduct, permissions.ChangeProduct,
		permissions.ViewOrder, permissions.AddOrder, permissions.ChangeOrder, permissions.DeleteOrder,
	},
	"customers": {
		permissions.ViewProduct, permissions.ViewOrder, permissions.AddOrder,
	},
	"editors": {
		permissions.ViewArticle, permissions.AddArticle, permissions.AddAuthor,
	},
}

// SeedData synchronises the permission registry and creates the default groups.
func SeedData(db *gorm.DB) error {
	if err := permissions.Sync(context.Background(), db); err != nil {
		return err
	}

	for name, codes := range defaultGroups {
		group := models.Group{Name: name}
		result := db.Where(models.Group{Name: name}).FirstOrCreate(&group)
		if result.Error != nil {
			return fmt.Errorf("seed group %s: %w", name, result.Error)
		}
		if result.RowsAffected == 0 {
			// existing groups keep whatever an administrator configured
			continue
		}

		var perms []models.Permission
		if err := db.Where("id IN ?", codes).Find(&perms).Error; err != nil {
			return fmt.Errorf("seed group %s: load permissions: %w", name, err)
		}
		if err := db.Model(&group).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("seed group %s: assign permissions: %w", name, err)
		}
	}
	return nil
}
