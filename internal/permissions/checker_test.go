package permissions

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/models"
)

func TestRegisterRejectsInvalidAndDuplicateIDs(t *testing.T) {
	require.ErrorIs(t, Register(&Permission{ID: "noapp"}), errInvalidID)
	require.ErrorIs(t, Register(nil), errNilPermission)

	const id = "test.unique_permission"
	require.NoError(t, Register(&Permission{ID: id}))
	t.Cleanup(func() { unregister(id) })

	def, ok := Get(id)
	require.True(t, ok)
	require.Equal(t, "test", def.Module)

	require.ErrorIs(t, Register(&Permission{ID: id}), errDuplicateID)
	require.ErrorIs(t, Register(&Permission{ID: "test.self", DependsOn: []string{"test.self"}}), errSelfReference)
}

func TestCatalogIsConsistent(t *testing.T) {
	require.NoError(t, ValidateDependencies())
	require.Len(t, GetByModule("shop"), 8)

	deps, err := ResolveDependencies(DeleteProduct)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{ViewProduct, ChangeProduct}, deps)
}

func TestResolveDependenciesDetectsCycles(t *testing.T) {
	const (
		first  = "test.cycle_first"
		second = "test.cycle_second"
	)
	require.NoError(t, Register(&Permission{ID: first, DependsOn: []string{second}}))
	require.NoError(t, Register(&Permission{ID: second, DependsOn: []string{first}}))
	t.Cleanup(func() {
		unregister(first)
		unregister(second)
	})

	_, err := ResolveDependencies(first)
	require.ErrorIs(t, err, ErrCircularDependency)
}

func TestCheckerRootBypassesChecks(t *testing.T) {
	db := setupPermissionTestDB(t)
	root := createUser(t, db, "root", true)

	checker, err := NewChecker(db)
	require.NoError(t, err)

	ok, err := checker.Check(context.Background(), root.ID, DeleteProduct)
	require.NoError(t, err)
	require.True(t, ok)

	perms, err := checker.GetUserPermissions(context.Background(), root.ID)
	require.NoError(t, err)
	require.Equal(t, IDs(), perms)
}

func TestCheckerEnforcesGroupDependencies(t *testing.T) {
	db := setupPermissionTestDB(t)
	user := createUser(t, db, "editor", false)
	group := &models.Group{Name: "editors"}
	require.NoError(t, db.Create(group).Error)
	require.NoError(t, db.Model(user).Association("Groups").Append(group))

	grant(t, db, group, ChangeProduct)

	checker, err := NewChecker(db)
	require.NoError(t, err)

	ok, err := checker.Check(context.Background(), user.ID, ChangeProduct)
	require.NoError(t, err)
	require.False(t, ok, "view permission is a prerequisite")

	grant(t, db, group, ViewProduct)

	ok, err = checker.Check(context.Background(), user.ID, ChangeProduct)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckerExpandsImpliedPermissions(t *testing.T) {
	db := setupPermissionTestDB(t)
	user := createUser(t, db, "buyer", false)
	group := &models.Group{Name: "buyers"}
	require.NoError(t, db.Create(group).Error)
	require.NoError(t, db.Model(user).Association("Groups").Append(group))

	grant(t, db, group, ViewOrder)
	grant(t, db, group, AddOrder)

	checker, err := NewChecker(db)
	require.NoError(t, err)

	ok, err := checker.Check(context.Background(), user.ID, ViewProduct)
	require.NoError(t, err)
	require.True(t, ok)

	perms, err := checker.GetUserPermissions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, []string{AddOrder, ViewOrder, ViewProduct}, perms)
}

func TestCheckerDeniesInactiveUsers(t *testing.T) {
	db := setupPermissionTestDB(t)
	user := createUser(t, db, "disabled", true)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	checker, err := NewChecker(db)
	require.NoError(t, err)

	ok, err := checker.Check(context.Background(), user.ID, ViewProduct)
	require.NoError(t, err)
	require.False(t, ok)
}

func setupPermissionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Group{}, &models.Permission{}))
	require.NoError(t, Sync(context.Background(), db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, root bool) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Password: "hashed", IsRoot: root, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func grant(t *testing.T, db *gorm.DB, group *models.Group, permissionID string) {
	t.Helper()
	var perm models.Permission
	require.NoError(t, db.Take(&perm, "id = ?", permissionID).Error)
	require.NoError(t, db.Model(group).Association("Permissions").Append(&perm))
}

func TestCheckerPrincipal(t *testing.T) {
	db := setupPermissionTestDB(t)
	root := createUser(t, db, "root", true)

	checker, err := NewChecker(db)
	require.NoError(t, err)

	principal, err := checker.Principal(context.Background(), root.ID)
	require.NoError(t, err)
	require.Equal(t, root.ID, principal.UserID)
	require.Equal(t, "root", principal.Username)
	require.True(t, principal.IsRoot)
	require.True(t, principal.IsActive)

	_, err = checker.Principal(context.Background(), "missing")
	require.Error(t, err)
}
