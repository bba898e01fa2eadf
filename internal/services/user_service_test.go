package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mektebli/school-crm/internal/authz"
	"github.com/mektebli/school-crm/internal/models"
	"github.com/mektebli/school-crm/internal/repository"
	"github.com/mektebli/school-crm/internal/roles"
)

func setupUserTestEnv(t *testing.T) (*gorm.DB, *UserService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskAssignee{},
		&models.TaskGroup{},
		&models.GroupMember{},
	)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	evaluator := authz.NewEvaluator(userRepo, taskRepo, nil)

	return db, NewUserService(userRepo, evaluator)
}

func TestSetRole(t *testing.T) {
	db, service := setupUserTestEnv(t)

	admin := &models.User{Username: "admin", PasswordHash: "x", Role: roles.RoleDirector}
	target := &models.User{Username: "target", PasswordHash: "x"}
	require.NoError(t, db.Create(admin).Error)
	require.NoError(t, db.Create(target).Error)

	require.NoError(t, service.SetRole(admin.ID, target.ID, roles.RoleTeacher))

	var updated models.User
	require.NoError(t, db.First(&updated, target.ID).Error)
	require.Equal(t, roles.RoleTeacher, updated.Role)

	// Aliases are stored as given.
	require.NoError(t, service.SetRole(admin.ID, target.ID, roles.RolePsychologist))
	require.NoError(t, db.First(&updated, target.ID).Error)
	require.Equal(t, roles.RolePsychologist, updated.Role)

	require.ErrorIs(t, service.SetRole(admin.ID, target.ID, "wizard"), ErrUnknownRole)
	require.ErrorIs(t, service.SetRole(admin.ID, 9999, roles.RoleTeacher), ErrUserNotFound)
}

func TestSetRole_RequiresUserManage(t *testing.T) {
	db, service := setupUserTestEnv(t)

	deputy := &models.User{Username: "deputy", PasswordHash: "x", Role: roles.RoleDeputy}
	target := &models.User{Username: "target", PasswordHash: "x"}
	require.NoError(t, db.Create(deputy).Error)
	require.NoError(t, db.Create(target).Error)

	err := service.SetRole(deputy.ID, target.ID, roles.RoleTeacher)
	require.ErrorIs(t, err, ErrUserManageForbidden)
}

func TestListUsers(t *testing.T) {
	db, service := setupUserTestEnv(t)

	admin := &models.User{Username: "admin", PasswordHash: "x", Role: roles.RoleDirector}
	require.NoError(t, db.Create(admin).Error)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, db.Create(&models.User{Username: name, PasswordHash: "x"}).Error)
	}

	users, total, err := service.ListUsers(admin.ID, 0, 2)
	require.NoError(t, err)
	require.Equal(t, int64(4), total)
	require.Len(t, users, 2)

	_, _, err = service.ListUsers(9999, 0, 10)
	require.ErrorIs(t, err, ErrUserManageForbidden)
}
