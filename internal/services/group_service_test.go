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

type groupTestEnv struct {
	db      *gorm.DB
	service *GroupService
}

func setupGroupTestEnv(t *testing.T) groupTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Task{},
		&models.TaskAssignee{},
		&models.TaskGroup{},
	)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	evaluator := authz.NewEvaluator(userRepo, taskRepo, nil)

	return groupTestEnv{
		db:      db,
		service: NewGroupService(groupRepo, evaluator),
	}
}

func (env groupTestEnv) createUser(t *testing.T, username string, role roles.Role) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

func TestCreateGroup(t *testing.T) {
	env := setupGroupTestEnv(t)
	teacher := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)

	group, err := env.service.CreateGroup("Class 7A", teacher.ID)
	require.NoError(t, err)
	require.NotEmpty(t, group.InviteCode)

	// The creator becomes the group owner.
	var member models.GroupMember
	require.NoError(t, env.db.Where("group_id = ? AND user_id = ?", group.ID, teacher.ID).First(&member).Error)
	require.Equal(t, models.GroupRoleOwner, member.Role)

	_, err = env.service.CreateGroup("Class 7B", student.ID)
	require.ErrorIs(t, err, ErrGroupManageForbidden)

	_, err = env.service.CreateGroup("", teacher.ID)
	require.ErrorIs(t, err, ErrGroupNameRequired)
}

func TestJoinByInviteCode(t *testing.T) {
	env := setupGroupTestEnv(t)
	teacher := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)

	group, err := env.service.CreateGroup("Class 7A", teacher.ID)
	require.NoError(t, err)

	joined, err := env.service.JoinByInviteCode(group.InviteCode, student.ID)
	require.NoError(t, err)
	require.Equal(t, group.ID, joined.ID)

	var member models.GroupMember
	require.NoError(t, env.db.Where("group_id = ? AND user_id = ?", group.ID, student.ID).First(&member).Error)
	require.Equal(t, models.GroupRoleMember, member.Role)

	_, err = env.service.JoinByInviteCode(group.InviteCode, student.ID)
	require.ErrorIs(t, err, ErrAlreadyMember)

	_, err = env.service.JoinByInviteCode("NOPE-NOPE-NOPE", student.ID)
	require.ErrorIs(t, err, ErrInvalidInviteCode)
}

func TestRegenerateInviteCode(t *testing.T) {
	env := setupGroupTestEnv(t)
	teacher := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)

	group, err := env.service.CreateGroup("Class 7A", teacher.ID)
	require.NoError(t, err)
	oldCode := group.InviteCode

	_, err = env.service.JoinByInviteCode(oldCode, student.ID)
	require.NoError(t, err)

	// Members who are not the owner cannot rotate the code.
	_, err = env.service.RegenerateInviteCode(group.ID, student.ID)
	require.ErrorIs(t, err, ErrNotGroupOwner)

	updated, err := env.service.RegenerateInviteCode(group.ID, teacher.ID)
	require.NoError(t, err)
	require.NotEqual(t, oldCode, updated.InviteCode)

	// The old code no longer admits anyone.
	other := env.createUser(t, "other", roles.RoleUser)
	_, err = env.service.JoinByInviteCode(oldCode, other.ID)
	require.ErrorIs(t, err, ErrInvalidInviteCode)
}

func TestGetGroup_Access(t *testing.T) {
	env := setupGroupTestEnv(t)
	teacher := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)
	outsider := env.createUser(t, "outsider", roles.RoleUser)
	deputy := env.createUser(t, "deputy", roles.RoleDeputy)

	group, err := env.service.CreateGroup("Class 7A", teacher.ID)
	require.NoError(t, err)
	_, err = env.service.JoinByInviteCode(group.InviteCode, student.ID)
	require.NoError(t, err)

	_, members, err := env.service.GetGroup(group.ID, student.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	// Outsiders get a not-found, not a deny.
	_, _, err = env.service.GetGroup(group.ID, outsider.ID)
	require.ErrorIs(t, err, ErrGroupNotFound)

	// Group managers may inspect groups they do not belong to.
	_, _, err = env.service.GetGroup(group.ID, deputy.ID)
	require.NoError(t, err)
}

func TestRemoveMember(t *testing.T) {
	env := setupGroupTestEnv(t)
	teacher := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)

	group, err := env.service.CreateGroup("Class 7A", teacher.ID)
	require.NoError(t, err)
	_, err = env.service.JoinByInviteCode(group.InviteCode, student.ID)
	require.NoError(t, err)

	// Owners cannot remove themselves.
	err = env.service.RemoveMember(group.ID, teacher.ID, teacher.ID)
	require.ErrorIs(t, err, ErrNotGroupOwner)

	require.NoError(t, env.service.RemoveMember(group.ID, teacher.ID, student.ID))

	err = env.service.RemoveMember(group.ID, teacher.ID, student.ID)
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestDeleteGroup(t *testing.T) {
	env := setupGroupTestEnv(t)
	teacher := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)

	group, err := env.service.CreateGroup("Class 7A", teacher.ID)
	require.NoError(t, err)
	_, err = env.service.JoinByInviteCode(group.InviteCode, student.ID)
	require.NoError(t, err)

	err = env.service.DeleteGroup(group.ID, student.ID)
	require.ErrorIs(t, err, ErrNotGroupOwner)

	require.NoError(t, env.service.DeleteGroup(group.ID, teacher.ID))

	_, _, err = env.service.GetGroup(group.ID, teacher.ID)
	require.ErrorIs(t, err, ErrGroupNotFound)
}
