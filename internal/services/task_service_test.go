package services

import (
	"testing"
	"time"

	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/repository"
	"github.com/hnakamura/project-management-api/internal/utils"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskServiceTestSuite defines the test suite for TaskService
type TaskServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	service  *TaskService
	projects *ProjectService
}

// SetupTest runs before each test
func (suite *TaskServiceTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	// Run migrations
	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.TaskComment{},
		&models.UserStory{},
	)
	suite.Require().NoError(err)

	userRepo := repository.NewUserRepository(suite.db)
	projectRepo := repository.NewProjectRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)

	suite.service = NewTaskService(taskRepo, projectRepo, userRepo)
	suite.projects = NewProjectService(projectRepo, taskRepo, userRepo)
}

// TearDownTest runs after each test
func (suite *TaskServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskServiceTestSuite) createTestUser(username string, role models.UserRole) *models.User {
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     username,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	suite.db.Create(user)
	return user
}

func (suite *TaskServiceTestSuite) createTestProject(creator *models.User, members ...*models.User) uint64 {
	info, err := suite.projects.CreateProject(creator, CreateProjectInput{Name: "Apollo"})
	suite.Require().NoError(err)
	for _, m := range members {
		suite.Require().NoError(suite.projects.AddMember(creator, info.Project.ID, m.ID, models.ProjectRoleMember))
	}
	return info.Project.ID
}

func (suite *TaskServiceTestSuite) TestCreateTaskByMember() {
	manager := suite.createTestUser("manager", models.RoleManager)
	dev := suite.createTestUser("dev", models.RoleDeveloper)
	projectID := suite.createTestProject(manager, dev)

	task, err := suite.service.CreateTask(dev, CreateTaskInput{
		Title:     "Inspect heat shield",
		ProjectID: projectID,
	})
	suite.NoError(err)
	suite.Equal(models.TaskStatusTodo, task.Status)
	suite.Equal(models.PriorityMedium, task.Priority)
	suite.Equal(dev.ID, task.CreatorID)
}

func (suite *TaskServiceTestSuite) TestCreateTaskNonMemberForbidden() {
	manager := suite.createTestUser("manager", models.RoleManager)
	outsider := suite.createTestUser("outsider", models.RoleDeveloper)
	projectID := suite.createTestProject(manager)

	_, err := suite.service.CreateTask(outsider, CreateTaskInput{
		Title:     "Inspect heat shield",
		ProjectID: projectID,
	})
	suite.ErrorIs(err, ErrTaskForbidden)

	// No row may be inserted by the failed call.
	var count int64
	suite.db.Model(&models.Task{}).Where("project_id = ?", projectID).Count(&count)
	suite.Equal(int64(0), count)
}

func (suite *TaskServiceTestSuite) TestCreateTaskAssigneeMustBeMember() {
	manager := suite.createTestUser("manager", models.RoleManager)
	outsider := suite.createTestUser("outsider", models.RoleDeveloper)
	projectID := suite.createTestProject(manager)

	_, err := suite.service.CreateTask(manager, CreateTaskInput{
		Title:      "Inspect heat shield",
		ProjectID:  projectID,
		AssigneeID: &outsider.ID,
	})
	suite.ErrorIs(err, ErrAssigneeNotMember)
}

func (suite *TaskServiceTestSuite) TestDeveloperStatusOnlyUpdate() {
	manager := suite.createTestUser("manager", models.RoleManager)
	dev := suite.createTestUser("dev", models.RoleDeveloper)
	projectID := suite.createTestProject(manager, dev)

	task, err := suite.service.CreateTask(manager, CreateTaskInput{
		Title:      "Inspect heat shield",
		ProjectID:  projectID,
		AssigneeID: &dev.ID,
	})
	suite.Require().NoError(err)

	// The assigned developer may move the status.
	done := models.TaskStatusDone
	updated, err := suite.service.UpdateTask(dev, task.ID, UpdateTaskInput{Status: &done})
	suite.NoError(err)
	suite.Equal(models.TaskStatusDone, updated.Status)

	// Touching the title is rejected even for the assignee.
	newTitle := "Replace heat shield"
	_, err = suite.service.UpdateTask(dev, task.ID, UpdateTaskInput{Title: &newTitle, Status: &done})
	suite.ErrorIs(err, ErrTaskForbidden)
}

func (suite *TaskServiceTestSuite) TestDeveloperNotAssigneeCannotUpdate() {
	manager := suite.createTestUser("manager", models.RoleManager)
	dev := suite.createTestUser("dev", models.RoleDeveloper)
	projectID := suite.createTestProject(manager, dev)

	task, err := suite.service.CreateTask(manager, CreateTaskInput{
		Title:     "Inspect heat shield",
		ProjectID: projectID,
	})
	suite.Require().NoError(err)

	done := models.TaskStatusDone
	_, err = suite.service.UpdateTask(dev, task.ID, UpdateTaskInput{Status: &done})
	suite.ErrorIs(err, ErrTaskForbidden)
}

func (suite *TaskServiceTestSuite) TestDeveloperDeletesOwnTaskOnly() {
	manager := suite.createTestUser("manager", models.RoleManager)
	dev := suite.createTestUser("dev", models.RoleDeveloper)
	projectID := suite.createTestProject(manager, dev)

	own, err := suite.service.CreateTask(dev, CreateTaskInput{Title: "Own task", ProjectID: projectID})
	suite.Require().NoError(err)
	other, err := suite.service.CreateTask(manager, CreateTaskInput{Title: "Manager task", ProjectID: projectID})
	suite.Require().NoError(err)

	suite.ErrorIs(suite.service.DeleteTask(dev, other.ID), ErrTaskForbidden)
	suite.NoError(suite.service.DeleteTask(dev, own.ID))
}

func (suite *TaskServiceTestSuite) TestUpdateTaskInvalidStatus() {
	manager := suite.createTestUser("manager", models.RoleManager)
	projectID := suite.createTestProject(manager)

	task, err := suite.service.CreateTask(manager, CreateTaskInput{Title: "Task", ProjectID: projectID})
	suite.Require().NoError(err)

	bogus := models.TaskStatus("archived")
	_, err = suite.service.UpdateTask(manager, task.ID, UpdateTaskInput{Status: &bogus})
	suite.ErrorIs(err, ErrInvalidTaskStatus)
}

func (suite *TaskServiceTestSuite) TestListTasksScopedToVisibleProjects() {
	manager := suite.createTestUser("manager", models.RoleManager)
	other := suite.createTestUser("other", models.RoleManager)
	admin := suite.createTestUser("admin", models.RoleAdmin)

	mine := suite.createTestProject(manager)
	theirs := suite.createTestProject(other)

	_, err := suite.service.CreateTask(manager, CreateTaskInput{Title: "Mine", ProjectID: mine})
	suite.Require().NoError(err)
	_, err = suite.service.CreateTask(other, CreateTaskInput{Title: "Theirs", ProjectID: theirs})
	suite.Require().NoError(err)

	tasks, total, err := suite.service.ListTasks(manager, ListTasksInput{Pagination: utils.PaginationParams{Page: 1, Limit: 20}})
	suite.NoError(err)
	suite.Equal(int64(1), total)
	suite.Len(tasks, 1)
	suite.Equal("Mine", tasks[0].Title)

	tasks, total, err = suite.service.ListTasks(admin, ListTasksInput{Pagination: utils.PaginationParams{Page: 1, Limit: 20}})
	suite.NoError(err)
	suite.Equal(int64(2), total)
	suite.Len(tasks, 2)
}

func (suite *TaskServiceTestSuite) TestMyTasks() {
	manager := suite.createTestUser("manager", models.RoleManager)
	dev := suite.createTestUser("dev", models.RoleDeveloper)
	projectID := suite.createTestProject(manager, dev)

	_, err := suite.service.CreateTask(manager, CreateTaskInput{Title: "Assigned", ProjectID: projectID, AssigneeID: &dev.ID})
	suite.Require().NoError(err)
	_, err = suite.service.CreateTask(manager, CreateTaskInput{Title: "Unassigned", ProjectID: projectID})
	suite.Require().NoError(err)

	tasks, total, err := suite.service.MyTasks(dev, utils.PaginationParams{Page: 1, Limit: 20})
	suite.NoError(err)
	suite.Equal(int64(1), total)
	suite.Len(tasks, 1)
	suite.Equal("Assigned", tasks[0].Title)
}

func (suite *TaskServiceTestSuite) TestOverdueTasks() {
	manager := suite.createTestUser("manager", models.RoleManager)
	projectID := suite.createTestProject(manager)

	now := time.Now()
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	late, err := suite.service.CreateTask(manager, CreateTaskInput{Title: "Late", ProjectID: projectID, DueDate: &past})
	suite.Require().NoError(err)
	_, err = suite.service.CreateTask(manager, CreateTaskInput{Title: "Future", ProjectID: projectID, DueDate: &future})
	suite.Require().NoError(err)
	_, err = suite.service.CreateTask(manager, CreateTaskInput{Title: "Done late", ProjectID: projectID, DueDate: &past, Status: models.TaskStatusDone})
	suite.Require().NoError(err)
	_, err = suite.service.CreateTask(manager, CreateTaskInput{Title: "No due date", ProjectID: projectID})
	suite.Require().NoError(err)

	tasks, err := suite.service.OverdueTasks(manager, now)
	suite.NoError(err)
	suite.Len(tasks, 1)
	suite.Equal(late.ID, tasks[0].ID)
}

func (suite *TaskServiceTestSuite) TestStatusCountsIncludeZeroes() {
	manager := suite.createTestUser("manager", models.RoleManager)
	projectID := suite.createTestProject(manager)

	_, err := suite.service.CreateTask(manager, CreateTaskInput{Title: "Task", ProjectID: projectID})
	suite.Require().NoError(err)

	counts, err := suite.service.StatusCounts(manager, projectID)
	suite.NoError(err)
	suite.Equal(int64(1), counts[models.TaskStatusTodo])
	suite.Equal(int64(0), counts[models.TaskStatusInProgress])
	suite.Equal(int64(0), counts[models.TaskStatusDone])
}

func (suite *TaskServiceTestSuite) TestGetTaskHiddenFromNonMembers() {
	manager := suite.createTestUser("manager", models.RoleManager)
	outsider := suite.createTestUser("outsider", models.RoleDeveloper)
	projectID := suite.createTestProject(manager)

	task, err := suite.service.CreateTask(manager, CreateTaskInput{Title: "Task", ProjectID: projectID})
	suite.Require().NoError(err)

	_, err = suite.service.GetTask(outsider, task.ID)
	suite.ErrorIs(err, ErrTaskNotFound)
}

func (suite *TaskServiceTestSuite) TestOverdueHelper() {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	suite.True((&models.Task{DueDate: &past, Status: models.TaskStatusTodo}).Overdue(now))
	suite.False((&models.Task{DueDate: &past, Status: models.TaskStatusDone}).Overdue(now))
	suite.False((&models.Task{DueDate: &future, Status: models.TaskStatusTodo}).Overdue(now))
	suite.False((&models.Task{Status: models.TaskStatusTodo}).Overdue(now))
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
