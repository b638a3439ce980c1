package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeGenerator stands in for the OpenAI client in tests.
type fakeGenerator struct {
	configured bool
	stories    []string
	err        error
	calls      int
}

func (f *fakeGenerator) Configured() bool { return f.configured }

func (f *fakeGenerator) GenerateUserStories(ctx context.Context, description string) ([]string, error) {
	f.calls++
	return f.stories, f.err
}

// StoryServiceTestSuite defines the test suite for StoryService
type StoryServiceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	generator *fakeGenerator
	service   *StoryService
	manager   *models.User
	projectID uint64
}

// SetupTest runs before each test
func (suite *StoryServiceTestSuite) SetupTest() {
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
	storyRepo := repository.NewStoryRepository(suite.db)

	suite.generator = &fakeGenerator{configured: true}
	suite.service = NewStoryService(projectRepo, storyRepo, taskRepo, suite.generator)

	suite.manager = &models.User{
		Username:     "manager",
		Email:        "manager@example.com",
		FullName:     "manager",
		PasswordHash: "hashedpassword",
		Role:         models.RoleManager,
	}
	suite.db.Create(suite.manager)

	projects := NewProjectService(projectRepo, taskRepo, userRepo)
	info, err := projects.CreateProject(suite.manager, CreateProjectInput{Name: "Apollo"})
	suite.Require().NoError(err)
	suite.projectID = info.Project.ID
}

// TearDownTest runs after each test
func (suite *StoryServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *StoryServiceTestSuite) TestGenerateAndPersistStories() {
	suite.generator.stories = []string{
		"As a flight director, I want live telemetry so that I can react quickly",
		"As an astronaut, I want checklists so that nothing is missed",
	}

	stories, err := suite.service.GenerateUserStories(context.Background(), suite.manager, suite.projectID, "A mission control dashboard for tracking spacecraft telemetry")
	suite.NoError(err)
	suite.Len(stories, 2)
	suite.Equal(1, suite.generator.calls)

	stored, err := suite.service.ListUserStories(suite.manager, suite.projectID)
	suite.NoError(err)
	suite.Len(stored, 2)
}

func (suite *StoryServiceTestSuite) TestShortDescriptionNeverCallsProvider() {
	_, err := suite.service.GenerateUserStories(context.Background(), suite.manager, suite.projectID, "short")
	suite.ErrorIs(err, ErrDescriptionTooShort)

	// Validation happens before any outbound call.
	suite.Equal(0, suite.generator.calls)
}

func (suite *StoryServiceTestSuite) TestUnconfiguredProviderDisablesFeature() {
	suite.generator.configured = false

	_, err := suite.service.GenerateUserStories(context.Background(), suite.manager, suite.projectID, "A mission control dashboard for tracking telemetry")
	suite.ErrorIs(err, ErrAINotConfigured)
	suite.Equal(0, suite.generator.calls)
}

func (suite *StoryServiceTestSuite) TestProviderFailureSurfaces() {
	suite.generator.err = errors.New("upstream timeout")

	_, err := suite.service.GenerateUserStories(context.Background(), suite.manager, suite.projectID, "A mission control dashboard for tracking telemetry")
	suite.ErrorIs(err, ErrAIUnavailable)

	// Nothing may be persisted on failure.
	var count int64
	suite.db.Model(&models.UserStory{}).Count(&count)
	suite.Equal(int64(0), count)
}

func (suite *StoryServiceTestSuite) TestInvisibleProjectNotFound() {
	outsider := &models.User{
		Username:     "outsider",
		Email:        "outsider@example.com",
		FullName:     "outsider",
		PasswordHash: "hashedpassword",
		Role:         models.RoleDeveloper,
	}
	suite.db.Create(outsider)

	_, err := suite.service.GenerateUserStories(context.Background(), outsider, suite.projectID, "A mission control dashboard for tracking telemetry")
	suite.ErrorIs(err, ErrProjectNotFound)
}

func (suite *StoryServiceTestSuite) storeStories(stories ...string) {
	for _, s := range stories {
		suite.db.Create(&models.UserStory{Story: s, ProjectID: suite.projectID})
	}
}

func (suite *StoryServiceTestSuite) TestGenerateTasksFromStories() {
	suite.storeStories(
		"As a flight director, I want to see live telemetry so that I can react quickly",
		"Telemetry archive",
	)

	tasks, err := suite.service.GenerateTasksFromStories(suite.manager, suite.projectID)
	suite.NoError(err)
	suite.Require().Len(tasks, 2)

	suite.Equal("Implement: see live telemetry", tasks[0].Title)
	suite.Equal("Task for: Telemetry archive", tasks[1].Title)
	suite.Equal(models.TaskStatusTodo, tasks[0].Status)
	suite.Equal(models.PriorityMedium, tasks[0].Priority)
	suite.Equal(suite.manager.ID, tasks[0].CreatorID)
	suite.Contains(tasks[0].Description, "I want to see live telemetry")

	var count int64
	suite.db.Model(&models.Task{}).Where("project_id = ?", suite.projectID).Count(&count)
	suite.Equal(int64(2), count)
}

func (suite *StoryServiceTestSuite) TestGenerateTasksFromStoriesRequiresLead() {
	suite.storeStories("As a user, I want to log in so that my data is private")

	member := &models.User{
		Username:     "member",
		Email:        "member@example.com",
		FullName:     "member",
		PasswordHash: "hashedpassword",
		Role:         models.RoleDeveloper,
	}
	suite.db.Create(member)
	suite.db.Create(&models.ProjectMember{ProjectID: suite.projectID, UserID: member.ID, Role: models.ProjectRoleMember})

	// A plain member sees the project but may not convert stories.
	_, err := suite.service.GenerateTasksFromStories(member, suite.projectID)
	suite.ErrorIs(err, ErrProjectForbidden)

	var count int64
	suite.db.Model(&models.Task{}).Where("project_id = ?", suite.projectID).Count(&count)
	suite.Equal(int64(0), count)
}

func (suite *StoryServiceTestSuite) TestGenerateTasksFromStoriesEmpty() {
	_, err := suite.service.GenerateTasksFromStories(suite.manager, suite.projectID)
	suite.ErrorIs(err, ErrNoStoriesToConvert)
}

func TestStoryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(StoryServiceTestSuite))
}

func TestParseStories(t *testing.T) {
	content := `- As a user, I want to log in so that my data is private
2. As an admin, I want to manage accounts so that access stays controlled

* "As a manager, I want progress bars so that status is visible"
`
	stories := parseStories(content)
	assert.Equal(t, []string{
		"As a user, I want to log in so that my data is private",
		"As an admin, I want to manage accounts so that access stays controlled",
		"As a manager, I want progress bars so that status is visible",
	}, stories)
}

func TestParseStoriesEmpty(t *testing.T) {
	assert.Empty(t, parseStories("\n  \n"))
}
