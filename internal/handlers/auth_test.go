package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hnakamura/project-management-api/internal/auth"
	"github.com/hnakamura/project-management-api/internal/middleware"
	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/repository"
	"github.com/hnakamura/project-management-api/internal/services"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AuthHandlerTestSuite defines the test suite for AuthHandler
type AuthHandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	tokens *auth.TokenManager
	router *gin.Engine
}

// SetupTest runs before each test
func (suite *AuthHandlerTestSuite) SetupTest() {
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
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo)
	suite.tokens = auth.NewTokenManager("test-secret", time.Hour)

	handler := NewAuthHandler(authService, userService, suite.tokens)

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	// Create router
	suite.router = gin.New()
	requireAuth := middleware.RequireAuth(suite.tokens, authService)
	suite.router.POST("/api/auth/signup", handler.Signup)
	suite.router.POST("/api/auth/login", handler.Login)
	suite.router.GET("/api/auth/me", requireAuth, handler.GetCurrentUser)
	suite.router.PUT("/api/auth/password", requireAuth, handler.ChangePassword)
}

// TearDownTest runs after each test
func (suite *AuthHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *AuthHandlerTestSuite) postJSON(path string, body any, token string) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	suite.Require().NoError(err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *AuthHandlerTestSuite) signup(username string) {
	w := suite.postJSON("/api/auth/signup", gin.H{
		"username":  username,
		"email":     username + "@example.com",
		"full_name": username,
		"password":  "password123",
	}, "")
	suite.Require().Equal(http.StatusCreated, w.Code)
}

func (suite *AuthHandlerTestSuite) login(username string) string {
	w := suite.postJSON("/api/auth/login", gin.H{
		"username": username,
		"password": "password123",
	}, "")
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().NotEmpty(resp.Token)
	return resp.Token
}

func (suite *AuthHandlerTestSuite) TestSignupDefaultsToDeveloper() {
	w := suite.postJSON("/api/auth/signup", gin.H{
		"username":  "neil",
		"email":     "neil@example.com",
		"full_name": "Neil Armstrong",
		"password":  "password123",
	}, "")
	suite.Equal(http.StatusCreated, w.Code)

	var resp map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("developer", resp["role"])
	suite.NotContains(w.Body.String(), "password")
}

func (suite *AuthHandlerTestSuite) TestSignupDuplicateUsernameConflict() {
	suite.signup("neil")

	w := suite.postJSON("/api/auth/signup", gin.H{
		"username":  "neil",
		"email":     "other@example.com",
		"full_name": "Other Neil",
		"password":  "password123",
	}, "")
	suite.Equal(http.StatusConflict, w.Code)
	suite.Contains(w.Body.String(), "CONFLICT")
}

func (suite *AuthHandlerTestSuite) TestLoginIssuesUsableToken() {
	suite.signup("neil")
	token := suite.login("neil")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "neil")
}

func (suite *AuthHandlerTestSuite) TestLoginWrongPassword() {
	suite.signup("neil")

	w := suite.postJSON("/api/auth/login", gin.H{
		"username": "neil",
		"password": "wrong-password",
	}, "")
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *AuthHandlerTestSuite) TestMeRequiresToken() {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *AuthHandlerTestSuite) TestMeRejectsGarbageToken() {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *AuthHandlerTestSuite) TestChangePassword() {
	suite.signup("neil")
	token := suite.login("neil")

	req := httptest.NewRequest(http.MethodPut, "/api/auth/password", bytes.NewReader([]byte(`{"current_password":"password123","new_password":"betterpassword"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code)

	// Old password no longer works.
	lw := suite.postJSON("/api/auth/login", gin.H{"username": "neil", "password": "password123"}, "")
	suite.Equal(http.StatusUnauthorized, lw.Code)

	lw = suite.postJSON("/api/auth/login", gin.H{"username": "neil", "password": "betterpassword"}, "")
	suite.Equal(http.StatusOK, lw.Code)
}

func TestAuthHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}
