package controllers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	commonerrors "github.com/microshop/backend/services/common/errors"
	"github.com/microshop/backend/services/common/logger"
	"github.com/microshop/backend/services/user-service/models"
	"github.com/microshop/backend/services/user-service/repository"
)

type UserController struct {
	repo repository.UserRepository
}

func NewUserController(repo repository.UserRepository) *UserController {
	return &UserController{repo: repo}
}

type CreateUserRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,email"`
}

type UpdateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=100"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// CreateUser registers a new user.
func (uc *UserController) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}

	user := &models.User{
		ID:    uuid.New(),
		Name:  req.Name,
		Email: req.Email,
	}

	if err := uc.repo.Create(c.Request.Context(), user); err != nil {
		if stderrors.Is(err, repository.ErrEmailTaken) {
			commonerrors.Respond(c, commonerrors.New(http.StatusConflict, "Email already registered", err))
			return
		}
		logger.Error(c.Request.Context(), "user creation failed", err)
		commonerrors.Respond(c, commonerrors.ErrInternalServer)
		return
	}

	logger.Info(c.Request.Context(), "user created")
	c.JSON(http.StatusCreated, user)
}

// GetUsers lists all users ordered by name.
func (uc *UserController) GetUsers(c *gin.Context) {
	users, err := uc.repo.FindAll(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "user listing failed", err)
		commonerrors.Respond(c, commonerrors.ErrInternalServer)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUserByID returns one user. This is the endpoint the order-service
// validation client depends on: 200 means the user exists, 404 means
// authoritative absence.
func (uc *UserController) GetUserByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	user, err := uc.repo.FindByID(c.Request.Context(), id)
	if stderrors.Is(err, repository.ErrUserNotFound) {
		commonerrors.Respond(c, commonerrors.New(http.StatusNotFound, "User not found", err))
		return
	}
	if err != nil {
		logger.Error(c.Request.Context(), "user lookup failed", err)
		commonerrors.Respond(c, commonerrors.ErrInternalServer)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser applies a partial update.
func (uc *UserController) UpdateUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}

	user, err := uc.repo.FindByID(c.Request.Context(), id)
	if stderrors.Is(err, repository.ErrUserNotFound) {
		commonerrors.Respond(c, commonerrors.New(http.StatusNotFound, "User not found", err))
		return
	}
	if err != nil {
		logger.Error(c.Request.Context(), "user lookup failed", err)
		commonerrors.Respond(c, commonerrors.ErrInternalServer)
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}

	if err := uc.repo.Update(c.Request.Context(), user); err != nil {
		if stderrors.Is(err, repository.ErrEmailTaken) {
			commonerrors.Respond(c, commonerrors.New(http.StatusConflict, "Email already registered", err))
			return
		}
		logger.Error(c.Request.Context(), "user update failed", err)
		commonerrors.Respond(c, commonerrors.ErrInternalServer)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user.
func (uc *UserController) DeleteUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	if err := uc.repo.Delete(c.Request.Context(), id); err != nil {
		if stderrors.Is(err, repository.ErrUserNotFound) {
			commonerrors.Respond(c, commonerrors.New(http.StatusNotFound, "User not found", err))
			return
		}
		logger.Error(c.Request.Context(), "user deletion failed", err)
		commonerrors.Respond(c, commonerrors.ErrInternalServer)
		return
	}
	c.Status(http.StatusNoContent)
}
