package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/broadcast-ops/fault-tracker/internal/api/dto"
	"github.com/broadcast-ops/fault-tracker/internal/domain"
	"github.com/broadcast-ops/fault-tracker/internal/service"
	"github.com/broadcast-ops/fault-tracker/internal/upload"
	apperrors "github.com/broadcast-ops/fault-tracker/pkg/util"
)

// UsersHandler manages the user directory and authentication endpoints.
type UsersHandler struct {
	service *service.UserService
	avatars *upload.AvatarStore
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService, avatars *upload.AvatarStore) *UsersHandler {
	return &UsersHandler{service: userService, avatars: avatars}
}

// Register POST /users/register. Accepts JSON or multipart form data with an
// optional avatar file.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterUserRequest
	var avatar *string

	if isMultipart(c) {
		req = registerRequestFromForm(c)
		if file, err := c.FormFile("avatar"); err == nil && file != nil {
			url, err := h.avatars.Save(c, file)
			if err != nil {
				return err
			}
			avatar = &url
		}
	} else if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.UserCreateInput{
		Email:          req.Email,
		EmployeeID:     req.EmployeeID,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PhoneNumber:    req.PhoneNumber,
		Avatar:         avatar,
		WorkExperience: req.WorkExperience,
		Role:           req.Role,
	}
	user, err := h.service.Register(c.Context(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": userResponse(user)})
}

// Login POST /users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, token, expiresAt, err := h.service.Login(c.Context(), req.Email, req.EmployeeID, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      userResponse(user),
	}})
}

// List GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "count": len(users), "data": userResponses(users)})
}

// Get GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": userResponse(user)})
}

// Roles GET /users/roles lists the assignable roles.
func (h *UsersHandler) Roles(c *fiber.Ctx) error {
	roles := domain.Roles()
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return c.JSON(fiber.Map{"success": true, "data": out})
}

// ByRole GET /users/role/:role.
func (h *UsersHandler) ByRole(c *fiber.Ctx) error {
	users, err := h.service.ListByRole(c.Context(), c.Params("role"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "count": len(users), "data": userResponses(users)})
}

// Update PUT /users/:id. Accepts JSON or multipart form data with an optional
// replacement avatar.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}

	var input service.UserUpdateInput
	if isMultipart(c) {
		input = updateInputFromForm(c)
		if file, err := c.FormFile("avatar"); err == nil && file != nil {
			url, err := h.avatars.Save(c, file)
			if err != nil {
				return err
			}
			input.Avatar = &url
		}
	} else {
		var req dto.UpdateUserRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		input = service.UserUpdateInput{
			Email:          req.Email,
			EmployeeID:     req.EmployeeID,
			Password:       req.Password,
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			PhoneNumber:    req.PhoneNumber,
			WorkExperience: req.WorkExperience,
			Active:         req.Active,
		}
	}

	user, err := h.service.Update(c.Context(), id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": userResponse(user)})
}

// UpdateRole PATCH /users/:id/role.
func (h *UsersHandler) UpdateRole(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.service.UpdateRole(c.Context(), id, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": userResponse(user)})
}

// Delete DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "user deleted successfully"})
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

func registerRequestFromForm(c *fiber.Ctx) dto.RegisterUserRequest {
	return dto.RegisterUserRequest{
		Email:          formValue(c, "email"),
		EmployeeID:     formValue(c, "employeeId"),
		Password:       c.FormValue("password"),
		FirstName:      formValue(c, "firstName"),
		LastName:       formValue(c, "lastName"),
		PhoneNumber:    formValue(c, "phoneNumber"),
		WorkExperience: formValue(c, "workExperience"),
		Role:           c.FormValue("role"),
	}
}

func updateInputFromForm(c *fiber.Ctx) service.UserUpdateInput {
	return service.UserUpdateInput{
		Email:          formValue(c, "email"),
		EmployeeID:     formValue(c, "employeeId"),
		Password:       formValue(c, "password"),
		FirstName:      formValue(c, "firstName"),
		LastName:       formValue(c, "lastName"),
		PhoneNumber:    formValue(c, "phoneNumber"),
		WorkExperience: formValue(c, "workExperience"),
	}
}

func formValue(c *fiber.Ctx, name string) *string {
	val := strings.TrimSpace(c.FormValue(name))
	if val == "" {
		return nil
	}
	return &val
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:             user.ID,
		EmployeeID:     user.EmployeeID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		FullName:       user.FullName(),
		PhoneNumber:    user.PhoneNumber,
		Avatar:         user.Avatar,
		WorkExperience: user.WorkExperience,
		Role:           string(user.Role),
		Active:         user.Active,
		LastLogin:      user.LastLogin,
	}
}

func userResponses(users []domain.User) []dto.UserResponse {
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userResponse(&users[i]))
	}
	return out
}
