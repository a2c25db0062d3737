package user

import "github.com/cmlabs-hris/lms-backend-go/internal/pkg/validator"

type CreateUserRequest struct {
	OrganizationID string  `json:"organization_id"`
	EmployeeID     string  `json:"employee_id"`
	Email          string  `json:"email"`
	FullName       string  `json:"full_name"`
	Password       string  `json:"password"`
	Role           string  `json:"role"`
	EmploymentType string  `json:"employment_type"`
	HireDate       *string `json:"hire_date,omitempty"`
	ManagerID      *string `json:"manager_id,omitempty"`
}

func (r *CreateUserRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.OrganizationID) {
		errs = append(errs, validator.ValidationError{
			Field:   "organization_id",
			Message: "organization_id is required",
		})
	}

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	// Email
	if validator.IsEmpty(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email is required",
		})
	} else if !validator.IsValidEmail(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email format is invalid",
		})
	}

	if validator.IsEmpty(r.FullName) {
		errs = append(errs, validator.ValidationError{
			Field:   "full_name",
			Message: "full_name is required",
		})
	}

	// Password
	if len(r.Password) < 8 {
		errs = append(errs, validator.ValidationError{
			Field:   "password",
			Message: "password must be at least 8 characters",
		})
	}

	// Role
	switch Role(r.Role) {
	case RoleEmployee, RoleManager, RoleHRAdmin, RoleSystemAdmin, RoleAuditor:
	default:
		errs = append(errs, validator.ValidationError{
			Field:   "role",
			Message: "role is invalid",
		})
	}

	if r.HireDate != nil {
		if _, ok := validator.IsValidDate(*r.HireDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "hire_date",
				Message: "hire_date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type SetManagerRequest struct {
	UserID    string  `json:"user_id"`
	ManagerID *string `json:"manager_id"`
}

func (r *SetManagerRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organization_id"`
	EmployeeID     string  `json:"employee_id"`
	Email          string  `json:"email"`
	FullName       string  `json:"full_name"`
	Role           string  `json:"role"`
	Status         string  `json:"status"`
	EmploymentType string  `json:"employment_type"`
	HireDate       *string `json:"hire_date,omitempty"`
	ManagerID      *string `json:"manager_id,omitempty"`
}

func ToUserResponse(u *User) UserResponse {
	resp := UserResponse{
		ID:             u.ID.String(),
		OrganizationID: u.OrganizationID.String(),
		EmployeeID:     u.EmployeeID,
		Email:          u.Email,
		FullName:       u.FullName,
		Role:           string(u.Role),
		Status:         string(u.Status),
		EmploymentType: u.EmploymentType,
	}
	if u.HireDate != nil {
		d := u.HireDate.Format("2006-01-02")
		resp.HireDate = &d
	}
	if u.ManagerID != nil {
		id := u.ManagerID.String()
		resp.ManagerID = &id
	}
	return resp
}
