package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/models"
)

// Role names accepted by the single-role assignment endpoints.
const (
	RoleAdmin       = "admin"
	RoleOperator    = "operateur"
	RoleResponsable = "responsable"
	RoleRO          = "ro"
)

// UserInput carries the fields accepted for user create/update. Role picks
// exactly one role flag; the others are reset.
type UserInput struct {
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role"`
}

func roleFlags(role string) (map[string]interface{}, error) {
	flags := map[string]interface{}{
		"is_admin": false,
		"is_op":    false,
		"is_rs":    false,
		"is_ro":    false,
	}
	switch role {
	case RoleAdmin:
		flags["is_admin"] = true
	case RoleOperator:
		flags["is_op"] = true
	case RoleResponsable:
		flags["is_rs"] = true
	case RoleRO:
		flags["is_ro"] = true
	case "":
		// No role change requested
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}
	return flags, nil
}

// ListRoleUsers returns the users that hold an operator, responsable or RO
// flag, the population the assignment screens manage.
func ListRoleUsers(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	err := db.Where("is_op = ? OR is_rs = ? OR is_ro = ?", true, true, true).
		Order("username ASC").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser creates a user with a single role flag set.
func CreateUser(db *gorm.DB, in UserInput) (*models.User, error) {
	if in.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	flags, err := roleFlags(in.Role)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if flags != nil {
		user.IsAdmin = flags["is_admin"].(bool)
		user.IsOp = flags["is_op"].(bool)
		user.IsRs = flags["is_rs"].(bool)
		user.IsRo = flags["is_ro"].(bool)
	}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("E_DUPLICATE - username already in use")
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser edits a user. Assigning a role resets every other role flag,
// a user holds exactly one role at a time.
func UpdateUser(db *gorm.DB, userID uint, in UserInput) (*models.User, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Username != "" {
		updates["username"] = in.Username
	}
	if in.Email != "" {
		updates["email"] = in.Email
	}
	if in.FirstName != "" {
		updates["first_name"] = in.FirstName
	}
	if in.LastName != "" {
		updates["last_name"] = in.LastName
	}
	flags, err := roleFlags(in.Role)
	if err != nil {
		return nil, err
	}
	for k, v := range flags {
		updates[k] = v
	}
	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("E_DUPLICATE - username already in use")
			}
			return nil, err
		}
	}
	return &user, nil
}

// DeleteUser removes a user. Self-deletion is refused.
func DeleteUser(db *gorm.DB, userID, requesterID uint) error {
	if userID == requesterID {
		return fmt.Errorf("E_SELF_DELETE - cannot delete your own account")
	}
	result := db.Delete(&models.User{}, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("not found")
	}
	return nil
}
