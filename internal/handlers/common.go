// common.go
//
// A scalable quality-control gamme service, replacement for the legacy Django QC application
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gamme-qc.
// gamme-qc is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gamme-qc is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gamme-qc.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/models"
)

// parseIDParam extracts a positive integer route parameter.
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

// parseBoolQuery reads a 0/1 query flag, nil when absent or malformed.
func parseBoolQuery(c *fiber.Ctx, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	switch raw {
	case "1", "true", "True":
		v := true
		return &v
	case "0", "false", "False":
		v := false
		return &v
	}
	return nil
}

// requestUser resolves the authenticated session to the local user row,
// creating it on first sight. The middleware stores the session email in
// context as "userEmail".
func requestUser(c *fiber.Ctx, db *gorm.DB) (*models.User, error) {
	email, _ := c.Locals("userEmail").(string)
	if email == "" {
		return nil, fmt.Errorf("no authenticated user in request context")
	}
	username := email
	if at := strings.Index(email, "@"); at > 0 {
		username = email[:at]
	}
	var user models.User
	err := db.Where("email = ?", email).
		Attrs(models.User{Username: username, Email: email}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// isOperatorOnly reports whether the session user holds the operator flag
// and nothing above it. Operators see only active missions.
func isOperatorOnly(user *models.User) bool {
	return user != nil && user.IsOp && !user.IsAdmin && !user.IsRs && !user.IsRo
}
