// user_handlers_test.go
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

package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/localnerve/gamme-qc/internal/handlers"
	"github.com/localnerve/gamme-qc/internal/models"
	"github.com/localnerve/gamme-qc/tests/helpers"
)

func TestCreateUser_Duplicate(t *testing.T) {
	db := setupTestDB(t)

	app := newTestApp("admin@example.com")
	handler := &handlers.UserHandler{DB: db}
	app.Post("/api/users", handler.CreateUser)

	body, _ := json.Marshal(map[string]interface{}{
		"username": "jdupont",
		"role":     "operateur",
	})
	req := httptest.NewRequest("POST", "/api/users", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	var created models.User
	helpers.ParseJSON(t, resp, &created)
	if !created.IsOp {
		t.Error("Expected operator flag set")
	}

	// Same username again -> 409
	req = httptest.NewRequest("POST", "/api/users", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 409)
}

func TestUpdateUser_RoleResetsFlags(t *testing.T) {
	db := setupTestDB(t)

	user := helpers.CreateTestUser(t, db, "mmartin", false, true, false, false)

	app := newTestApp("admin@example.com")
	handler := &handlers.UserHandler{DB: db}
	app.Put("/api/users/:id", handler.UpdateUser)

	body, _ := json.Marshal(map[string]interface{}{
		"role": "responsable",
	})
	req := httptest.NewRequest("PUT", fmt.Sprintf("/api/users/%d", user.UserID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	var updated models.User
	helpers.ParseJSON(t, resp, &updated)
	if !updated.IsRs {
		t.Error("Expected responsable flag set")
	}
	if updated.IsOp {
		t.Error("Expected operator flag cleared by role assignment")
	}
}

func TestUpdateUser_UnknownRole(t *testing.T) {
	db := setupTestDB(t)

	user := helpers.CreateTestUser(t, db, "pbernard", false, true, false, false)

	app := newTestApp("admin@example.com")
	handler := &handlers.UserHandler{DB: db}
	app.Put("/api/users/:id", handler.UpdateUser)

	body, _ := json.Marshal(map[string]interface{}{
		"role": "superviseur",
	})
	req := httptest.NewRequest("PUT", fmt.Sprintf("/api/users/%d", user.UserID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 400)
}

func TestDeleteUser_Self(t *testing.T) {
	db := setupTestDB(t)

	// The requester row is found by session email
	requester := models.User{
		Username: "admin",
		Email:    "admin@example.com",
		IsAdmin:  true,
	}
	if err := db.Create(&requester).Error; err != nil {
		t.Fatalf("Failed to create requester: %v", err)
	}

	app := newTestApp("admin@example.com")
	handler := &handlers.UserHandler{DB: db}
	app.Delete("/api/users/:id", handler.DeleteUser)

	// Deleting your own account -> 400
	req := httptest.NewRequest("DELETE", fmt.Sprintf("/api/users/%d", requester.UserID), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 400)

	// Deleting somebody else works
	other := helpers.CreateTestUser(t, db, "temp", false, true, false, false)
	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/users/%d", other.UserID), nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)
}
