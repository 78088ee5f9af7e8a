package services_test

import (
	"testing"
	"time"

	"github.com/localnerve/gamme-qc/internal/services"
	"github.com/localnerve/gamme-qc/tests/helpers"
)

// TestAssembleReport tests the fixed eight-slot projection
func TestAssembleReport(t *testing.T) {
	db := setupTestDB(t)

	op := helpers.CreateTestUser(t, db, "r-op", false, true, false, false)
	rs := helpers.CreateTestUser(t, db, "r-rs", false, false, true, false)
	ro := helpers.CreateTestUser(t, db, "r-ro", false, false, false, true)

	mission := helpers.CreateTestMission(t, db, "RPT-1", "Rapport mission", op.UserID)
	gamme := helpers.CreateTestGamme(t, db, mission.MissionID, "Gamme: Rapport mission", "1.0",
		[]string{"Inspection", "Mesure", "Finition"}, op.UserID)
	helpers.CreateTestOperationPhoto(t, db, gamme.Operations[0].OperationID,
		"operations/r.jpg", "vue avant")

	report, err := services.AssembleReport(db, mission.MissionID, op.UserID)
	if err != nil {
		t.Fatalf("Failed to assemble report: %v", err)
	}

	if report.Code != "RPT-1" {
		t.Errorf("Expected code RPT-1, got %s", report.Code)
	}
	if report.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", report.Version)
	}

	// Always eight slots, empties keep their position
	if len(report.Slots) != 8 {
		t.Fatalf("Expected 8 slots, got %d", len(report.Slots))
	}
	if report.Slots[0].Titre != "Inspection" {
		t.Errorf("Expected Inspection in slot 1, got %q", report.Slots[0].Titre)
	}
	if len(report.Slots[0].Photos) != 1 {
		t.Errorf("Expected 1 photo in slot 1, got %d", len(report.Slots[0].Photos))
	}
	if report.Slots[3].Titre != "" {
		t.Errorf("Expected slot 4 empty, got %q", report.Slots[3].Titre)
	}
	for i, slot := range report.Slots {
		if slot.Slot != i+1 {
			t.Errorf("Expected slot number %d, got %d", i+1, slot.Slot)
		}
	}

	// Sign-off users resolved by role flag
	if report.RS.Username != rs.Username {
		t.Errorf("Expected RS %s, got %s", rs.Username, report.RS.Username)
	}
	if report.RO.Username != ro.Username {
		t.Errorf("Expected RO %s, got %s", ro.Username, report.RO.Username)
	}
}

// TestAssembleReport_SignOffFallback tests the requester fallback when
// nobody carries the role flag
func TestAssembleReport_SignOffFallback(t *testing.T) {
	db := setupTestDB(t)

	op := helpers.CreateTestUser(t, db, "f-op", false, true, false, false)
	mission := helpers.CreateTestMission(t, db, "RPT-2", "Fallback mission", op.UserID)
	helpers.CreateTestGamme(t, db, mission.MissionID, "Gamme: Fallback mission", "1.0",
		[]string{"Inspection"}, op.UserID)

	report, err := services.AssembleReport(db, mission.MissionID, op.UserID)
	if err != nil {
		t.Fatalf("Failed to assemble report: %v", err)
	}

	if report.RS.Username != op.Username {
		t.Errorf("Expected requester as RS fallback, got %s", report.RS.Username)
	}
	if report.RO.Username != op.Username {
		t.Errorf("Expected requester as RO fallback, got %s", report.RO.Username)
	}
}

// TestAssembleReport_LatestGamme tests that the newest gamme feeds the report
func TestAssembleReport_LatestGamme(t *testing.T) {
	db := setupTestDB(t)

	op := helpers.CreateTestUser(t, db, "l-op", false, true, false, false)
	mission := helpers.CreateTestMission(t, db, "RPT-3", "Latest mission", op.UserID)
	helpers.CreateTestGamme(t, db, mission.MissionID, "Gamme: Latest mission", "1.0",
		[]string{"Ancienne"}, op.UserID)
	latest := helpers.CreateTestGamme(t, db, mission.MissionID, "Gamme: Latest mission", "1.1",
		[]string{"Récente"}, op.UserID)

	// Timestamps can tie inside one test run
	if err := db.Model(latest).Update("created_at", time.Now().Add(time.Hour)).Error; err != nil {
		t.Fatalf("Failed to bump created_at: %v", err)
	}

	report, err := services.AssembleReport(db, mission.MissionID, op.UserID)
	if err != nil {
		t.Fatalf("Failed to assemble report: %v", err)
	}

	if report.GammeID != latest.GammeID {
		t.Errorf("Expected gamme %d, got %d", latest.GammeID, report.GammeID)
	}
	if report.Slots[0].Titre != "Récente" {
		t.Errorf("Expected latest operations, got %q", report.Slots[0].Titre)
	}
}

// TestAssembleReport_NoGamme tests the not-found path
func TestAssembleReport_NoGamme(t *testing.T) {
	db := setupTestDB(t)

	op := helpers.CreateTestUser(t, db, "n-op", false, true, false, false)
	mission := helpers.CreateTestMission(t, db, "RPT-4", "Empty mission", op.UserID)

	_, err := services.AssembleReport(db, mission.MissionID, op.UserID)
	if err == nil || err.Error() != "not found" {
		t.Errorf("Expected not found error, got %v", err)
	}
}
