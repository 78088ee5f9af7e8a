package services_test

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/models"
	"github.com/localnerve/gamme-qc/internal/services"
	"github.com/localnerve/gamme-qc/internal/storage"
	"github.com/localnerve/gamme-qc/internal/types"
	"github.com/localnerve/gamme-qc/tests/helpers"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Mission{},
		&models.Gamme{},
		&models.Operation{},
		&models.OperationPhoto{},
		&models.DefectPhoto{},
		&models.Epi{},
		&models.MoyenControle{},
		&models.Validation{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func setupTestStore(t *testing.T) storage.Store {
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:3000/media")
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return store
}

func strPtr(s string) *string { return &s }

func flexBoolPtr(b bool) *types.FlexBool {
	fb := types.FlexBool(b)
	return &fb
}

// storedGamme builds the in-memory picture of a stored gamme for change detection
func storedGamme() *models.Gamme {
	return &models.Gamme{
		GammeID:    1,
		Intitule:   "Gamme: Contrôle final",
		NoIncident: "INC-1",
		Statut:     true,
		PictoS:     false,
		PictoR:     true,
		Epis:       []models.Epi{{EpiID: 1}, {EpiID: 2}},
		Moyens:     []models.MoyenControle{{MoyenID: 5}},
		Operations: []models.Operation{
			{
				OperationID: 10,
				Ordre:       1,
				Titre:       "Inspection",
				Description: "Visuelle",
				Criteres:    "Aucun défaut",
				Photos: []models.OperationPhoto{
					{PhotoID: 100, ImagePath: "operations/a.jpg", Description: "vue avant"},
				},
			},
			{
				OperationID: 11,
				Ordre:       2,
				Titre:       "Mesure",
			},
		},
	}
}

// TestDetectGammeChange exercises the pure change detection
func TestDetectGammeChange(t *testing.T) {
	cases := []struct {
		name string
		in   services.GammeInput
		want bool
	}{
		{"empty input", services.GammeInput{}, false},
		{"same title", services.GammeInput{Intitule: "Gamme: Contrôle final"}, false},
		{"new title", services.GammeInput{Intitule: "Gamme: Contrôle final v2"}, true},
		{"same picto", services.GammeInput{PictoR: flexBoolPtr(true)}, false},
		{"picto flip", services.GammeInput{PictoS: flexBoolPtr(true)}, true},
		{"same incident", services.GammeInput{NoIncident: "INC-1"}, false},
		{"new incident", services.GammeInput{NoIncident: "INC-2"}, true},
		{"same epi set reordered", services.GammeInput{EpiIDs: []types.FlexUint64{2, 1}}, false},
		{"epi removed", services.GammeInput{EpiIDs: []types.FlexUint64{1}}, true},
		{"moyen added", services.GammeInput{MoyenIDs: []types.FlexUint64{5, 6}}, true},
		{"new operation", services.GammeInput{
			NewOperations: []services.NewOperationInput{{Titre: "Nettoyage"}},
		}, true},
		{"operation deleted", services.GammeInput{
			Operations: []services.OperationInput{{OperationID: 11, Delete: true}},
		}, true},
		{"operation unchanged", services.GammeInput{
			Operations: []services.OperationInput{{OperationID: 10, Titre: "Inspection", Ordre: 1}},
		}, false},
		{"operation retitled", services.GammeInput{
			Operations: []services.OperationInput{{OperationID: 10, Titre: "Inspection complète"}},
		}, true},
		{"operation reordered", services.GammeInput{
			Operations: []services.OperationInput{{OperationID: 10, Ordre: 2}},
		}, true},
		{"description cleared", services.GammeInput{
			Operations: []services.OperationInput{{OperationID: 10, Description: strPtr("")}},
		}, true},
		{"stale operation id", services.GammeInput{
			Operations: []services.OperationInput{{OperationID: 999, Titre: "Fantôme", Delete: true}},
		}, false},
		{"photo deleted", services.GammeInput{
			Operations: []services.OperationInput{{
				OperationID: 10,
				Photos:      []services.PhotoInput{{PhotoID: 100, Delete: true}},
			}},
		}, true},
		{"photo description unchanged", services.GammeInput{
			Operations: []services.OperationInput{{
				OperationID: 10,
				Photos:      []services.PhotoInput{{PhotoID: 100, Description: strPtr("vue avant")}},
			}},
		}, false},
		{"photo added", services.GammeInput{
			Operations: []services.OperationInput{{
				OperationID: 10,
				NewPhotos:   []services.NewPhotoInput{{FileKey: "p1"}},
			}},
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.DetectGammeChange(storedGamme(), tc.in); got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}

// TestNextVersion tests the +0.1 version bump
func TestNextVersion(t *testing.T) {
	cases := []struct {
		latest string
		want   string
	}{
		{"1.0", "1.1"},
		{"1.9", "2.0"},
		{"3.4", "3.5"},
		{"10.0", "10.1"},
		{"", "1.1"},
		{"garbage", "1.1"},
	}
	for _, tc := range cases {
		if got := services.NextVersion(tc.latest); got != tc.want {
			t.Errorf("NextVersion(%q): expected %q, got %q", tc.latest, tc.want, got)
		}
	}
}

// TestCloneCarriesOperationsAndPhotos tests the clone-forward invariants
func TestCloneCarriesOperationsAndPhotos(t *testing.T) {
	db := setupTestDB(t)
	store := setupTestStore(t)

	user := helpers.CreateTestUser(t, db, "cloner", false, true, false, false)
	mission := helpers.CreateTestMission(t, db, "CLONE-1", "Clone mission", user.UserID)
	gamme := helpers.CreateTestGamme(t, db, mission.MissionID, "Gamme: Clone mission", "1.0",
		[]string{"Inspection", "Mesure", "Finition"}, user.UserID)
	photo := helpers.CreateTestOperationPhoto(t, db, gamme.Operations[0].OperationID,
		"operations/shared.jpg", "vue avant")

	in := services.MissionUpdateInput{
		Gammes: []services.GammeInput{
			{
				GammeID: types.FlexUint64(gamme.GammeID),
				Operations: []services.OperationInput{
					{OperationID: types.FlexUint64(gamme.Operations[1].OperationID), Delete: true},
					{OperationID: types.FlexUint64(gamme.Operations[0].OperationID),
						Photos: []services.PhotoInput{
							{PhotoID: types.FlexUint64(photo.PhotoID), Description: strPtr("vue avant, annotée")},
						}},
				},
			},
		},
	}

	result, err := services.RunMissionUpdate(db, store, mission.MissionID, in, nil, user.UserID)
	if err != nil {
		t.Fatalf("Failed to run mission update: %v", err)
	}
	if len(result.Gammes) != 1 {
		t.Fatalf("Expected 1 cloned gamme, got %d", len(result.Gammes))
	}
	if result.Gammes[0].Version != "1.1" {
		t.Errorf("Expected version 1.1, got %s", result.Gammes[0].Version)
	}

	next, err := services.GetGamme(db, result.Gammes[0].GammeID)
	if err != nil {
		t.Fatalf("Failed to load successor gamme: %v", err)
	}

	// Deleted op dropped, the two others carried
	if len(next.Operations) != 2 {
		t.Fatalf("Expected 2 operations, got %d", len(next.Operations))
	}
	for _, op := range next.Operations {
		if op.Titre == "Mesure" {
			t.Error("Expected deleted operation to be dropped")
		}
	}

	// Photo carried as a new row sharing the image file
	carried := next.Operations[0].Photos
	if len(carried) != 1 {
		t.Fatalf("Expected 1 carried photo, got %d", len(carried))
	}
	if carried[0].PhotoID == photo.PhotoID {
		t.Error("Expected a new photo row on the successor")
	}
	if carried[0].ImagePath != photo.ImagePath {
		t.Errorf("Expected shared image path %s, got %s", photo.ImagePath, carried[0].ImagePath)
	}
	if carried[0].Description != "vue avant, annotée" {
		t.Errorf("Expected updated description, got %q", carried[0].Description)
	}

	// Prior version deactivated, successor active
	var prior models.Gamme
	if err := db.First(&prior, gamme.GammeID).Error; err != nil {
		t.Fatalf("Failed to reload prior gamme: %v", err)
	}
	if prior.Statut {
		t.Error("Expected prior gamme to be deactivated")
	}
	if !next.Statut {
		t.Error("Expected successor gamme to be active")
	}
}

// TestStaleRevisionConflict tests that an edit built on a superseded
// revision is rejected instead of forking a new version
func TestStaleRevisionConflict(t *testing.T) {
	db := setupTestDB(t)
	store := setupTestStore(t)

	user := helpers.CreateTestUser(t, db, "laggard", false, true, false, false)
	mission := helpers.CreateTestMission(t, db, "STALE-1", "Stale mission", user.UserID)
	gamme := helpers.CreateTestGamme(t, db, mission.MissionID, "Gamme: Stale mission", "1.0",
		[]string{"Etape 1"}, user.UserID)

	in := services.MissionUpdateInput{
		Gammes: []services.GammeInput{
			{GammeID: types.FlexUint64(gamme.GammeID), PictoS: flexBoolPtr(true)},
		},
	}

	// First edit supersedes v1.0 with v1.1
	result, err := services.RunMissionUpdate(db, store, mission.MissionID, in, nil, user.UserID)
	if err != nil {
		t.Fatalf("Failed to run mission update: %v", err)
	}
	if result.Gammes[0].Version != "1.1" {
		t.Fatalf("Expected version 1.1, got %s", result.Gammes[0].Version)
	}

	// A second edit still based on the v1.0 gamme id must conflict, not
	// produce a v1.2
	in.Gammes[0].PictoR = flexBoolPtr(true)
	_, err = services.RunMissionUpdate(db, store, mission.MissionID, in, nil, user.UserID)
	if err == nil || !strings.Contains(err.Error(), "E_VERSION") {
		t.Fatalf("Expected version conflict error, got %v", err)
	}

	// No third revision exists and the successor is untouched
	var count int64
	if err := db.Model(&models.Gamme{}).
		Where("mission_id = ? AND intitule = ?", mission.MissionID, gamme.Intitule).
		Count(&count).Error; err != nil {
		t.Fatalf("Failed to count revisions: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 revisions, got %d", count)
	}
	var successor models.Gamme
	if err := db.First(&successor, result.Gammes[0].GammeID).Error; err != nil {
		t.Fatalf("Failed to reload successor: %v", err)
	}
	if !successor.Statut {
		t.Error("Expected successor to remain active")
	}
}

// TestCloneResequencesOrdre tests collision-free ordre assignment
func TestCloneResequencesOrdre(t *testing.T) {
	db := setupTestDB(t)
	store := setupTestStore(t)

	user := helpers.CreateTestUser(t, db, "sequencer", false, true, false, false)
	mission := helpers.CreateTestMission(t, db, "SEQ-1", "Sequence mission", user.UserID)
	gamme := helpers.CreateTestGamme(t, db, mission.MissionID, "Gamme: Sequence mission", "1.0",
		[]string{"Premier", "Deuxième", "Troisième"}, user.UserID)

	// Move the third op to the front; the others shift down
	in := services.MissionUpdateInput{
		Gammes: []services.GammeInput{
			{
				GammeID: types.FlexUint64(gamme.GammeID),
				Operations: []services.OperationInput{
					{OperationID: types.FlexUint64(gamme.Operations[2].OperationID), Ordre: 1},
				},
				NewOperations: []services.NewOperationInput{
					{Titre: "Quatrième"},
				},
			},
		},
	}

	result, err := services.RunMissionUpdate(db, store, mission.MissionID, in, nil, user.UserID)
	if err != nil {
		t.Fatalf("Failed to run mission update: %v", err)
	}

	ops, err := services.ListOperations(db, result.Gammes[0].GammeID)
	if err != nil {
		t.Fatalf("Failed to list operations: %v", err)
	}
	if len(ops) != 4 {
		t.Fatalf("Expected 4 operations, got %d", len(ops))
	}

	// Ordre values must be unique and ascending
	seen := make(map[int]bool)
	for i, op := range ops {
		if seen[op.Ordre] {
			t.Errorf("Duplicate ordre %d", op.Ordre)
		}
		seen[op.Ordre] = true
		if i > 0 && ops[i-1].Ordre >= op.Ordre {
			t.Errorf("Expected ascending ordre, got %d before %d", ops[i-1].Ordre, op.Ordre)
		}
	}

	if ops[0].Titre != "Troisième" {
		t.Errorf("Expected relocated operation first, got %s", ops[0].Titre)
	}
	if ops[3].Titre != "Quatrième" {
		t.Errorf("Expected appended operation last, got %s", ops[3].Titre)
	}
}

// TestNewGammeDefaults tests v1.0 creation through the update tree
func TestNewGammeDefaults(t *testing.T) {
	db := setupTestDB(t)
	store := setupTestStore(t)

	user := helpers.CreateTestUser(t, db, "starter", false, true, false, false)
	mission := helpers.CreateTestMission(t, db, "NEW-1", "Montage final", user.UserID)

	in := services.MissionUpdateInput{
		NewGamme: &services.NewGammeInput{
			Operations: []services.NewOperationInput{
				{Titre: "Préparation"},
				{},
			},
		},
	}

	result, err := services.RunMissionUpdate(db, store, mission.MissionID, in, nil, user.UserID)
	if err != nil {
		t.Fatalf("Failed to run mission update: %v", err)
	}
	if result.NewGammeID == 0 {
		t.Fatal("Expected new gamme id in result")
	}

	gamme, err := services.GetGamme(db, result.NewGammeID)
	if err != nil {
		t.Fatalf("Failed to load new gamme: %v", err)
	}

	if gamme.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", gamme.Version)
	}
	if gamme.Intitule != "Gamme: Montage final" {
		t.Errorf("Expected default title, got %q", gamme.Intitule)
	}
	if !gamme.Statut {
		t.Error("Expected new gamme to be active")
	}
	if len(gamme.Operations) != 2 {
		t.Fatalf("Expected 2 operations, got %d", len(gamme.Operations))
	}
	if gamme.Operations[1].Titre != "Nouvelle opération" {
		t.Errorf("Expected default operation title, got %q", gamme.Operations[1].Titre)
	}
}

// TestMissingGammeFails tests the not-found path of the update tree
func TestMissingGammeFails(t *testing.T) {
	db := setupTestDB(t)
	store := setupTestStore(t)

	user := helpers.CreateTestUser(t, db, "strayer", false, true, false, false)
	mission := helpers.CreateTestMission(t, db, "MISS-1", "Stray mission", user.UserID)

	in := services.MissionUpdateInput{
		Gammes: []services.GammeInput{
			{GammeID: 9999, Intitule: "Fantôme"},
		},
	}

	_, err := services.RunMissionUpdate(db, store, mission.MissionID, in, nil, user.UserID)
	if err == nil || err.Error() != "not found" {
		t.Errorf("Expected not found error, got %v", err)
	}
}
