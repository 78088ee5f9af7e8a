package integration_test

import (
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gamme-qc/internal/config"
	"github.com/localnerve/gamme-qc/internal/database"
	"github.com/localnerve/gamme-qc/internal/handlers"
	"github.com/localnerve/gamme-qc/internal/models"
	"github.com/localnerve/gamme-qc/internal/services"
	"github.com/localnerve/gamme-qc/internal/storage"
	"github.com/localnerve/gamme-qc/internal/types"
	"github.com/localnerve/gamme-qc/tests/helpers"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// TestWithMariaDB tests the service with a real MariaDB container
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start MariaDB container
	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	// Get container host and port
	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create config
	cfg := &config.Config{
		DBType:            "mysql",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "testdb",
		DBUser:            "testuser",
		DBPassword:        "testpass",
		DBConnectionLimit: 5,
	}

	// Wait for database to be ready
	time.Sleep(5 * time.Second)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:3000/media")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// Run tests
	t.Run("CreateAndRetrieveMission", func(t *testing.T) {
		testCreateAndRetrieveMission(t, db)
	})

	t.Run("GammeVersioning", func(t *testing.T) {
		testGammeVersioning(t, db, store)
	})

	t.Run("DeleteOperations", func(t *testing.T) {
		testDeleteOperations(t, db)
	})

	t.Run("HandlerDuplicateCode", func(t *testing.T) {
		testHandlerDuplicateCode(t, db, store)
	})
}

// TestWithPostgreSQL tests the service with a real PostgreSQL container
func TestWithPostgreSQL(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start PostgreSQL container
	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("POSTGRES_IMAGE"),
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_USER":     "testuser",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}()

	// Get container host and port
	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create config
	cfg := &config.Config{
		DBType:            "postgres",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "testdb",
		DBUser:            "testuser",
		DBPassword:        "testpass",
		DBConnectionLimit: 5,
	}

	// Wait for database to be ready
	time.Sleep(2 * time.Second)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:3000/media")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// Run tests
	t.Run("CreateAndRetrieveMission", func(t *testing.T) {
		testCreateAndRetrieveMission(t, db)
	})

	t.Run("GammeVersioning", func(t *testing.T) {
		testGammeVersioning(t, db, store)
	})

	t.Run("HandlerDuplicateCode", func(t *testing.T) {
		testHandlerDuplicateCode(t, db, store)
	})
}

// testCreateAndRetrieveMission tests creating and retrieving a mission tree
func testCreateAndRetrieveMission(t *testing.T, db *gorm.DB) {
	user := helpers.CreateTestUser(t, db, "int-creator", false, true, false, false)

	mission, err := services.CreateMission(db, services.MissionCreateInput{
		Code:       "INT-001",
		Intitule:   "Contrôle visuel ligne 1",
		ProduitRef: "REF-100",
	}, user.UserID)
	if err != nil {
		t.Fatalf("Failed to create mission: %v", err)
	}

	helpers.CreateTestGamme(t, db, mission.MissionID, "Gamme: Contrôle visuel ligne 1", "1.0",
		[]string{"Inspection visuelle", "Mesure dimensionnelle"}, user.UserID)

	// Retrieve mission with full tree
	fetched, err := services.GetMission(db, mission.MissionID)
	if err != nil {
		t.Fatalf("Failed to retrieve mission: %v", err)
	}

	if fetched.Code != "INT-001" {
		t.Errorf("Expected code INT-001, got %s", fetched.Code)
	}

	if len(fetched.Gammes) != 1 {
		t.Fatalf("Expected 1 gamme, got %d", len(fetched.Gammes))
	}

	if len(fetched.Gammes[0].Operations) != 2 {
		t.Errorf("Expected 2 operations, got %d", len(fetched.Gammes[0].Operations))
	}
}

// testGammeVersioning tests the clone-forward revision workflow
func testGammeVersioning(t *testing.T, db *gorm.DB, store storage.Store) {
	user := helpers.CreateTestUser(t, db, "int-versioner", false, true, false, false)
	mission := helpers.CreateTestMission(t, db, "INT-VER", "Versioning mission", user.UserID)
	gamme := helpers.CreateTestGamme(t, db, mission.MissionID, "Gamme: Versioning mission", "1.0",
		[]string{"Etape 1"}, user.UserID)

	// Submit a change: flip the safety pictogram on
	pictoS := types.FlexBool(true)
	update := services.MissionUpdateInput{
		Gammes: []services.GammeInput{
			{
				GammeID:  types.FlexUint64(gamme.GammeID),
				Intitule: "Gamme: Versioning mission",
				PictoS:   &pictoS,
			},
		},
	}

	result, err := services.RunMissionUpdate(db, store, mission.MissionID, update, nil, user.UserID)
	if err != nil {
		t.Fatalf("Failed to run mission update: %v", err)
	}

	if len(result.Gammes) != 1 {
		t.Fatalf("Expected 1 cloned gamme, got %d", len(result.Gammes))
	}

	if result.Gammes[0].Version != "1.1" {
		t.Errorf("Expected version 1.1, got %s", result.Gammes[0].Version)
	}

	// Prior version must be deactivated
	var prior models.Gamme
	if err := db.First(&prior, gamme.GammeID).Error; err != nil {
		t.Fatalf("Failed to reload prior gamme: %v", err)
	}
	if prior.Statut {
		t.Error("Expected prior gamme to be deactivated")
	}

	// Re-submitting the same change against the stale prior collides on the
	// revision index and must surface E_VERSION
	_, err = services.RunMissionUpdate(db, store, mission.MissionID, update, nil, user.UserID)
	if err == nil {
		t.Fatal("Expected version conflict error")
	}
	if !strings.Contains(err.Error(), "E_VERSION") {
		t.Errorf("Expected E_VERSION error, got: %v", err)
	}
}

// testDeleteOperations tests cascade delete of a gamme
func testDeleteOperations(t *testing.T, db *gorm.DB) {
	user := helpers.CreateTestUser(t, db, "int-deleter", true, false, false, false)
	mission := helpers.CreateTestMission(t, db, "INT-DEL", "Delete mission", user.UserID)
	gamme := helpers.CreateTestGamme(t, db, mission.MissionID, "Gamme: Delete mission", "1.0",
		[]string{"Op 1", "Op 2"}, user.UserID)

	if err := services.DeleteGamme(db, gamme.GammeID); err != nil {
		t.Fatalf("Failed to delete gamme: %v", err)
	}

	var count int64
	db.Model(&models.Operation{}).Where("gamme_id = ?", gamme.GammeID).Count(&count)
	if count != 0 {
		t.Errorf("Expected operations to cascade, %d remain", count)
	}
}

// testHandlerDuplicateCode tests the duplicate mission code 409 with a real database
func testHandlerDuplicateCode(t *testing.T, db *gorm.DB, store storage.Store) {
	user := helpers.CreateTestUser(t, db, "int-handler", false, true, false, false)
	helpers.CreateTestMission(t, db, "INT-DUP", "Handler mission", user.UserID)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userEmail", "int-handler@example.com")
		return c.Next()
	})
	handler := &handlers.MissionHandler{DB: db, Store: store}
	app.Get("/api/missions/check-code", handler.CheckCode)
	app.Post("/api/missions", handler.CreateMission)

	// Taken code reports unavailable
	req := httptest.NewRequest("GET", "/api/missions/check-code?code=INT-DUP", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	var check map[string]interface{}
	helpers.ParseJSON(t, resp, &check)
	if check["available"] != false {
		t.Errorf("Expected available false, got %v", check["available"])
	}

	// Creating with the taken code -> 409
	req = httptest.NewRequest("POST", "/api/missions",
		strings.NewReader(`{"code":"INT-DUP","intitule":"Second mission"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 409)
}

// TestHealthCheck tests the health check functionality
func TestHealthCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start MariaDB container
	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.Config{
		DBType:     "mysql",
		DBHost:     host,
		DBPort:     port.Port(),
		DBDatabase: "testdb",
		DBUser:     "testuser",
		DBPassword: "testpass",
		AuthzURL:   "http://localhost:9999", // Non-existent service
	}

	time.Sleep(5 * time.Second)

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run health check
	result := services.HealthCheck(cfg, db)

	// Database should be healthy
	if result.Database != "ok" {
		t.Errorf("Expected database to be ok, got: %s", result.Database)
	}

	// Authorizer should be unreachable
	if result.Authorizer != "unreachable" {
		t.Errorf("Expected authorizer to be unreachable, got: %s", result.Authorizer)
	}

	// Overall status should be unhealthy
	if result.Status != "unhealthy" {
		t.Errorf("Expected status to be unhealthy, got: %s", result.Status)
	}
}
