package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	database "github.com/FACorreiaa/sports-card-catalog/app/db"
	appLogger "github.com/FACorreiaa/sports-card-catalog/app/logger"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/asset"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/auth"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/card"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/user"
	"github.com/FACorreiaa/sports-card-catalog/internal/router"
)

// E2ETestSuite drives the HTTP API against a real Postgres. Set
// CATALOG_E2E_DATABASE_URL to a disposable database to run it.
type E2ETestSuite struct {
	suite.Suite
	pool    *pgxpool.Pool
	server  *httptest.Server
	client  *http.Client
	baseURL string
	runID   int64
}

func (suite *E2ETestSuite) SetupSuite() {
	url := os.Getenv("CATALOG_E2E_DATABASE_URL")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	suite.Require().NoError(database.RunMigrations(url, logger))
	pool, err := database.Init(ctx, url, logger)
	suite.Require().NoError(err)
	suite.Require().True(database.WaitForDB(ctx, pool, logger))
	suite.pool = pool

	materializer := asset.NewMaterializer(
		asset.NewLocalStore(filepath.Join(suite.T().TempDir(), "images"), logger), "/static/images", logger)
	userService := user.NewUserService(user.NewPostgresUserRepo(pool, logger), auth.NewPasswordService(bcrypt.MinCost), logger)
	cardService := card.NewCardService(card.NewPostgresCardRepo(pool, logger), userService, materializer, logger)

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Mount("/", router.SetupRouter(&router.Config{
		CardHandler:    card.NewHandlerImpl(cardService, logger),
		UserHandler:    user.NewHandlerImpl(userService, logger),
		Assets:         materializer,
		DB:             pool,
		AssetPath:      "/static/images",
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         logger,
	}))

	suite.server = httptest.NewServer(mux)
	suite.baseURL = suite.server.URL
	suite.client = &http.Client{Timeout: 30 * time.Second}
	suite.runID = time.Now().UnixNano()
}

func (suite *E2ETestSuite) TearDownSuite() {
	if suite.server != nil {
		suite.server.Close()
	}
	if suite.pool != nil {
		suite.pool.Close()
	}
}

func (suite *E2ETestSuite) makeRequest(method, path string, body any) (*http.Response, []byte) {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, suite.baseURL+path, &buf)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	return resp, data
}

func (suite *E2ETestSuite) register(name string) map[string]any {
	email := fmt.Sprintf("%s+%d@example.com", name, suite.runID)
	resp, data := suite.makeRequest(http.MethodPost, "/users/register", map[string]string{
		"email": email, "username": name, "password": "s3cret-" + name,
	})
	suite.Require().Equal(http.StatusOK, resp.StatusCode, string(data))

	var u map[string]any
	suite.Require().NoError(json.Unmarshal(data, &u))
	return u
}

func cardBody(userID any, front string) map[string]any {
	return map[string]any{
		"user_id": userID, "playerName": "Ken Griffey Jr.", "year": 1989, "brand": "Upper Deck",
		"setName": "Base", "sport": "Baseball", "cardNumber": "1", "condition": "PSA 9",
		"features": json.RawMessage(`{"rookie":true,"grade":9.5}`), "front_image_url": front,
	}
}

func (suite *E2ETestSuite) TestRegisterLoginWorkflow() {
	u := suite.register("alice")

	resp, data := suite.makeRequest(http.MethodPost, "/users/login", map[string]string{
		"username": "alice", "password": "s3cret-alice",
	})
	suite.Equal(http.StatusOK, resp.StatusCode)
	var login map[string]any
	suite.Require().NoError(json.Unmarshal(data, &login))
	suite.Contains(login, "id")

	resp, _ = suite.makeRequest(http.MethodPost, "/users/login", map[string]string{
		"username": "alice", "password": "wrong",
	})
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, _ = suite.makeRequest(http.MethodPost, "/users/register", map[string]string{
		"email": u["email"].(string), "username": "alice2", "password": "pw",
	})
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (suite *E2ETestSuite) TestCardLifecycleWithEmbeddedImage() {
	u := suite.register("bob")
	png := []byte("\x89PNG-e2e")
	embedded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	resp, data := suite.makeRequest(http.MethodPost, "/cards", cardBody(u["id"], embedded))
	suite.Require().Equal(http.StatusOK, resp.StatusCode, string(data))
	var created map[string]any
	suite.Require().NoError(json.Unmarshal(data, &created))
	ref := created["front_image_url"].(string)
	suite.Regexp(`^/static/images/front_.+\.png$`, ref)
	suite.Contains(string(data), `"features":{"rookie":true,"grade":9.5}`)

	resp, data = suite.makeRequest(http.MethodGet, ref, nil)
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal(png, data)

	cardPath := fmt.Sprintf("/cards/%v", created["id"])
	resp, data = suite.makeRequest(http.MethodPut, cardPath, cardBody(u["id"], "https://cdn.example.com/x.png"))
	suite.Require().Equal(http.StatusOK, resp.StatusCode, string(data))
	suite.Contains(string(data), `"front_image_url":"https://cdn.example.com/x.png"`)

	resp, _ = suite.makeRequest(http.MethodDelete, cardPath, nil)
	suite.Equal(http.StatusOK, resp.StatusCode)
	resp, _ = suite.makeRequest(http.MethodGet, cardPath, nil)
	suite.Equal(http.StatusNotFound, resp.StatusCode)
}

func (suite *E2ETestSuite) TestCreateCardForMissingOwner() {
	resp, _ := suite.makeRequest(http.MethodPost, "/cards", cardBody(int64(1)<<60, "data:image/png;base64,AAAA"))
	suite.Equal(http.StatusNotFound, resp.StatusCode)
}

func (suite *E2ETestSuite) TestUploadImage() {
	u := suite.register("carol")
	_, data := suite.makeRequest(http.MethodPost, "/cards", cardBody(u["id"], ""))
	var created map[string]any
	suite.Require().NoError(json.Unmarshal(data, &created))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "back.webp")
	suite.Require().NoError(err)
	_, _ = part.Write([]byte("webp-bytes"))
	suite.Require().NoError(mw.Close())

	url := fmt.Sprintf("%s/cards/%v/upload-image?image_type=back", suite.baseURL, created["id"])
	resp, err := suite.client.Post(url, mw.FormDataContentType(), &buf)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Equal(http.StatusOK, resp.StatusCode)

	var out map[string]string
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	suite.Equal("back image uploaded successfully", out["message"])
	suite.Regexp(`^/static/images/back_.+\.webp$`, out["image_url"])
}

func (suite *E2ETestSuite) TestDeleteUserCascades() {
	u := suite.register("dave")
	const cards = 3
	var wg sync.WaitGroup
	ids := make(chan any, cards)
	for range cards {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, data := suite.makeRequest(http.MethodPost, "/cards", cardBody(u["id"], ""))
			var c map[string]any
			if json.Unmarshal(data, &c) == nil {
				ids <- c["id"]
			}
		}()
	}
	wg.Wait()
	close(ids)
	seen := map[any]bool{}
	for id := range ids {
		suite.False(seen[id], "duplicate card id %v", id)
		seen[id] = true
	}
	suite.Len(seen, cards)

	resp, data := suite.makeRequest(http.MethodDelete, fmt.Sprintf("/users/%v", u["id"]), nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	suite.JSONEq(fmt.Sprintf(`{"message":"User %v and %d associated cards deleted successfully"}`, u["id"], cards), string(data))

	resp, data = suite.makeRequest(http.MethodGet, fmt.Sprintf("/cards?user_id=%v", u["id"]), nil)
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.JSONEq(`[]`, string(data))

	resp, _ = suite.makeRequest(http.MethodGet, fmt.Sprintf("/users/%v", u["id"]), nil)
	suite.Equal(http.StatusNotFound, resp.StatusCode)
}

func (suite *E2ETestSuite) TestHealth() {
	resp, data := suite.makeRequest(http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.JSONEq(`{"status":"healthy"}`, string(data))
}

func TestE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	if os.Getenv("CATALOG_E2E_DATABASE_URL") == "" {
		t.Skip("CATALOG_E2E_DATABASE_URL not set")
	}
	suite.Run(t, new(E2ETestSuite))
}
