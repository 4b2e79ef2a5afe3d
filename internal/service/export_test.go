package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fractional/internal/export"
	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/secrets"
	"github.com/templui/fractional/internal/storage"
	"github.com/templui/fractional/internal/validation"
	"golang.org/x/oauth2"
)

const testSpreadsheetID = "1AbCdEfGhIjKlMnOp_qrs-tuv"

type memoryStore struct {
	mu      sync.Mutex
	objects map[string]string
}

func (m *memoryStore) Save(_ context.Context, key string, body io.Reader, _ string) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = string(raw)
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) PresignedURL(_ context.Context, key string) (string, error) {
	return "https://files.example.com/" + key + "?sig=1", nil
}

func newExportService(t *testing.T, env *testEnv, box *secrets.Box, oauthCfg *oauth2.Config, sheetsURL string, store storage.Storage) *ExportService {
	conn := env.conn
	s := NewExportService(ExportRepos{
		Sheets:        repository.NewSheetsRepository(conn),
		Goals:         repository.NewMonthlyGoalsRepository(conn),
		Actuals:       repository.NewDailyActualsRepository(conn),
		Opportunities: repository.NewOpportunityRepository(conn),
	}, box, oauthCfg, sheetsURL, store, env.usage)
	s.now = fixedClock(september15)
	return s
}

func TestExportService_CSV(t *testing.T) {
	env := newTestEnv(t)
	seedBehindOnRevenue(t, env)
	store := &memoryStore{objects: map[string]string{}}
	s := newExportService(t, env, nil, nil, "", store)

	files, err := s.ExportCSV(context.Background(), env.userID, "2026-09")
	require.NoError(t, err)
	require.Len(t, files, 4)

	assert.Equal(t, "exports/u1/2026-09/goals.csv", files[0].Key)
	assert.Contains(t, files[0].URL, "sig=1")
	assert.True(t, strings.HasPrefix(store.objects["exports/u1/2026-09/goals.csv"], "Metric,"))
	assert.Contains(t, store.objects, "exports/u1/2026-09/daily-progress.csv")
}

func TestExportService_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	s := newExportService(t, env, nil, nil, "", nil)
	ctx := context.Background()

	_, err := s.ExportCSV(ctx, env.userID, "2026-09")
	assert.ErrorIs(t, err, storage.ErrNotConfigured)

	_, err = s.ExportSheets(ctx, env.userID, "2026-09")
	assert.ErrorIs(t, err, ErrSheetsNotConfigured)

	_, err = s.ConnectSheets(ctx, env.userID, testSpreadsheetID, []byte(`{"access_token":"a"}`))
	assert.ErrorIs(t, err, ErrSheetsNotConfigured)
}

func TestExportService_Sheets(t *testing.T) {
	env := newTestEnv(t)
	seedBehindOnRevenue(t, env)
	ctx := context.Background()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	var (
		mu      sync.Mutex
		auth    []string
		written int
	)
	sheetsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet:
			w.Write([]byte(`{"sheets":[{"properties":{"title":"Goals"}}]}`))
		case strings.HasSuffix(r.URL.Path, "/values:batchUpdate"):
			var body struct {
				Data []json.RawMessage `json:"data"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			written = len(body.Data)
			mu.Unlock()
			w.Write([]byte(`{"totalUpdatedCells":120}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer sheetsSrv.Close()

	box, err := secrets.NewBox(secrets.DeriveKey("test"))
	require.NoError(t, err)
	oauthCfg := &oauth2.Config{ClientID: "id", ClientSecret: "secret", Endpoint: oauth2.Endpoint{TokenURL: tokenSrv.URL}}
	s := newExportService(t, env, box, oauthCfg, sheetsSrv.URL, nil)

	_, err = s.ConnectSheets(ctx, env.userID, "bad id!", []byte(`{"access_token":"a"}`))
	assert.True(t, validation.IsValidation(err))

	_, err = s.ConnectSheets(ctx, env.userID, testSpreadsheetID, []byte(`{}`))
	assert.True(t, validation.IsValidation(err))

	token, err := export.EncodeToken(&oauth2.Token{AccessToken: "stale", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	conn, err := s.ConnectSheets(ctx, env.userID, testSpreadsheetID, token)
	require.NoError(t, err)
	assert.NotContains(t, conn.EncryptedToken, "stale")

	result, err := s.ExportSheets(ctx, env.userID, "2026-09")
	require.NoError(t, err)
	assert.Equal(t, 120, result.UpdatedCells)
	assert.Equal(t, []string{export.TableGoals, export.TableDailyProgress, export.TablePipeline, export.TableRevenue}, result.Tables)
	assert.Equal(t, 4, written)

	for _, a := range auth {
		assert.Equal(t, "Bearer fresh", a)
	}

	// The refreshed token replaced the stored one and is still sealed to
	// the user.
	stored, err := s.SheetsConnection(ctx, env.userID)
	require.NoError(t, err)
	raw, err := box.Open(stored.EncryptedToken, []byte(env.userID))
	require.NoError(t, err)
	assert.True(t, bytes.Contains(raw, []byte("fresh")))

	_, err = box.Open(stored.EncryptedToken, []byte("someone-else"))
	assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)

	require.NoError(t, s.DisconnectSheets(ctx, env.userID))
	_, err = s.ExportSheets(ctx, env.userID, "2026-09")
	assert.ErrorIs(t, err, repository.ErrSheetsNotConnected)
}

func TestExportService_UsageRecorded(t *testing.T) {
	env := newTestEnv(t)
	store := &memoryStore{objects: map[string]string{}}
	s := newExportService(t, env, nil, nil, "", store)

	_, err := s.ExportCSV(context.Background(), env.userID, "2026-09")
	require.NoError(t, err)

	usage, err := env.usage.List(context.Background(), env.userID)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, model.FeatureExport, usage[0].Feature)
}
