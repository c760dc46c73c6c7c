package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/models"
)

func testState() *models.SessionState {
	return &models.SessionState{
		Site:       "https://www.newscientist.com",
		CapturedAt: time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC),
		Cookies: []models.SessionCookie{
			{Name: "sid", Value: "s3cr3t", Domain: ".newscientist.com", Path: "/", Expires: -1, HTTPOnly: true, Secure: true},
		},
		Origins: []models.OriginState{
			{Origin: "https://www.newscientist.com", LocalStorage: []models.StorageItem{{Name: "consent", Value: "yes"}}},
		},
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session_state.json")
	store := NewFileStore(path, arbor.NewLogger())

	handle, err := store.Save(ctx, testState())
	require.NoError(t, err)
	assert.Equal(t, path, handle)

	loaded, err := store.Load(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, testState().Cookies, loaded.Cookies)
	assert.Equal(t, testState().Origins, loaded.Origins)

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_StorageStateLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path, arbor.NewLogger())

	_, err := store.Save(ctx, testState())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cookies"`)
	assert.Contains(t, string(data), `"httpOnly": true`)
	assert.Contains(t, string(data), `"localStorage"`)
}

func TestFileStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path, arbor.NewLogger())

	_, err := store.Save(ctx, testState())
	require.NoError(t, err)

	next := testState()
	next.Cookies[0].Value = "rotated"
	_, err = store.Save(ctx, next)
	require.NoError(t, err)

	loaded, err := store.Load(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "rotated", loaded.Cookies[0].Value)
}

func TestFileStore_Missing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"), arbor.NewLogger())

	_, err := store.Load(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSessionMissing)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	store := NewFileStore(path, arbor.NewLogger())
	_, err := store.Load(context.Background(), path)
	assert.ErrorIs(t, err, models.ErrSessionMissing)
}

func TestFileStore_EmptyArtifact(t *testing.T) {
	for _, content := range []string{"null", "{}", `{"cookies": [], "origins": []}`} {
		t.Run(content, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0600))

			state, err := NewFileStore(path, arbor.NewLogger()).Load(context.Background(), path)
			assert.Nil(t, state)
			assert.ErrorIs(t, err, models.ErrSessionMissing)
		})
	}
}

type memoryStorage struct {
	sessions map[string]*models.SessionState
}

func (m *memoryStorage) StoreSession(ctx context.Context, state *models.SessionState) error {
	m.sessions[state.SiteDomain()] = state
	return nil
}

func (m *memoryStorage) GetSession(ctx context.Context, siteDomain string) (*models.SessionState, error) {
	state, ok := m.sessions[siteDomain]
	if !ok {
		return nil, models.NewFetchError(models.KindSessionMissing, "", nil)
	}
	return state, nil
}

func (m *memoryStorage) DeleteSession(ctx context.Context, siteDomain string) error {
	delete(m.sessions, siteDomain)
	return nil
}

func (m *memoryStorage) ListSites(ctx context.Context) ([]string, error) {
	var sites []string
	for site := range m.sessions {
		sites = append(sites, site)
	}
	return sites, nil
}

func TestKeyedStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	storage := &memoryStorage{sessions: map[string]*models.SessionState{}}
	store := NewKeyedStore(storage, "https://www.newscientist.com/login/", arbor.NewLogger())

	handle, err := store.Save(ctx, testState())
	require.NoError(t, err)
	assert.Equal(t, "www.newscientist.com", handle)

	loaded, err := store.Load(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", loaded.Cookies[0].Value)

	_, err = store.Load(ctx, "other.example")
	assert.ErrorIs(t, err, models.ErrSessionMissing)
}

func TestKeyedStore_FillsSite(t *testing.T) {
	ctx := context.Background()
	storage := &memoryStorage{sessions: map[string]*models.SessionState{}}
	store := NewKeyedStore(storage, "paywall.example", arbor.NewLogger())

	state := testState()
	state.Site = ""
	handle, err := store.Save(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "paywall.example", handle)
}

func TestNewStore_Backends(t *testing.T) {
	logger := arbor.NewLogger()
	config := common.NewDefaultConfig()

	store, err := NewStore(config, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)
	assert.Equal(t, config.Session.Path, Handle(config))

	config.Session.Backend = common.SessionBackendBadger
	_, err = NewStore(config, nil, logger)
	assert.Error(t, err)

	store, err = NewStore(config, &memoryStorage{sessions: map[string]*models.SessionState{}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &KeyedStore{}, store)
	assert.Empty(t, Handle(config))

	config.Session.Backend = "s3"
	_, err = NewStore(config, nil, logger)
	assert.Error(t, err)
}
