package users

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkworks/inkworks/internal/auth"
	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]User
	hashes map[int64]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[int64]User{}, hashes: map[int64]string{}}
}

func (m *memoryRepo) ListUsers(context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, u := range m.rows {
		if !u.IsSuperuser {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok || u.IsSuperuser {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memoryRepo) Create(_ context.Context, in CreateInput, hash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Username == in.Username {
			return 0, ErrUsernameTaken
		}
	}
	m.nextID++
	m.rows[m.nextID] = User{ID: m.nextID, Username: in.Username, Email: in.Email, Name: in.Name,
		IsActive: in.IsActive == nil || *in.IsActive, IsSuperuser: in.Superuser, Groups: in.Groups}
	m.hashes[m.nextID] = hash
	return m.nextID, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, in UpdateInput, hash *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok || u.IsSuperuser {
		return ErrUserNotFound
	}
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.Groups != nil {
		u.Groups = *in.Groups
	}
	if hash != nil {
		m.hashes[id] = *hash
	}
	m.rows[id] = u
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok || u.IsSuperuser {
		return ErrUserNotFound
	}
	delete(m.rows, id)
	return nil
}

func TestCreateHashesPasswordAndNormalizesGroups(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	u, err := svc.Create(context.Background(), CreateInput{Username: " ana ", Password: "segredo123", Groups: []string{"financeiro", "Financeiro", "Producao"}})
	require.NoError(t, err)
	require.Equal(t, "ana", u.Username)
	require.True(t, u.IsActive)
	require.Equal(t, []string{shared.GroupFinance, shared.GroupProduction}, u.Groups)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[u.ID]), []byte("segredo123")))

	_, err = svc.Create(context.Background(), CreateInput{Username: "bia", Password: "segredo123", Groups: []string{"Vendas"}})
	require.ErrorIs(t, err, ErrUnknownGroup)

	_, err = svc.Create(context.Background(), CreateInput{Username: "bia", Password: "123"})
	require.ErrorIs(t, err, auth.ErrWeakPassword)

	_, err = svc.Create(context.Background(), CreateInput{Username: "ana", Password: "segredo123"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestSuperusersAreHidden(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	root, err := svc.Create(context.Background(), CreateInput{Username: "root", Password: "segredo123", Superuser: true})
	require.NoError(t, err)
	require.True(t, root.IsSuperuser)

	list, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)
	require.NotNil(t, list)

	_, err = svc.Update(context.Background(), root.ID, UpdateInput{IsActive: new(bool)})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateResetsPasswordAndGroups(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	u, err := svc.Create(context.Background(), CreateInput{Username: "caio", Password: "segredo123", Groups: []string{"Atendimento"}})
	require.NoError(t, err)
	old := repo.hashes[u.ID]

	groups := []string{"admin"}
	updated, err := svc.Update(context.Background(), u.ID, UpdateInput{Groups: &groups, Password: "novasenha1"})
	require.NoError(t, err)
	require.Equal(t, []string{shared.GroupAdmin}, updated.Groups)
	require.NotEqual(t, old, repo.hashes[u.ID])

	same, err := svc.Update(context.Background(), u.ID, UpdateInput{})
	require.NoError(t, err)
	require.Equal(t, updated.Groups, same.Groups)
	require.NotEmpty(t, repo.hashes[u.ID])
}

type groupStore map[int64][]string

func (g groupStore) Membership(_ context.Context, userID int64) (rbac.Membership, error) {
	groups, ok := g[userID]
	if !ok {
		return rbac.Membership{}, rbac.ErrNotFound
	}
	return rbac.Membership{UserID: userID, Active: true, Groups: groups}, nil
}

func (g groupStore) ListGroups(context.Context) ([]rbac.Group, error) { return nil, nil }

func call(t *testing.T, h http.Handler, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	sess := &shared.Session{ID: "test"}
	sess.SetUser(strconv.FormatInt(userID, 10))
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerAdminOnly(t *testing.T) {
	repo := newMemoryRepo()
	store := groupStore{100: {shared.GroupAdmin}, 200: {shared.GroupFinance}}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo), rbac.Middleware{Service: rbac.NewServiceWithStore(store)})
	router := chi.NewRouter()
	h.MountRoutes(router)

	require.Equal(t, http.StatusForbidden, call(t, router, http.MethodGet, "/admin/users", 200, nil).Code)

	rec := call(t, router, http.MethodPost, "/admin/users", 100, map[string]any{"username": "davi", "password": "segredo123", "groups": []string{"Producao"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "password")
	var u User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))

	rec = call(t, router, http.MethodGet, "/admin/users", 100, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"davi"`)

	path := "/admin/users/" + strconv.FormatInt(u.ID, 10)
	require.Equal(t, http.StatusNoContent, call(t, router, http.MethodDelete, path, 100, nil).Code)
	require.Equal(t, http.StatusNotFound, call(t, router, http.MethodDelete, path, 100, nil).Code)
	require.Equal(t, http.StatusConflict, call(t, router, http.MethodDelete, "/admin/users/100", 100, nil).Code)
}
