package procedure

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/hitoshi/dishlist/internal/dish"
	"github.com/hitoshi/dishlist/internal/model"
)

// --- モック定義 ---

type mockDishService struct {
	listFn   func(ctx context.Context, session *model.SessionInfo, cursor string, limit int) (*model.DishPage, error)
	createFn func(ctx context.Context, session *model.SessionInfo, title string) (*model.Dish, error)
	removeFn func(ctx context.Context, session *model.SessionInfo, id string) (*model.Dish, error)
	calls    int
}

func (m *mockDishService) List(ctx context.Context, session *model.SessionInfo, cursor string, limit int) (*model.DishPage, error) {
	m.calls++
	if m.listFn != nil {
		return m.listFn(ctx, session, cursor, limit)
	}
	return &model.DishPage{Dishes: []model.Dish{}}, nil
}

func (m *mockDishService) Create(ctx context.Context, session *model.SessionInfo, title string) (*model.Dish, error) {
	m.calls++
	if m.createFn != nil {
		return m.createFn(ctx, session, title)
	}
	return &model.Dish{Title: title}, nil
}

func (m *mockDishService) Remove(ctx context.Context, session *model.SessionInfo, id string) (*model.Dish, error) {
	m.calls++
	if m.removeFn != nil {
		return m.removeFn(ctx, session, id)
	}
	return &model.Dish{ID: id}, nil
}

// memDishRepo はrepository.DishRepositoryのインメモリ実装。
type memDishRepo struct {
	mu     sync.Mutex
	dishes []model.Dish
}

func (r *memDishRepo) ListByUser(ctx context.Context, userID, cursor string, limit int) ([]model.Dish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Dish
	for _, d := range r.dishes {
		if d.UserID == userID && (cursor == "" || d.ID < cursor) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []model.Dish{}
	}
	return out, nil
}

func (r *memDishRepo) Create(ctx context.Context, d *model.Dish) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dishes = append(r.dishes, *d)
	return nil
}

func (r *memDishRepo) delete(match func(model.Dish) bool) *model.Dish {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.dishes {
		if match(d) {
			r.dishes = append(r.dishes[:i], r.dishes[i+1:]...)
			return &d
		}
	}
	return nil
}

func (r *memDishRepo) DeleteByID(ctx context.Context, id string) (*model.Dish, error) {
	return r.delete(func(d model.Dish) bool { return d.ID == id }), nil
}

func (r *memDishRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) (*model.Dish, error) {
	return r.delete(func(d model.Dish) bool { return d.ID == id && d.UserID == userID }), nil
}

func (r *memDishRepo) DeleteByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.dishes[:0]
	for _, d := range r.dishes {
		if d.UserID != userID {
			kept = append(kept, d)
		}
	}
	r.dishes = kept
	return nil
}

func testSession(userID string) *model.SessionInfo {
	return &model.SessionInfo{SessionID: "sess-" + userID, UserID: userID, Email: userID + "@example.com"}
}

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	return apiErr.Code
}

// --- テスト ---

func TestNewAppRouter_RegistersDishProcedures(t *testing.T) {
	r := NewAppRouter(&mockDishService{})

	want := map[string]Kind{
		"dish:create": KindMutation,
		"dish:list":   KindQuery,
		"dish:remove": KindMutation,
	}
	if got := r.Names(); len(got) != len(want) {
		t.Fatalf("Names() = %v", got)
	}
	for name, kind := range want {
		p, ok := r.Lookup(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		if p.Kind != kind {
			t.Errorf("%s kind = %v, want %v", name, p.Kind, kind)
		}
	}
}

func TestDishList_PassesCursorAndLimit(t *testing.T) {
	var gotCursor string
	var gotLimit int
	svc := &mockDishService{
		listFn: func(ctx context.Context, session *model.SessionInfo, cursor string, limit int) (*model.DishPage, error) {
			gotCursor, gotLimit = cursor, limit
			return &model.DishPage{Dishes: []model.Dish{}}, nil
		},
	}
	r := NewAppRouter(svc)

	if _, err := r.Call(context.Background(), testSession("u1"), "dish:list", json.RawMessage(`{"cursor":"abc","limit":7}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCursor != "abc" || gotLimit != 7 {
		t.Errorf("cursor = %q, limit = %d", gotCursor, gotLimit)
	}

	// 入力なしは既定値（limit 0 はサービス側で既定のページサイズになる）
	if _, err := r.Call(context.Background(), testSession("u1"), "dish:list", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCursor != "" || gotLimit != 0 {
		t.Errorf("cursor = %q, limit = %d", gotCursor, gotLimit)
	}
}

func TestDishProcedures_InvalidInputNeverReachesStore(t *testing.T) {
	tests := []struct {
		name  string
		proc  string
		input string
	}{
		{"empty cursor", "dish:list", `{"cursor":""}`},
		{"zero limit", "dish:list", `{"limit":0}`},
		{"limit too large", "dish:list", `{"limit":101}`},
		{"short title", "dish:create", `{"title":"a"}`},
		{"missing title", "dish:create", `{}`},
		{"missing id", "dish:remove", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockDishService{}
			// 未認証でも検証エラーが先に返る
			_, err := NewAppRouter(svc).Call(context.Background(), nil, tt.proc, json.RawMessage(tt.input))
			if code := apiErrorCode(t, err); code != model.ErrCodeValidation {
				t.Errorf("code = %q, want %q", code, model.ErrCodeValidation)
			}
			if svc.calls != 0 {
				t.Errorf("service called %d times", svc.calls)
			}
		})
	}
}

func TestDishProcedures_WithService(t *testing.T) {
	repo := &memDishRepo{}
	r := NewAppRouter(dish.NewService(repo, dish.DefaultServiceConfig()))
	ctx := context.Background()
	alice := testSession("alice")

	t.Run("create without session is unauthorized", func(t *testing.T) {
		_, err := r.Call(ctx, nil, "dish:create", json.RawMessage(`{"title":"Curry"}`))
		if code := apiErrorCode(t, err); code != model.ErrCodeUnauthorized {
			t.Errorf("code = %q", code)
		}
		if len(repo.dishes) != 0 {
			t.Error("nothing should be persisted")
		}
	})

	var created []*model.Dish
	for _, title := range []string{"Soup", "Salad", "Steak"} {
		got, err := r.Call(ctx, alice, "dish:create", json.RawMessage(`{"title":"`+title+`"}`))
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		d := got.(*model.Dish)
		if d.Title != title || d.UserID != "alice" || d.ID == "" {
			t.Fatalf("created = %+v", d)
		}
		created = append(created, d)
	}

	t.Run("paginates newest first", func(t *testing.T) {
		got, err := r.Call(ctx, alice, "dish:list", json.RawMessage(`{"limit":2}`))
		if err != nil {
			t.Fatal(err)
		}
		page := got.(*model.DishPage)
		if len(page.Dishes) != 2 || page.Dishes[0].Title != "Steak" || page.Dishes[1].Title != "Salad" {
			t.Fatalf("page 1 = %+v", page.Dishes)
		}
		if page.NextCursor == nil || *page.NextCursor != created[1].ID {
			t.Fatalf("nextCursor = %v, want Salad id", page.NextCursor)
		}

		got, err = r.Call(ctx, alice, "dish:list", json.RawMessage(`{"limit":2,"cursor":"`+*page.NextCursor+`"}`))
		if err != nil {
			t.Fatal(err)
		}
		page = got.(*model.DishPage)
		if len(page.Dishes) != 1 || page.Dishes[0].Title != "Soup" || page.NextCursor != nil {
			t.Fatalf("page 2 = %+v next=%v", page.Dishes, page.NextCursor)
		}
	})

	t.Run("guest list is empty", func(t *testing.T) {
		got, err := r.Call(ctx, nil, "dish:list", nil)
		if err != nil {
			t.Fatal(err)
		}
		if page := got.(*model.DishPage); len(page.Dishes) != 0 || page.NextCursor != nil {
			t.Errorf("guest page = %+v", page)
		}
	})

	t.Run("remove twice", func(t *testing.T) {
		input := json.RawMessage(`{"id":"` + created[0].ID + `"}`)
		got, err := r.Call(ctx, alice, "dish:remove", input)
		if err != nil {
			t.Fatal(err)
		}
		if d := got.(*model.Dish); d.Title != "Soup" {
			t.Errorf("removed = %+v", d)
		}
		_, err = r.Call(ctx, alice, "dish:remove", input)
		if code := apiErrorCode(t, err); code != model.ErrCodeDishNotFound {
			t.Errorf("code = %q, want %q", code, model.ErrCodeDishNotFound)
		}
		if len(repo.dishes) != 2 {
			t.Errorf("remaining = %d, want 2", len(repo.dishes))
		}
	})

	t.Run("empty id is not found", func(t *testing.T) {
		_, err := r.Call(ctx, alice, "dish:remove", json.RawMessage(`{"id":""}`))
		if code := apiErrorCode(t, err); code != model.ErrCodeDishNotFound {
			t.Errorf("code = %q, want %q", code, model.ErrCodeDishNotFound)
		}
	})

	t.Run("long title", func(t *testing.T) {
		title := strings.Repeat("a", 1000)
		got, err := r.Call(ctx, alice, "dish:create", json.RawMessage(`{"title":"`+title+`"}`))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if d := got.(*model.Dish); d.Title != title {
			t.Errorf("title length = %d, want 1000", len(d.Title))
		}
		if _, err := r.Call(ctx, alice, "dish:remove", json.RawMessage(`{"id":"`+got.(*model.Dish).ID+`"}`)); err != nil {
			t.Fatalf("cleanup remove: %v", err)
		}
	})

	t.Run("other users cannot remove", func(t *testing.T) {
		_, err := r.Call(ctx, testSession("bob"), "dish:remove", json.RawMessage(`{"id":"`+created[2].ID+`"}`))
		if code := apiErrorCode(t, err); code != model.ErrCodeDishNotFound {
			t.Errorf("code = %q", code)
		}
	})
}
