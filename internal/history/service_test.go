package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestServiceRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(0), bcrypt.MinCost, nil)

	if err := svc.Register(ctx, "kasia", "tajne"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Register(ctx, "kasia", "inne"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if err := svc.Authenticate(ctx, "kasia", "tajne"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := svc.Authenticate(ctx, "kasia", "zle"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.Authenticate(ctx, "nikt", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestServiceTopCitiesDefaultLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(0), bcrypt.MinCost, nil)
	svc.Register(ctx, "u", "p")
	for _, c := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		svc.Append(ctx, "u", c)
	}
	top, err := svc.TopCities(ctx, "u", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != DefaultTopCities {
		t.Fatalf("expected %d cities, got %d", DefaultTopCities, len(top))
	}
}

func TestClientRoundTrip(t *testing.T) {
	var posted []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/history/jan%20kowalski" {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		switch r.Method {
		case http.MethodPost:
			var e Entry
			if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
				t.Errorf("decode: %v", err)
			}
			posted = append(posted, e.City)
			w.Write([]byte(`{"message":"ok"}`))
		case http.MethodGet:
			w.Write([]byte(`[{"city":"Kraków"},{"city":"Warszawa"}]`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", srv.Client())
	if err := c.Append(context.Background(), "jan kowalski", "Kraków"); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := c.List(context.Background(), "jan kowalski")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(got, []Entry{{"Kraków"}, {"Warszawa"}}) {
		t.Fatalf("unexpected list %v", got)
	}
	if !reflect.DeepEqual(posted, []string{"Kraków"}) {
		t.Fatalf("unexpected posted cities %v", posted)
	}
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	if err := c.Append(context.Background(), "x", "y"); err == nil {
		t.Fatal("expected append error on 404")
	}
	if _, err := c.List(context.Background(), "x"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
