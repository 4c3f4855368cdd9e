package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lunchvote/api/internal/enum"
	"github.com/lunchvote/api/internal/handler"
	"github.com/lunchvote/api/internal/state"
)

func ordersRouter(repo *state.Repository, phase string) chi.Router {
	h := handler.NewOrdersHandler(repo, phaseAt(phase))
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestSetOrder_RecomputesSubtotal(t *testing.T) {
	repo := newRepo(t)
	r := ordersRouter(repo, enum.PhaseOrder)

	rr := doJSON(t, r, "PUT", "/orders/2024-05-10/Amy", map[string]interface{}{
		"restaurantId": "r1",
		"items": []map[string]interface{}{
			{"id": "l1", "name": "Beef noodles", "qty": 2, "price": 120.5},
		},
		"subtotal": 5, // client-side value, ignored
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var stored state.Order
	if err := json.NewDecoder(rr.Body).Decode(&stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.Subtotal != 241 {
		t.Errorf("subtotal: got %v, want 241", stored.Subtotal)
	}
	if got, ok := repo.Order("2024-05-10", "Amy"); !ok || got.Subtotal != 241 {
		t.Errorf("repo order: got %+v ok=%v", got, ok)
	}
}

func TestSetOrder_OutsideOrderPhase(t *testing.T) {
	repo := newRepo(t)
	r := ordersRouter(repo, enum.PhaseResult)

	rr := doJSON(t, r, "PUT", "/orders/2024-05-10/Amy", map[string]interface{}{
		"restaurantId": "r1",
		"items":        []map[string]interface{}{{"id": "l1", "name": "Beef noodles", "qty": 1, "price": 120}},
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestSetOrder_NoRestaurant(t *testing.T) {
	repo := newRepo(t)
	r := ordersRouter(repo, enum.PhaseOrder)

	rr := doJSON(t, r, "PUT", "/orders/2024-05-10/Amy", map[string]interface{}{
		"items": []map[string]interface{}{{"id": "l1", "name": "Beef noodles", "qty": 1, "price": 120}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSetPayment(t *testing.T) {
	repo := newRepo(t)
	if _, err := repo.SetOrder("2024-05-10", "Amy", state.Order{
		RestaurantID: "r1",
		Items:        []state.OrderLine{{ID: "l1", Name: "Beef noodles", Qty: 1, Price: 120}},
	}); err != nil {
		t.Fatalf("order: %v", err)
	}
	r := ordersRouter(repo, enum.PhaseResult)

	rr := doJSON(t, r, "PATCH", "/orders/2024-05-10/Amy/payment", map[string]bool{"paid": true})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}
	if got, _ := repo.Order("2024-05-10", "Amy"); !got.Paid {
		t.Error("paid flag not set")
	}
}

func TestSetPayment_NoOrder(t *testing.T) {
	repo := newRepo(t)
	r := ordersRouter(repo, enum.PhaseResult)

	rr := doJSON(t, r, "PATCH", "/orders/2024-05-10/Nobody/payment", map[string]bool{"paid": true})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestOrderTotals(t *testing.T) {
	repo := newRepo(t)
	repo.AddNames([]string{"Amy", "Ben"})
	if _, err := repo.SetOrder("2024-05-10", "Amy", state.Order{
		RestaurantID: "r1",
		Items:        []state.OrderLine{{ID: "l1", Name: "Beef noodles", Qty: 1, Price: 120}},
	}); err != nil {
		t.Fatalf("order: %v", err)
	}
	r := ordersRouter(repo, enum.PhaseResult)

	rr := getJSON(t, r, "/orders/totals")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var totals state.Totals
	if err := json.NewDecoder(rr.Body).Decode(&totals); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if totals.ClassTotal != 120 {
		t.Errorf("classTotal: got %v, want 120", totals.ClassTotal)
	}
	if len(totals.Unpaid) != 1 || totals.Unpaid[0] != "Amy" {
		t.Errorf("unpaid: got %v", totals.Unpaid)
	}
	if len(totals.Missing) != 1 || totals.Missing[0] != "Ben" {
		t.Errorf("missing: got %v", totals.Missing)
	}
}
