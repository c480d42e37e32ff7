package booking

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/crud"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/tour"
	"github.com/redmonkez12/natours-api/internal/user"
)

// Store is the booking persistence used by the handlers.
type Store interface {
	crud.Store[Booking]
	ListByUser(ctx context.Context, userID string) ([]Booking, error)
}

// Tours resolves the tours named by bookings.
type Tours interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]tour.Tour, error)
}

type Handler struct {
	*crud.Handler[Booking]
	store Store
	tours Tours
	errs  *httputil.ErrorWriter
}

func NewHandler(store Store, tours Tours, errs *httputil.ErrorWriter) *Handler {
	h := &Handler{store: store, tours: tours, errs: errs}
	h.Handler = crud.NewHandler(crud.Resource[Booking]{
		Name:      "booking",
		Store:     store,
		Query:     QueryOptions,
		Updatable: Updatable,
		Prepare:   h.prepare,
	}, errs)
	return h
}

// prepare checks the booked tour exists and defaults the price to the tour's.
func (h *Handler) prepare(r *http.Request, b *Booking) error {
	oid, err := primitive.ObjectIDFromHex(b.TourID)
	if err != nil {
		return apperror.Validation("Booking must belong to a Tour!")
	}
	tours, err := h.tours.FindByIDs(r.Context(), []primitive.ObjectID{oid})
	if err != nil {
		return err
	}
	if len(tours) == 0 {
		return apperror.NotFound("No tour found with that ID")
	}
	if b.Price == 0 {
		b.Price = tours[0].Price
	}
	return nil
}

// MyTours lists the tours the signed-in user has booked
// @Summary      My booked tours
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.Envelope
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /api/v1/bookings/my-tours [get]
func (h *Handler) MyTours(w http.ResponseWriter, r *http.Request) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		h.errs.Write(w, r, apperror.Authentication("You are not logged in! Please log in to get access."))
		return
	}

	bookings, err := h.store.ListByUser(r.Context(), current.ID.Hex())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(bookings))
	seen := make(map[primitive.ObjectID]bool, len(bookings))
	for _, b := range bookings {
		oid, err := primitive.ObjectIDFromHex(b.TourID)
		if err != nil || seen[oid] {
			continue
		}
		seen[oid] = true
		ids = append(ids, oid)
	}

	tours, err := h.tours.FindByIDs(r.Context(), ids)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httputil.RespondList(w, tours)
}
