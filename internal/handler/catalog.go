package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/service"
)

// RoomTypeHandler serves /api/roomtype
type RoomTypeHandler struct {
	roomTypes *service.RoomTypeService
	logger    *slog.Logger
}

// NewRoomTypeHandler creates a new room type handler
func NewRoomTypeHandler(roomTypes *service.RoomTypeService, logger *slog.Logger) *RoomTypeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomTypeHandler{roomTypes: roomTypes, logger: logger}
}

type roomTypePatch struct {
	Name        *string  `json:"type_name"`
	BasePrice   *float64 `json:"base_price"`
	Description *string  `json:"description"`
}

func (h *RoomTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.roomTypes.List(r.Context(), principal(r))
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", envelope{"data": list})
}

func (h *RoomTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	rt, err := h.roomTypes.Get(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", envelope{"data": rt})
}

func (h *RoomTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rt domain.RoomType
	if err := decodeJSON(r, &rt); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	if err := h.roomTypes.Create(r.Context(), principal(r), &rt); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusCreated, "room type created", envelope{"data": rt})
}

func (h *RoomTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch roomTypePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	rt, err := h.roomTypes.Update(r.Context(), principal(r), r.PathValue("id"), domain.RoomTypeUpdate{
		Name:        patch.Name,
		BasePrice:   patch.BasePrice,
		Description: patch.Description,
	})
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "room type updated", envelope{"data": rt})
}

func (h *RoomTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.roomTypes.Delete(r.Context(), principal(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "room type deleted", nil)
}

// ApartmentHandler serves /api/apartments
type ApartmentHandler struct {
	apartments *service.ApartmentService
	logger     *slog.Logger
}

// NewApartmentHandler creates a new apartment handler
func NewApartmentHandler(apartments *service.ApartmentService, logger *slog.Logger) *ApartmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApartmentHandler{apartments: apartments, logger: logger}
}

// apartmentPatch is the whitelist of editable apartment fields. Unknown keys
// such as manager_id or status are ignored.
type apartmentPatch struct {
	TypeID    *string  `json:"type_id"`
	Number    *string  `json:"apartment_number"`
	Area      *float64 `json:"area"`
	Price     *float64 `json:"price"`
	Furniture *string  `json:"furniture"`
}

type statusPatch struct {
	Status string `json:"status"`
}

func (h *ApartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.apartments.List(r.Context(), principal(r))
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", envelope{"data": list})
}

func (h *ApartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.apartments.Get(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", envelope{"data": a})
}

func (h *ApartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var a domain.Apartment
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	if err := h.apartments.Create(r.Context(), principal(r), &a); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusCreated, "apartment created", envelope{"data": a})
}

func (h *ApartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch apartmentPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	a, err := h.apartments.Update(r.Context(), principal(r), r.PathValue("id"), domain.ApartmentUpdate{
		TypeID:    patch.TypeID,
		Number:    patch.Number,
		Area:      patch.Area,
		Price:     patch.Price,
		Furniture: patch.Furniture,
	})
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "apartment updated", envelope{"data": a})
}

// SetStatus handles PATCH /api/apartments/{id}/status
func (h *ApartmentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var patch statusPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	a, err := h.apartments.SetStatus(r.Context(), principal(r), r.PathValue("id"), patch.Status)
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "apartment status updated", envelope{"data": a})
}

func (h *ApartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.apartments.Delete(r.Context(), principal(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "apartment deleted", nil)
}
