package http_handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/contacts-service/internal/application/contacts"
	"github.com/baechuer/contacts-service/internal/domain"
	"github.com/baechuer/contacts-service/internal/transport/http/dto"
	"github.com/baechuer/contacts-service/internal/transport/http/middleware"
	"github.com/baechuer/contacts-service/internal/transport/http/response"
	"github.com/baechuer/contacts-service/internal/transport/http/validate"
)

type ContactsHandler struct {
	svc *contacts.Service
	v   *validate.Validator
}

func NewContactsHandler(svc *contacts.Service, v *validate.Validator) *ContactsHandler {
	return &ContactsHandler{svc: svc, v: v}
}

func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
	}
	return uid, ok
}

func (h *ContactsHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := owner(w, r)
	if !ok {
		return
	}

	f, err := parseListFilter(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.List(r.Context(), uid, f)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	items := make([]dto.ContactView, 0, len(res.Items))
	for _, c := range res.Items {
		items = append(items, dto.NewContactView(c))
	}
	response.OK(w, dto.ContactListResponse{Items: items, Total: res.Total, Page: res.Page, Limit: res.Limit})
}

func parseListFilter(r *http.Request) (contacts.ListFilter, error) {
	q := r.URL.Query()
	var f contacts.ListFilter

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > contacts.MaxPage {
			return f, domain.ErrInvalidField("page", "must be between 1 and "+strconv.Itoa(contacts.MaxPage))
		}
		f.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, domain.ErrInvalidField("limit", "must be a positive integer")
		}
		f.Limit = n
	}
	if v := q.Get("favorite"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, domain.ErrInvalidField("favorite", "must be true or false")
		}
		f.Favorite = &b
	}
	return f, nil
}

func (h *ContactsHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := owner(w, r)
	if !ok {
		return
	}

	c, err := h.svc.Get(r.Context(), uid, chi.URLParam(r, "contactId"))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewContactView(c))
}

func (h *ContactsHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := owner(w, r)
	if !ok {
		return
	}

	var req dto.CreateContactRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := h.v.Struct(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	c, err := h.svc.Create(r.Context(), uid, contacts.CreateCmd{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Favorite: req.Favorite,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.NewContactView(c))
}

func (h *ContactsHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := owner(w, r)
	if !ok {
		return
	}

	var req dto.UpdateContactRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := h.v.Struct(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	c, err := h.svc.Update(r.Context(), uid, chi.URLParam(r, "contactId"), req.Patch())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewContactView(c))
}

func (h *ContactsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := owner(w, r)
	if !ok {
		return
	}

	c, err := h.svc.Delete(r.Context(), uid, chi.URLParam(r, "contactId"))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewContactView(c))
}

func (h *ContactsHandler) UpdateFavorite(w http.ResponseWriter, r *http.Request) {
	uid, ok := owner(w, r)
	if !ok {
		return
	}

	var req dto.FavoriteRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := h.v.Struct(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	c, err := h.svc.UpdateFavorite(r.Context(), uid, chi.URLParam(r, "contactId"), *req.Favorite)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewContactView(c))
}
