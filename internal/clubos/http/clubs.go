package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Fahimkhan9/clubos/internal/clubos/service"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
	"github.com/Fahimkhan9/clubos/pkg/httpx"
	"github.com/Fahimkhan9/clubos/pkg/slogx"
)

// ClubsHandler serves club CRUD. Role checks happen in the RequireClubRole
// middleware, never here.
type ClubsHandler struct {
	ClubService *service.ClubService
}

// HandleCreate godoc
//
//	@Summary		Create a club
//	@Description	The creator joins as the club's first admin with the given designation.
//	@Tags			Clubs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateClubRequest	true	"Club details"
//	@Success		201		{object}	ClubResponse
//	@Failure		409		{object}	ErrorResponse	"name taken at this university"
//	@Security		BearerAuth
//	@Router			/v1/clubs [post]
func (h *ClubsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateClubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.University) == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "name and university are required",
		})
		return
	}

	club, err := h.ClubService.Create(ctx, httpx.UserIDFromCtx(ctx), req.Name, req.University, req.SessionYear, req.Designation)
	if err != nil {
		if errors.Is(err, service.ErrClubExists) {
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:            "club_exists",
				ErrorDescription: "A club with this name already exists in this university",
			})
			return
		}
		slogx.FromContext(ctx).Error("club creation failed", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toClubResponse(club))
}

// HandleListMine godoc
//
//	@Summary	List clubs I belong to
//	@Tags		Clubs
//	@Produce	json
//	@Success	200	{array}	MyClubResponse
//	@Security	BearerAuth
//	@Router		/v1/clubs/my [get]
func (h *ClubsHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	memberships, err := h.ClubService.ListMine(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list clubs", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	out := make([]MyClubResponse, 0, len(memberships))
	for _, cm := range memberships {
		out = append(out, MyClubResponse{
			ClubResponse: toClubResponse(cm.Club),
			Role:         cm.Role.String(),
			Designation:  cm.Designation,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet godoc
//
//	@Summary	Get a club
//	@Tags		Clubs
//	@Produce	json
//	@Param		clubID	path		string	true	"Club id"
//	@Success	200		{object}	ClubResponse
//	@Failure	404		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/clubs/{clubID} [get]
func (h *ClubsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	club, err := h.ClubService.Get(ctx, r.PathValue("clubID"))
	if err != nil {
		if errors.Is(err, service.ErrClubNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Club not found",
			})
			return
		}
		slogx.FromContext(ctx).Error("failed to load club", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toClubResponse(club))
}

// HandleUpdate godoc
//
//	@Summary		Update a club
//	@Description	Admin or moderator only. Accepts JSON field updates, or multipart/form-data with an optional "logo" file.
//	@Tags			Clubs
//	@Accept			json
//	@Produce		json
//	@Param			clubID	path		string				true	"Club id"
//	@Param			request	body		UpdateClubRequest	true	"Club fields"
//	@Success		200		{object}	ClubResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/clubs/{clubID} [patch]
func (h *ClubsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clubID := r.PathValue("clubID")

	var update store.ClubUpdate

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "Invalid multipart body",
			})
			return
		}
		update = store.ClubUpdate{
			Name:        formValuePtr(r, "name"),
			University:  formValuePtr(r, "university"),
			SessionYear: formValuePtr(r, "sessionYear"),
			About:       formValuePtr(r, "about"),
		}

		if file, header, err := r.FormFile("logo"); err == nil {
			defer file.Close()
			if _, err := h.ClubService.UpdateLogo(ctx, clubID, file, header.Filename); err != nil {
				slogx.FromContext(ctx).Error("logo upload failed", slog.Any("error", err))
				httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
					Error:            "server_error",
					ErrorDescription: "Failed to upload logo",
				})
				return
			}
		}
	} else {
		var req UpdateClubRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "Invalid JSON body",
			})
			return
		}
		update = store.ClubUpdate{
			Name:        req.Name,
			University:  req.University,
			SessionYear: req.SessionYear,
			About:       req.About,
		}
	}

	club, err := h.ClubService.Update(ctx, clubID, update)
	if err != nil {
		if errors.Is(err, service.ErrClubNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Club not found",
			})
			return
		}
		slogx.FromContext(ctx).Error("club update failed", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toClubResponse(club))
}

// HandleDelete godoc
//
//	@Summary		Delete a club
//	@Description	Admin only. Memberships and pending invites go with the club.
//	@Tags			Clubs
//	@Produce		json
//	@Param			clubID	path		string	true	"Club id"
//	@Success		200		{object}	MessageResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/clubs/{clubID} [delete]
func (h *ClubsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.ClubService.Delete(ctx, r.PathValue("clubID")); err != nil {
		if errors.Is(err, service.ErrClubNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Club not found",
			})
			return
		}
		slogx.FromContext(ctx).Error("club deletion failed", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Club deleted"})
}
