package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/api/grpc/escrow"
	"github.com/taliva/escrow/internal/services/escrow/query"
)

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	if h.ready != nil && !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	pageSize, ok := h.pageSizeParam(w, r)
	if !ok {
		return
	}
	page, err := h.query.ListCampaigns(r.Context(), query.ListRequest{
		Category:  params.Get("category"),
		Status:    params.Get("status"),
		SortKey:   params.Get("sort"),
		PageSize:  pageSize,
		PageToken: params.Get("page_token"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := escrow.ListCampaignsResponse{
		Campaigns:     make([]escrow.Campaign, 0, len(page.Campaigns)),
		NextPageToken: page.NextPageToken,
		TotalSize:     page.TotalSize,
	}
	for _, row := range page.Campaigns {
		out.Campaigns = append(out.Campaigns, escrow.CampaignFromSummary(row))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	detail, err := h.query.Campaign(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, escrow.CampaignFromDetail(detail))
}

func (h *Handler) listActivity(w http.ResponseWriter, r *http.Request) {
	pageSize, ok := h.pageSizeParam(w, r)
	if !ok {
		return
	}
	page, err := h.query.ListActivity(r.Context(), query.ActivityRequest{
		CampaignID: chi.URLParam(r, "campaignID"),
		Locale:     r.Header.Get("Accept-Language"),
		PageSize:   pageSize,
		PageToken:  r.URL.Query().Get("page_token"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, escrow.ActivityFromQuery(page))
}

func (h *Handler) getPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.query.GetPortfolio(r.Context(), chi.URLParam(r, "investorID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, escrow.PortfolioFromQuery(p))
}

func (h *Handler) pageSizeParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page_size")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.writeError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			"page_size must be a non-negative integer", map[string]string{"Field": "page_size"}))
		return 0, false
	}
	return n, true
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := apperrors.Localize(err, r.Header.Get("Accept-Language"))
	status := httpStatus(code)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("gateway request failed")
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: string(code), Message: message}})
}

func httpStatus(code apperrors.Code) int {
	switch code {
	case apperrors.CodeUnknown:
		return http.StatusInternalServerError
	case apperrors.CodeNotFound, apperrors.CodeInvestmentNotFound:
		return http.StatusNotFound
	case apperrors.CodeStorageFailure:
		return http.StatusServiceUnavailable
	case apperrors.CodeLedgerConflict:
		return http.StatusConflict
	}
	switch code.GRPCCode().String() {
	case "InvalidArgument":
		return http.StatusBadRequest
	case "FailedPrecondition":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
