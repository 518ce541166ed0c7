package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"supperclub/internal/export"
	"supperclub/internal/models"
	"supperclub/internal/service"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func actorOf(r *http.Request) models.Actor {
	actor, _ := ActorFrom(r.Context())
	return actor
}

type createBookingRequest struct {
	ExperienceID string `json:"experienceId"`
	Date         string `json:"date"`
	Guests       int    `json:"guests"`
	IsGift       bool   `json:"isGift"`
	CouponCode   string `json:"couponCode"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body createBookingRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	date, err := models.ParseDate(strings.TrimSpace(body.Date))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	result, err := s.svc.Bookings.CreateBooking(r.Context(), actorOf(r), service.CreateBookingRequest{
		ExperienceID: body.ExperienceID,
		Date:         date,
		Guests:       body.Guests,
		IsGift:       body.IsGift,
		CouponCode:   body.CouponCode,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.Bookings.GetBooking(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.Bookings.ConfirmBooking(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.Bookings.CancelBooking(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.ListBookings(r.Context(), actorOf(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleRequestReschedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NewDate string `json:"newDate"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	newDate, err := models.ParseDate(strings.TrimSpace(body.NewDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	booking, err := s.svc.Reschedules.RequestReschedule(r.Context(), actorOf(r), r.PathValue("id"), newDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleRespondReschedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Accept *bool `json:"accept"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if body.Accept == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "accept is required")
		return
	}

	booking, err := s.svc.Reschedules.RespondToReschedule(r.Context(), actorOf(r), r.PathValue("id"), *body.Accept)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleQuoteCoupon(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "amount must be an integer in minor units")
		return
	}

	outcome, err := s.svc.Coupons.Quote(r.Context(), r.PathValue("code"), amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *HTTPServer) handleSaveCoupon(w http.ResponseWriter, r *http.Request) {
	var c models.Coupon
	if err := decodeBody(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	c.Code = r.PathValue("code")

	saved, err := s.svc.Coupons.SaveCoupon(r.Context(), actorOf(r), c)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *HTTPServer) handleDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Coupons.DeleteCoupon(r.Context(), actorOf(r), r.PathValue("code")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var app models.HostApplication
	if err := decodeBody(r, &app); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	created, err := s.svc.Applications.SubmitApplication(r.Context(), actorOf(r), app)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleApproveApplication(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Applications.ApproveApplication(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleRejectApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.svc.Applications.RejectApplication(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *HTTPServer) handleRequestChanges(w http.ResponseWriter, r *http.Request) {
	app, err := s.svc.Applications.RequestChanges(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *HTTPServer) handleInbox(w http.ResponseWriter, r *http.Request) {
	if s.svc.Inbox == nil {
		writeJSON(w, http.StatusOK, map[string]any{"notifications": []models.Notification{}})
		return
	}
	items, err := s.svc.Inbox.List(r.Context(), actorOf(r).ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
}

// handleExportBookings streams an xlsx report; from and to are optional YYYY-MM-DD bounds.
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	for name, dst := range map[string]*time.Time{"from": &from, "to": &to} {
		raw := strings.TrimSpace(r.URL.Query().Get(name))
		if raw == "" {
			continue
		}
		d, err := models.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		*dst = d
	}

	bookings, err := s.svc.Bookings.ListBookings(r.Context(), actorOf(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	if err := s.svc.Exporter.WriteBookings(w, export.InRange(bookings, from, to)); err != nil {
		s.logger.Error().Err(err).Msg("bookings export failed")
	}
}
