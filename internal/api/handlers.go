package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/careslot/appointment-booking/internal/booking"
	"github.com/careslot/appointment-booking/internal/schedule"
)

var validate = validator.New()

const dateParamLayout = "2006-01-02"

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func requireActor(w http.ResponseWriter, r *http.Request) (schedule.Actor, bool) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID and X-Actor-Role headers are required")
		return schedule.Actor{}, false
	}
	return actor, true
}

func doctorIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// dateRangeParams reads ?from=YYYY-MM-DD&to=YYYY-MM-DD, defaulting to
// the next 14 days.
func dateRangeParams(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 14)

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.ParseInLocation(dateParamLayout, v, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
		to = from.AddDate(0, 0, 14)
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.ParseInLocation(dateParamLayout, v, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}

func getSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}
		from, to, err := dateRangeParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date_range", "from/to must be YYYY-MM-DD")
			return
		}

		var duration time.Duration
		if v := r.URL.Query().Get("duration"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be a positive Go duration, e.g. 30m")
				return
			}
			duration = d
		}

		slots, err := svc.AvailableSlots(r.Context(), doctorID, from, to, duration)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, SlotResponse{Start: s.Start, End: s.End})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req CreateAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		var patientID uuid.UUID
		if req.PatientID != "" {
			patientID, err = uuid.Parse(req.PatientID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
		}

		breq := booking.BookingRequest{
			DoctorID:   doctorID,
			PatientID:  patientID,
			GuestName:  req.GuestName,
			GuestEmail: req.GuestEmail,
			Start:      req.Start,
			Status:     schedule.Status(req.Status),
			Reason:     req.Reason,
			Notes:      req.Notes,
		}
		if req.End != nil {
			breq.End = *req.End
		}

		appt, err := svc.BookAppointment(r.Context(), breq, actor)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, appointmentResponse(appt))
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}
		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}
		from, to, err := dateRangeParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date_range", "from/to must be YYYY-MM-DD")
			return
		}
		appts, err := svc.ListDoctorAppointments(r.Context(), doctorID, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, appointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}
		var req UpdateAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		ureq := booking.UpdateRequest{
			ID:     id,
			Status: schedule.Status(req.Status),
			Reason: req.Reason,
			Notes:  req.Notes,
		}
		if req.Start != nil {
			ureq.Start = *req.Start
		}
		if req.End != nil {
			ureq.End = *req.End
		}
		if req.ConfirmedBy != "" {
			confirmedBy, err := uuid.Parse(req.ConfirmedBy)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_confirmed_by", "confirmed_by must be a valid UUID")
				return
			}
			ureq.ConfirmedBy = confirmedBy
		}

		appt, err := svc.UpdateAppointment(r.Context(), ureq, actor)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}
		appt, err := svc.CancelAppointment(r.Context(), id, actor)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}
		if err := svc.DeleteAppointment(r.Context(), id, actor); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleServiceError keeps routine contention (409: pick another slot,
// retry) distinct from caller mistakes (400/403/422).
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "template_not_found", err.Error())
	case errors.Is(err, booking.ErrWindowNotFound):
		writeError(w, http.StatusNotFound, "window_not_found", err.Error())
	case errors.Is(err, schedule.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", "this slot just became unavailable, please pick another")
	case errors.Is(err, booking.ErrCalendarBusy):
		writeError(w, http.StatusConflict, "calendar_busy", "the doctor's calendar is being updated, please retry shortly")
	case errors.Is(err, schedule.ErrSlotUnavailable):
		writeError(w, http.StatusUnprocessableEntity, "slot_unavailable", err.Error())
	case errors.Is(err, schedule.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
	case errors.Is(err, schedule.ErrIllegalStatusTransition):
		writeError(w, http.StatusConflict, "illegal_status_transition", err.Error())
	case errors.Is(err, booking.ErrNotAllowed):
		writeError(w, http.StatusForbidden, "not_allowed", err.Error())
	case errors.Is(err, booking.ErrGuestDetailsRequired):
		writeError(w, http.StatusBadRequest, "guest_details_required", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
