package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careslot/appointment-booking/internal/schedule"
)

func upsertTemplateHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}
		var req UpsertTemplateRequest
		if !decodeBody(w, r, &req) {
			return
		}

		day, err := schedule.ParseWeekday(req.Day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day", err.Error())
			return
		}
		start, err := schedule.ParseTimeOfDay(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}
		end, err := schedule.ParseTimeOfDay(req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}

		tpl := schedule.AvailabilityTemplate{
			DoctorID: doctorID,
			Day:      day,
			Period:   req.Period,
			Start:    start,
			End:      end,
			Active:   true,
		}
		if req.Active != nil {
			tpl.Active = *req.Active
		}

		if err := svc.UpsertTemplate(r.Context(), tpl, actor); err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, templateResponse(tpl))
	}
}

func toggleTemplateHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}
		var req ToggleTemplateRequest
		if !decodeBody(w, r, &req) {
			return
		}

		day, err := schedule.ParseWeekday(req.Day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day", err.Error())
			return
		}

		if err := svc.ToggleTemplate(r.Context(), doctorID, day, req.Period, req.Active, actor); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteTemplateHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		day, err := schedule.ParseWeekday(chi.URLParam(r, "day"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day", err.Error())
			return
		}
		period := r.URL.Query().Get("period")

		if err := svc.DeleteTemplate(r.Context(), doctorID, day, period, actor); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listTemplatesHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}
		tpls, err := svc.ListTemplates(r.Context(), doctorID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]TemplateResponse, 0, len(tpls))
		for _, t := range tpls {
			resp = append(resp, templateResponse(t))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createWindowHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}
		var req CreateWindowRequest
		if !decodeBody(w, r, &req) {
			return
		}

		win, err := svc.AddUnavailability(r.Context(), schedule.UnavailabilityWindow{
			ID:       uuid.New(),
			DoctorID: doctorID,
			Start:    req.Start,
			End:      req.End,
			Reason:   req.Reason,
		}, actor)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, WindowResponse{
			ID:     win.ID,
			Start:  win.Start,
			End:    win.End,
			Reason: win.Reason,
		})
	}
}

func deleteWindowHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}
		windowID, err := uuid.Parse(chi.URLParam(r, "windowID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_id", "windowID must be a valid UUID")
			return
		}

		if err := svc.RemoveUnavailability(r.Context(), doctorID, windowID, actor); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listWindowsHandler(svc BookingService) http.HandlerFunc {
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
		windows, err := svc.ListUnavailability(r.Context(), doctorID, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]WindowResponse, 0, len(windows))
		for _, win := range windows {
			resp = append(resp, WindowResponse{
				ID:     win.ID,
				Start:  win.Start,
				End:    win.End,
				Reason: win.Reason,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
