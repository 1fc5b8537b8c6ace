package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicware/booking-ledger/internal/clinic"
	redisclient "github.com/clinicware/booking-ledger/internal/redis"
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func parseRequestDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	date, err := clinic.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed_date", err.Error())
		return time.Time{}, false
	}
	return date, true
}

func bookHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookRequest
		if !decodeBody(w, r, &req) {
			return
		}
		date, ok := parseRequestDate(w, req.Date)
		if !ok {
			return
		}

		appt, err := svc.Book(r.Context(), req.PatientID, req.PractitionerID, date, req.Slot)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, appointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Appointment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func rescheduleHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RescheduleRequest
		if !decodeBody(w, r, &req) {
			return
		}
		date, ok := parseRequestDate(w, req.Date)
		if !ok {
			return
		}

		appt, err := svc.Reschedule(r.Context(), chi.URLParam(r, "id"), date, req.Slot)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func cancelHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Cancel(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func outcomeHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OutcomeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "id")

		switch req.Outcome {
		case "completed":
			visit := clinic.VisitDetails{
				ServiceType:   req.ServiceType,
				Notes:         req.Notes,
				Diagnosis:     req.Diagnosis,
				Treatment:     req.Treatment,
				Prescriptions: prescriptionLines(req.Prescriptions),
			}
			rec, rejected, err := svc.RecordCompleted(r.Context(), id, visit)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, outcomeResponse(rec, rejected))
		case "no_show":
			appt, err := svc.RecordNoShow(r.Context(), id)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, appointmentResponse(appt))
		default:
			writeError(w, http.StatusBadRequest, "invalid_outcome", `outcome must be "completed" or "no_show"`)
		}
	}
}

func getOutcomeHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.Outcome(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outcomeResponse(rec, nil))
	}
}

func patientAppointmentsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.PatientAppointments(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentListResponse(list))
	}
}

func practitionerPendingHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.PractitionerPending(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentListResponse(list))
	}
}

func practitionerConfirmedHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.PractitionerConfirmed(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentListResponse(list))
	}
}

// sessionBoardHandler renders one day's slot board. The date comes as a query
// parameter because dd/MM/yyyy cannot sit in a path segment.
func sessionBoardHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseRequestDate(w, r.URL.Query().Get("date"))
		if !ok {
			return
		}
		day, err := svc.SessionBoard(r.Context(), chi.URLParam(r, "id"), date)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionDayResponse(day))
	}
}

func acceptHandler(svc *clinic.Service) http.HandlerFunc {
	return slotActionHandler(func(r *http.Request, id string, date time.Time, slot int) (any, int, error) {
		appt, err := svc.Accept(r.Context(), id, date, slot)
		if err != nil {
			return nil, 0, err
		}
		return appointmentResponse(appt), http.StatusOK, nil
	})
}

func declineHandler(svc *clinic.Service) http.HandlerFunc {
	return slotActionHandler(func(r *http.Request, id string, date time.Time, slot int) (any, int, error) {
		appt, err := svc.Decline(r.Context(), id, date, slot)
		if err != nil {
			return nil, 0, err
		}
		return appointmentResponse(appt), http.StatusOK, nil
	})
}

func toggleHandler(svc *clinic.Service) http.HandlerFunc {
	return slotActionHandler(func(r *http.Request, id string, date time.Time, slot int) (any, int, error) {
		state, err := svc.ToggleSlot(r.Context(), id, date, slot)
		if err != nil {
			return nil, 0, err
		}
		resp := SlotToggleResponse{Date: clinic.FormatDate(date), Slot: slot, State: state.String()}
		return resp, http.StatusOK, nil
	})
}

func slotActionHandler(act func(r *http.Request, practitionerID string, date time.Time, slot int) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SlotActionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		date, ok := parseRequestDate(w, req.Date)
		if !ok {
			return
		}

		resp, status, err := act(r, chi.URLParam(r, "id"), date, req.Slot)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, status, resp)
	}
}

// handleServiceError maps domain sentinels onto HTTP statuses. Validation is
// 400, absence is 404, any state or temporal precondition failure is 409.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, "invalid_slot", err.Error())
	case errors.Is(err, clinic.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, clinic.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, clinic.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, clinic.ErrOutcomeNotFound):
		writeError(w, http.StatusNotFound, "outcome_not_found", err.Error())
	case errors.Is(err, clinic.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, clinic.ErrSlotNotPending):
		writeError(w, http.StatusConflict, "slot_not_pending", err.Error())
	case errors.Is(err, clinic.ErrSlotConfirmed):
		writeError(w, http.StatusConflict, "slot_confirmed", err.Error())
	case errors.Is(err, clinic.ErrNotActionable):
		writeError(w, http.StatusConflict, "not_actionable", err.Error())
	case errors.Is(err, clinic.ErrNotYetOccurred):
		writeError(w, http.StatusConflict, "not_yet_occurred", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
