package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/clinicware/booking-ledger/internal/clinic"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func appointmentResponse(a *clinic.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PatientID:      a.PatientID,
		PractitionerID: a.PractitionerID,
		Date:           clinic.FormatDate(a.Date),
		Slot:           a.Slot,
		SlotTime:       clinic.SlotLabel(a.Slot),
		Status:         string(a.Status),
	}
}

func appointmentListResponse(list []*clinic.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, appointmentResponse(a))
	}
	return out
}

func sessionDayResponse(d *clinic.SessionDay) SessionDayResponse {
	slots := make([]string, clinic.SlotCount)
	for i := range d.Slots {
		slots[i] = clinic.EncodeSlot(d.Slots[i])
	}
	return SessionDayResponse{
		PractitionerID: d.PractitionerID,
		Date:           clinic.FormatDate(d.Date),
		Slots:          slots,
	}
}

func prescriptionLines(lines []PrescriptionLineRequest) []clinic.PrescriptionLine {
	out := make([]clinic.PrescriptionLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, clinic.PrescriptionLine{MedicationID: l.MedicationID, Name: l.Name, Quantity: l.Quantity})
	}
	return out
}

func prescriptionResponses(lines []clinic.PrescriptionLine) []PrescriptionLineRequest {
	out := make([]PrescriptionLineRequest, 0, len(lines))
	for _, l := range lines {
		out = append(out, PrescriptionLineRequest{MedicationID: l.MedicationID, Name: l.Name, Quantity: l.Quantity})
	}
	return out
}

func outcomeResponse(rec *clinic.OutcomeRecord, rejected []clinic.PrescriptionLine) OutcomeResponse {
	return OutcomeResponse{
		AppointmentID: rec.AppointmentID,
		ServiceType:   rec.ServiceType,
		Notes:         rec.Notes,
		Diagnosis:     rec.Diagnosis,
		Treatment:     rec.Treatment,
		Dispense:      string(rec.Dispense),
		Prescriptions: prescriptionResponses(rec.Prescriptions),
		Rejected:      prescriptionResponses(rejected),
	}
}
