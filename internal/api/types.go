package api

// Requests. Dates are dd/MM/yyyy strings, slots are 1-based.

type BookRequest struct {
	PatientID      string `json:"patient_id"`
	PractitionerID string `json:"practitioner_id"`
	Date           string `json:"date"`
	Slot           int    `json:"slot"`
}

type RescheduleRequest struct {
	Date string `json:"date"`
	Slot int    `json:"slot"`
}

type SlotActionRequest struct {
	Date string `json:"date"`
	Slot int    `json:"slot"`
}

type PrescriptionLineRequest struct {
	MedicationID string `json:"medication_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
}

type OutcomeRequest struct {
	Outcome       string                    `json:"outcome"` // "completed" or "no_show"
	ServiceType   string                    `json:"service_type,omitempty"`
	Notes         string                    `json:"notes,omitempty"`
	Diagnosis     string                    `json:"diagnosis,omitempty"`
	Treatment     string                    `json:"treatment,omitempty"`
	Prescriptions []PrescriptionLineRequest `json:"prescriptions,omitempty"`
}

// Responses.

type AppointmentResponse struct {
	ID             string `json:"id"`
	PatientID      string `json:"patient_id"`
	PractitionerID string `json:"practitioner_id"`
	Date           string `json:"date"`
	Slot           int    `json:"slot"`
	SlotTime       string `json:"slot_time"`
	Status         string `json:"status"`
}

type SessionDayResponse struct {
	PractitionerID string   `json:"practitioner_id"`
	Date           string   `json:"date"`
	Slots          []string `json:"slots"` // wire encoding, index 0 = slot 1
}

type SlotToggleResponse struct {
	Date  string `json:"date"`
	Slot  int    `json:"slot"`
	State string `json:"state"`
}

type OutcomeResponse struct {
	AppointmentID string                    `json:"appointment_id"`
	ServiceType   string                    `json:"service_type"`
	Notes         string                    `json:"notes"`
	Diagnosis     string                    `json:"diagnosis"`
	Treatment     string                    `json:"treatment"`
	Dispense      string                    `json:"dispense"`
	Prescriptions []PrescriptionLineRequest `json:"prescriptions"`
	Rejected      []PrescriptionLineRequest `json:"rejected_prescriptions,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
