package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/careslot/appointment-booking/internal/schedule"
)

type UpsertTemplateRequest struct {
	Day    string `json:"day" validate:"required"`
	Period string `json:"period" validate:"omitempty,oneof=morning afternoon"`
	Start  string `json:"start" validate:"required"`
	End    string `json:"end" validate:"required"`
	Active *bool  `json:"active"`
}

type ToggleTemplateRequest struct {
	Day    string `json:"day" validate:"required"`
	Period string `json:"period" validate:"omitempty,oneof=morning afternoon"`
	Active bool   `json:"active"`
}

type CreateWindowRequest struct {
	Start  time.Time `json:"start" validate:"required"`
	End    time.Time `json:"end" validate:"required"`
	Reason string    `json:"reason"`
}

type CreateAppointmentRequest struct {
	DoctorID   string     `json:"doctor_id" validate:"required,uuid"`
	PatientID  string     `json:"patient_id" validate:"omitempty,uuid"`
	GuestName  string     `json:"guest_name"`
	GuestEmail string     `json:"guest_email" validate:"omitempty,email"`
	Start      time.Time  `json:"start" validate:"required"`
	End        *time.Time `json:"end"`
	Status     string     `json:"status" validate:"omitempty,oneof=pending confirmed"`
	Reason     string     `json:"reason" validate:"required"`
	Notes      string     `json:"notes"`
}

type UpdateAppointmentRequest struct {
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
	Status      string     `json:"status" validate:"omitempty,oneof=pending confirmed cancelled completed"`
	Reason      *string    `json:"reason"`
	Notes       *string    `json:"notes"`
	ConfirmedBy string     `json:"confirmed_by" validate:"omitempty,uuid"`
}

type SlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type TemplateResponse struct {
	Day    string `json:"day"`
	Period string `json:"period,omitempty"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Active bool   `json:"active"`
}

type WindowResponse struct {
	ID     uuid.UUID `json:"id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	DoctorID    uuid.UUID  `json:"doctor_id"`
	PatientID   *uuid.UUID `json:"patient_id,omitempty"`
	GuestName   string     `json:"guest_name,omitempty"`
	GuestEmail  string     `json:"guest_email,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason"`
	Notes       string     `json:"notes,omitempty"`
	ConfirmedBy *uuid.UUID `json:"confirmed_by,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func appointmentResponse(a *schedule.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:         a.ID,
		DoctorID:   a.DoctorID,
		GuestName:  a.GuestName,
		GuestEmail: a.GuestEmail,
		Start:      a.Start,
		End:        a.End,
		Status:     string(a.Status),
		Reason:     a.Reason,
		Notes:      a.Notes,
	}
	if a.PatientID != uuid.Nil {
		id := a.PatientID
		resp.PatientID = &id
	}
	if a.ConfirmedBy != uuid.Nil {
		id := a.ConfirmedBy
		resp.ConfirmedBy = &id
	}
	return resp
}

func templateResponse(t schedule.AvailabilityTemplate) TemplateResponse {
	return TemplateResponse{
		Day:    t.Day.String(),
		Period: t.Period,
		Start:  t.Start.String(),
		End:    t.End.String(),
		Active: t.Active,
	}
}
