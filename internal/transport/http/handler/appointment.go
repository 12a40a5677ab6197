package handler

import (
	"github.com/gin-gonic/gin"

	"constitution-gpt/internal/app"
	"constitution-gpt/internal/model"
	"constitution-gpt/internal/transport/http/response"
)

type AppointmentHandler struct {
	appointmentService *app.AppointmentService
}

type BookAppointmentRequest struct {
	LawyerID uint   `json:"lawyer_id" binding:"required,gt=0"`
	Date     string `json:"date" binding:"required"`
	TimeSlot string `json:"time_slot" binding:"required,max=32"`
	Notes    string `json:"notes" binding:"max=2000"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func NewAppointmentHandler(appointmentService *app.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentService: appointmentService}
}

func (h *AppointmentHandler) Book(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	appt, err := h.appointmentService.Book(c.Request.Context(), app.BookInput{
		UserID:   userID,
		LawyerID: req.LawyerID,
		Date:     req.Date,
		TimeSlot: req.TimeSlot,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(c, err, "book appointment failed")
		return
	}
	response.Created(c, appt)
}

// List returns a lawyer's client bookings, or the caller's own bookings for
// every other role.
func (h *AppointmentHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var (
		appts []model.Appointment
		err   error
	)
	if actor.Role == model.RoleLawyer {
		appts, err = h.appointmentService.ListForLawyer(c.Request.Context(), actor.UserID)
	} else {
		appts, err = h.appointmentService.ListForUser(c.Request.Context(), actor.UserID)
	}
	if err != nil {
		writeError(c, err, "list appointments failed")
		return
	}
	response.OK(c, gin.H{"appointments": appts})
}

func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	appt, err := h.appointmentService.UpdateStatus(c.Request.Context(), actor, id, model.AppointmentStatus(req.Status))
	if err != nil {
		writeError(c, err, "update appointment failed")
		return
	}
	response.OK(c, appt)
}
