package handler

import (
	"net/http"
	"time"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/apierror"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/dto"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TillHandler struct{ svc service.TillService }

func NewTillHandler(svc service.TillService) *TillHandler { return &TillHandler{svc: svc} }

func (h *TillHandler) Open(c *gin.Context) {
	var req dto.OpenTillRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TillHandler) Close(c *gin.Context) {
	var req dto.CloseTillRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns the till record for a location and a YYYY-MM-DD date.
func (h *TillHandler) Get(c *gin.Context) {
	locationID, err := uuid.Parse(c.Param("location_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid location_id"))
		return
	}
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid date, expected YYYY-MM-DD"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), locationID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
